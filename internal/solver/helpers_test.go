/*
Copyright SUSE LLC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package solver

import (
	"bytes"
	"context"

	"github.com/Masterminds/log-go"
	logcli "github.com/Masterminds/log-go/impl/cli"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
)

// newTestLogger creates our own Logger that satisfies impl/cli.Logger, but
// with a buffer for tests
func newTestLogger() (log.Logger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	logger := logcli.NewStandard()
	logger.InfoOut = buf
	logger.WarnOut = buf
	logger.ErrorOut = buf
	logger.DebugOut = buf
	logger.Level = log.DebugLevel
	return logger, buf
}

func withCaps(p *pkg.Pkg, requires, provides, obsoletes, conflicts []string) *pkg.Pkg {
	p.Requires = pkg.MustParseCapabilities(requires...)
	p.Provides = pkg.MustParseCapabilities(provides...)
	p.Obsoletes = pkg.MustParseCapabilities(obsoletes...)
	p.Conflicts = pkg.MustParseCapabilities(conflicts...)
	return p
}

// capChecker checks requires and conflicts of the units laid over the
// installed packages. It never suggests providers.
type capChecker struct {
	installed []*pkg.Pkg
	calls     int
}

func (c *capChecker) Check(_ context.Context, units []Unit) (*Problems, error) {
	c.calls++

	gone := map[string]bool{}
	for _, u := range units {
		gone[u.Pkg.Name] = true
	}
	world := []*pkg.Pkg{}
	for _, p := range c.installed {
		if !gone[p.Name] {
			world = append(world, p)
		}
	}
	for _, u := range units {
		if !u.Erase {
			world = append(world, u.Pkg)
		}
	}

	probs := &Problems{}
	for _, p := range world {
		for _, req := range p.Requires {
			if !worldProvides(world, req) {
				probs.Requirements = append(probs.Requirements, Requirement{Required: req, Requiring: p})
			}
		}
	}
	for _, u := range units {
		if u.Erase {
			continue
		}
		for _, cf := range u.Pkg.Conflicts {
			for _, q := range world {
				if q != u.Pkg && provides(q, cf) {
					probs.Conflicts = append(probs.Conflicts, Conflict{Capability: cf, A: u.Pkg, B: q})
				}
			}
		}
	}
	return probs, nil
}

func worldProvides(world []*pkg.Pkg, c pkg.Capability) bool {
	for _, q := range world {
		if provides(q, c) {
			return true
		}
	}
	return false
}

// scriptedChecker returns its answers in order, then no problems.
type scriptedChecker struct {
	answers []*Problems
	seen    [][]Unit
}

func (c *scriptedChecker) Check(_ context.Context, units []Unit) (*Problems, error) {
	c.seen = append(c.seen, units)
	if len(c.answers) == 0 {
		return &Problems{}, nil
	}
	p := c.answers[0]
	c.answers = c.answers[1:]
	return p, nil
}

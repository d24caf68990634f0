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

/*
Package check implements the requirement and conflict checker the
dependency repair loop relies on.

The checker lays the transaction units over the installed packages, the way
rpm would apply them, and reports:

  - requirements of the units that nothing in the resulting system provides,
    with a suggested provider from the available packages when one exists;
  - requirements of installed packages that were met before the transaction
    and are not anymore;
  - conflicts between a unit and any other package of the resulting system.
*/
package check

import (
	"context"

	"github.com/Masterminds/log-go"

	"github.com/rancher-sandbox/yumper/internal/arch"
	pkg "github.com/rancher-sandbox/yumper/internal/package"
	"github.com/rancher-sandbox/yumper/internal/rpmver"
	"github.com/rancher-sandbox/yumper/internal/solver"
)

// Checker is a capability based solver.Checker.
type Checker struct {
	Installed *solver.PackageSet
	Available *solver.PackageSet
	Compat    *arch.Compat
	Logger    log.Logger
}

// New returns a checker over the given registries.
func New(installed, available *solver.PackageSet, compat *arch.Compat, logger log.Logger) *Checker {
	return &Checker{Installed: installed, Available: available, Compat: compat, Logger: logger}
}

// Check implements solver.Checker.
func (c *Checker) Check(ctx context.Context, units []solver.Unit) (*solver.Problems, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	world, fromUnits := c.apply(units)
	probs := &solver.Problems{}

	for _, u := range units {
		if u.Erase {
			continue
		}
		for _, req := range u.Pkg.Requires {
			if satisfied(world, req) {
				continue
			}
			probs.Requirements = append(probs.Requirements, solver.Requirement{
				Required:  req,
				Requiring: u.Pkg,
				Suggested: c.suggest(req),
			})
		}
	}

	before := c.Installed.Entries()
	for _, p := range world {
		if fromUnits[p] {
			continue
		}
		for _, req := range p.Requires {
			if satisfied(world, req) || !satisfiedBy(before, req) {
				continue
			}
			probs.Requirements = append(probs.Requirements, solver.Requirement{
				Required:  req,
				Requiring: p,
			})
		}
	}

	seen := map[[2]string]bool{}
	for _, u := range units {
		if u.Erase {
			continue
		}
		for _, other := range world {
			if other == u.Pkg {
				continue
			}
			for _, conflict := range conflicting(u.Pkg, other) {
				pair := [2]string{u.Pkg.GetFingerPrint(), other.GetFingerPrint()}
				if seen[pair] || seen[[2]string{pair[1], pair[0]}] {
					continue
				}
				seen[pair] = true
				probs.Conflicts = append(probs.Conflicts, solver.Conflict{Capability: conflict, A: u.Pkg, B: other})
			}
		}
	}

	c.Logger.Debugf("checked %d units: %d requirements, %d conflicts",
		len(units), len(probs.Requirements), len(probs.Conflicts))
	return probs, nil
}

// apply returns the packages present once units are applied, installed
// packages first. Updates replace every installed version of the same name
// and arch, erasures remove their key, and obsoleted installed packages go
// away. install-as-update keeps the older versions in place.
func (c *Checker) apply(units []solver.Unit) ([]*pkg.Pkg, map[*pkg.Pkg]bool) {
	gone := map[pkg.Key]bool{}
	for _, u := range units {
		switch {
		case u.Erase:
			gone[u.Pkg.Key()] = true
		case u.State == pkg.Update || u.State == pkg.UpdateDep:
			gone[u.Pkg.Key()] = true
		}
		if u.Erase {
			continue
		}
		for _, e := range c.Installed.Entries() {
			if obsoletes(u.Pkg, e.Pkg) {
				gone[e.Pkg.Key()] = true
			}
		}
	}

	world := []*pkg.Pkg{}
	fromUnits := map[*pkg.Pkg]bool{}
	for _, e := range c.Installed.Entries() {
		if !gone[e.Pkg.Key()] {
			world = append(world, e.Pkg)
		}
	}
	for _, u := range units {
		if !u.Erase {
			world = append(world, u.Pkg)
			fromUnits[u.Pkg] = true
		}
	}
	return world, fromUnits
}

// suggest picks the best architecture of the first available package name
// providing req.
func (c *Checker) suggest(req pkg.Capability) *pkg.Pkg {
	for _, e := range c.Available.Entries() {
		if !provides(e.Pkg, req) {
			continue
		}
		archs := []string{}
		for _, a := range c.Compat.AvailableArchs(c.Available, e.Pkg.Name) {
			if ae, _ := c.Available.Get(e.Pkg.Name, a); provides(ae.Pkg, req) {
				archs = append(archs, a)
			}
		}
		if best, ok := c.Available.Get(e.Pkg.Name, c.Compat.BestArch(archs)); ok {
			return best.Pkg
		}
	}
	return nil
}

func satisfied(world []*pkg.Pkg, req pkg.Capability) bool {
	for _, p := range world {
		if provides(p, req) {
			return true
		}
	}
	return false
}

func satisfiedBy(entries []solver.Entry, req pkg.Capability) bool {
	for _, e := range entries {
		if provides(e.Pkg, req) {
			return true
		}
	}
	return false
}

func provides(p *pkg.Pkg, c pkg.Capability) bool {
	for _, prov := range p.AllProvides() {
		if rpmver.Overlaps(prov, c) {
			return true
		}
	}
	return false
}

// conflicting returns the conflicts declared between a and b, in either
// direction.
func conflicting(a, b *pkg.Pkg) []pkg.Capability {
	out := []pkg.Capability{}
	for _, c := range a.Conflicts {
		if provides(b, c) {
			out = append(out, c)
		}
	}
	for _, c := range b.Conflicts {
		if provides(a, c) {
			out = append(out, c)
		}
	}
	return out
}

// obsoletes compares the installed version against the entry, as rpm does
// when applying the transaction.
func obsoletes(p, installed *pkg.Pkg) bool {
	for _, o := range p.Obsoletes {
		if o.Name == installed.Name && solver.ObsoleteMatches(installed.EVR(), o) {
			return true
		}
	}
	return false
}

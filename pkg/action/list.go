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

package action

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/rancher-sandbox/yumper/internal/rpmver"
	"github.com/rancher-sandbox/yumper/internal/solver"
)

// ListFilter selects the sections of a listing.
type ListFilter string

const (
	ListAll       ListFilter = "all"
	ListInstalled ListFilter = "installed"
	ListAvailable ListFilter = "available"
	ListUpdates   ListFilter = "updates"
	ListObsoletes ListFilter = "obsoletes"
)

// ParseListFilter validates s, "" meaning ListAll.
func ParseListFilter(s string) (ListFilter, error) {
	switch f := ListFilter(strings.ToLower(s)); f {
	case "":
		return ListAll, nil
	case ListAll, ListInstalled, ListAvailable, ListUpdates, ListObsoletes:
		return f, nil
	}
	return ListAll, errors.Errorf("invalid list filter %q, allowed values: all, installed, available, updates, obsoletes", s)
}

// ListElement is a package as shown by list and check-update.
type ListElement struct {
	Name       string   `json:"name" yaml:"name"`
	Arch       string   `json:"arch" yaml:"arch"`
	Version    string   `json:"version" yaml:"version"`
	Repository string   `json:"repository" yaml:"repository"`
	Obsoletes  []string `json:"obsoletes,omitempty" yaml:"obsoletes,omitempty"`
}

func newListElement(e solver.Entry) ListElement {
	return ListElement{
		Name:       e.Pkg.Name,
		Arch:       e.Pkg.Arch,
		Version:    e.Pkg.EVR().String(),
		Repository: e.Pkg.OriginID,
	}
}

// ListResult holds the sections of a listing. Sections left out by the
// filter are nil, and omitted from the output.
type ListResult struct {
	Installed []ListElement `json:"installed,omitempty" yaml:"installed,omitempty"`
	Available []ListElement `json:"available,omitempty" yaml:"available,omitempty"`
	Updates   []ListElement `json:"updates,omitempty" yaml:"updates,omitempty"`
	Obsoletes []ListElement `json:"obsoletes,omitempty" yaml:"obsoletes,omitempty"`
}

// List compares installed and available packages.
type List struct {
	Config *Configuration
	Filter ListFilter
}

// NewList creates a new List object with the given configuration.
func NewList(cfg *Configuration) *List {
	return &List{Config: cfg, Filter: ListAll}
}

// Run lists the packages whose name matches any of patterns, or every
// package when none is given.
func (l *List) Run(ctx context.Context, patterns ...string) (*ListResult, error) {
	return list(ctx, l.Config, func(f ListFilter) bool {
		return l.Filter == ListAll || l.Filter == f
	}, patterns)
}

func list(ctx context.Context, cfg *Configuration, want func(ListFilter) bool, patterns []string) (*ListResult, error) {
	for _, p := range patterns {
		if _, err := path.Match(p, ""); err != nil {
			return nil, errors.Wrapf(err, "invalid pattern %q", p)
		}
	}
	s, err := cfg.NewSolver(ctx)
	if err != nil {
		return nil, err
	}

	match := func(name string) bool {
		if len(patterns) == 0 {
			return true
		}
		for _, p := range patterns {
			if ok, _ := path.Match(p, name); ok {
				return true
			}
		}
		return false
	}
	res := &ListResult{}
	if want(ListInstalled) {
		res.Installed = []ListElement{}
		for _, e := range s.Installed.Entries() {
			if match(e.Pkg.Name) {
				res.Installed = append(res.Installed, newListElement(e))
			}
		}
	}
	if want(ListAvailable) {
		res.Available = []ListElement{}
		for _, e := range s.Available.Entries() {
			if !match(e.Pkg.Name) {
				continue
			}
			if inst, ok := s.Installed.GetByKey(e.Pkg.Key()); ok && rpmver.ComparePkgs(inst.Pkg, e.Pkg) >= 0 {
				continue
			}
			res.Available = append(res.Available, newListElement(e))
		}
	}
	if want(ListUpdates) {
		res.Updates = updates(s, match)
	}
	if want(ListObsoletes) {
		res.Obsoletes = obsoletes(s, match)
	}
	return res, nil
}

func updates(s *solver.Solver, match func(string) bool) []ListElement {
	out := []ListElement{}
	for _, k := range s.Candidates().Updates {
		if e, ok := s.Available.GetByKey(k); ok && match(k.Name) {
			out = append(out, newListElement(e))
		}
	}
	return out
}

func obsoletes(s *solver.Solver, match func(string) bool) []ListElement {
	out := []ListElement{}
	om := s.ResolveObsoletes()
	for _, k := range s.ObsoletingUpdates(om) {
		e, ok := s.Available.GetByKey(k)
		if !ok || !match(k.Name) {
			continue
		}
		el := newListElement(e)
		el.Obsoletes = append([]string(nil), om.Obsoleting[k]...)
		out = append(out, el)
	}
	return out
}

// CheckUpdate reports available updates without resolving dependencies.
type CheckUpdate struct {
	Config *Configuration
}

// NewCheckUpdate creates a new CheckUpdate object with the given
// configuration.
func NewCheckUpdate(cfg *Configuration) *CheckUpdate {
	return &CheckUpdate{Config: cfg}
}

// Run returns the updates and obsoletes of the packages matching patterns.
func (c *CheckUpdate) Run(ctx context.Context, patterns ...string) (*ListResult, error) {
	return list(ctx, c.Config, func(f ListFilter) bool {
		return f == ListUpdates || f == ListObsoletes
	}, patterns)
}

// HasUpdates reports whether any update or obsoleting package was found.
func (r *ListResult) HasUpdates() bool {
	return len(r.Updates)+len(r.Obsoletes) > 0
}

// Format renders the result in the given mode.
func (r *ListResult) Format(mode solver.OutputMode) (string, error) {
	var sb strings.Builder
	switch mode {
	case solver.Table:
		for _, section := range []struct {
			title string
			elems []ListElement
		}{
			{"Installed Packages", r.Installed},
			{"Available Packages", r.Available},
			{"Updated Packages", r.Updates},
			{"Obsoleting Packages", r.Obsoletes},
		} {
			if len(section.elems) == 0 {
				continue
			}
			table := uitable.New()
			table.AddRow("NAME", "ARCH", "VERSION", "REPOSITORY")
			for _, e := range section.elems {
				table.AddRow(e.Name, e.Arch, e.Version, e.Repository)
				if len(e.Obsoletes) > 0 {
					table.AddRow("", "", "obsoletes", strings.Join(e.Obsoletes, ", "))
				}
			}
			sb.WriteString(section.title + "\n")
			sb.WriteString(table.String())
			sb.WriteString("\n")
		}
	case solver.YAML:
		o, err := yaml.Marshal(r)
		if err != nil {
			return "", err
		}
		sb.Write(o)
	case solver.JSON:
		o, err := json.Marshal(r)
		if err != nil {
			return "", err
		}
		sb.Write(o)
	}
	return sb.String(), nil
}

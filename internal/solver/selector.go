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
	"github.com/Masterminds/log-go"

	"github.com/rancher-sandbox/yumper/internal/arch"
	pkg "github.com/rancher-sandbox/yumper/internal/package"
	"github.com/rancher-sandbox/yumper/internal/rpmver"
)

// Candidates is the outcome of comparing a source registry against the
// installed one.
type Candidates struct {
	Updates []pkg.Key // installed, and the source has something newer
	New     []pkg.Key // not installed in any architecture
	All     []pkg.Key // Updates followed by New
}

// Selector picks, per package name, what a source registry offers over the
// installed registry.
type Selector struct {
	Compat *arch.Compat
	Policy Policy
	Logger log.Logger
}

// NewSelector creates a Selector.
func NewSelector(compat *arch.Compat, policy Policy, logger log.Logger) *Selector {
	return &Selector{Compat: compat, Policy: policy, Logger: logger}
}

// BestVersionArchs returns the compatible architectures of name holding its
// highest EVR in ps. Ties are kept: several architectures may be returned.
// The maximum is folded from the left over the compatibility list order.
func (s *Selector) BestVersionArchs(ps *PackageSet, name string) []string {
	archs := s.Compat.AvailableArchs(ps, name)
	if len(archs) == 0 {
		return nil
	}
	best, _ := ps.Get(name, archs[0])
	for _, a := range archs[1:] {
		e, _ := ps.Get(name, a)
		if rpmver.ComparePkgs(e.Pkg, best.Pkg) > 0 {
			best = e
		}
	}
	out := []string{}
	for _, a := range archs {
		e, _ := ps.Get(name, a)
		if rpmver.ComparePkgs(e.Pkg, best.Pkg) == 0 {
			out = append(out, a)
		}
	}
	return out
}

// Select splits the packages of available into updates to installed ones and
// brand new ones. Names are visited in sorted order and architectures in
// compatibility order, so the result is deterministic.
func (s *Selector) Select(installed, available *PackageSet) *Candidates {
	c := &Candidates{Updates: []pkg.Key{}, New: []pkg.Key{}}

	for _, name := range available.Names() {
		hdrArchs := s.Compat.AvailableArchs(available, name)
		if len(hdrArchs) == 0 {
			continue
		}

		if !installed.HasName(name) {
			for _, a := range hdrArchs {
				c.New = append(c.New, pkg.Key{Name: name, Arch: a})
			}
			continue
		}

		instArchs := s.Compat.AvailableArchs(installed, name)
		if len(hdrArchs) > 1 || len(instArchs) > 1 {
			c.Updates = append(c.Updates, s.complexUpdates(installed, available, name, hdrArchs, instArchs)...)
			continue
		}
		if k, ok := s.simpleUpdate(installed, available, name, hdrArchs[0]); ok {
			c.Updates = append(c.Updates, k)
		}
	}

	c.All = append(append([]pkg.Key{}, c.Updates...), c.New...)
	return c
}

func (s *Selector) simpleUpdate(installed, available *PackageSet, name, a string) (pkg.Key, bool) {
	hdr, _ := available.Get(name, a)
	inst, ok := installed.Get(name, a)
	if !ok {
		if s.Policy.ExactArch {
			s.Logger.Debugf("exactarch: %s.%s has no installed %s counterpart, skipping", name, a, a)
			return pkg.Key{}, false
		}
		inst, _ = installed.GetByName(name)
	}
	if rpmver.Newer(hdr.Pkg, inst.Pkg) {
		return hdr.Pkg.Key(), true
	}
	return pkg.Key{}, false
}

func (s *Selector) complexUpdates(installed, available *PackageSet, name string, hdrArchs, instArchs []string) []pkg.Key {
	updates := []pkg.Key{}

	if s.Policy.ExactArch {
		for _, ia := range instArchs {
			if !contains(hdrArchs, ia) {
				s.Logger.Debugf("exactarch: installed %s.%s has no candidate of the same arch, skipping", name, ia)
				continue
			}
			hdr, _ := available.Get(name, ia)
			inst, _ := installed.Get(name, ia)
			if rpmver.Newer(hdr.Pkg, inst.Pkg) {
				updates = append(updates, hdr.Pkg.Key())
			}
		}
		return updates
	}

	hdrArch := s.Compat.BestArch(s.BestVersionArchs(available, name))
	hdr, ok := available.Get(name, hdrArch)
	if !ok {
		return updates
	}
	inst, ok := installed.Get(name, s.Compat.BestArch(s.BestVersionArchs(installed, name)))
	if !ok {
		inst, _ = installed.GetByName(name)
	}
	if rpmver.Newer(hdr.Pkg, inst.Pkg) {
		updates = append(updates, hdr.Pkg.Key())
	}
	return updates
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

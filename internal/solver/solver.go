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
	"context"

	"github.com/Masterminds/log-go"
	"github.com/pkg/errors"

	"github.com/rancher-sandbox/yumper/internal/arch"
	pkg "github.com/rancher-sandbox/yumper/internal/package"
)

// Solver ties the registries of one resolution together: what is installed,
// what the sources offer, and the transaction being built.
//
// A Solver is not safe for concurrent use. Independent resolutions use
// independent Solvers.
type Solver struct {
	Installed    *PackageSet
	Available    *PackageSet
	Tx           *PackageSet
	Obsoletes    *ObsoleteMap
	PkgResultSet PkgResultSet

	policy   Policy
	compat   *arch.Compat
	selector *Selector
	logger   log.Logger
}

// New creates a Solver with empty registries.
func New(policy Policy, compat *arch.Compat, logger log.Logger) *Solver {
	return &Solver{
		Installed: NewPackageSet(),
		Available: NewPackageSet(),
		Tx:        NewPackageSet(),
		Obsoletes: newObsoleteMap(),
		PkgResultSet: PkgResultSet{
			Inconsistencies: []string{},
		},
		policy:   policy,
		compat:   compat,
		selector: NewSelector(compat, policy, logger),
		logger:   logger,
	}
}

// BuildWorld sets the installed and available registries. Packages whose
// architecture cannot be installed here are left out of the available
// registry.
func (s *Solver) BuildWorld(installed, available *PackageSet) {
	s.Installed = installed
	s.Available = NewPackageSet()
	for _, e := range available.Entries() {
		if !s.compat.Compatible(e.Pkg.Arch) {
			s.logger.Debugf("skipping %s: architecture not compatible with %s", e.Pkg, s.compat.Base)
			continue
		}
		s.Available.Add(e.Pkg, e.State)
	}
}

// BuildWorldMock fills the registries from package lists.
// Useful for testing.
func (s *Solver) BuildWorldMock(installed, available []*pkg.Pkg) {
	inst, avail := NewPackageSet(), NewPackageSet()
	for _, p := range installed {
		inst.Add(p, pkg.AvailableOnly)
	}
	for _, p := range available {
		avail.Merge(p, pkg.AvailableOnly, s.policy.PkgPolicy)
	}
	s.BuildWorld(inst, avail)
}

// Candidates compares the available registry with the installed one.
func (s *Solver) Candidates() *Candidates {
	return s.selector.Select(s.Installed, s.Available)
}

// ResolveObsoletes computes which available packages obsolete installed ones.
func (s *Solver) ResolveObsoletes() *ObsoleteMap {
	s.Obsoletes = ResolveObsoletes(s.Available.Keys(), s.Available, s.Installed)
	return s.Obsoletes
}

// ObsoletingUpdates returns the obsoleting keys of om an update takes:
// names not installed yet, in their best available architecture.
func (s *Solver) ObsoletingUpdates(om *ObsoleteMap) []pkg.Key {
	keys := []pkg.Key{}
	for _, k := range om.ObsoletingKeys() {
		if s.Installed.HasName(k.Name) {
			continue
		}
		if k.Arch != s.compat.BestArch(s.compat.AvailableArchs(s.Available, k.Name)) {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

// SeedUpdate adds updates to the transaction. With no names every update is
// taken, and obsoleting packages are added too.
func (s *Solver) SeedUpdate(names ...string) error {
	cands := s.Candidates()
	wanted := map[string]bool{}
	for _, n := range names {
		wanted[n] = true
	}

	found := map[string]bool{}
	for _, k := range cands.Updates {
		if len(names) > 0 && !wanted[k.Name] {
			continue
		}
		e, _ := s.Available.GetByKey(k)
		state := pkg.Update
		if s.policy.IsInstallOnly(k.Name) {
			state = pkg.InstallAsUpdate
		}
		s.Tx.Add(e.Pkg, state)
		found[k.Name] = true
	}

	om := s.ResolveObsoletes()
	for _, k := range s.ObsoletingUpdates(om) {
		if len(names) > 0 && !wanted[k.Name] && !anyWanted(om.Obsoleting[k], wanted) {
			continue
		}
		if s.Tx.HasName(k.Name) {
			continue
		}
		e, _ := s.Available.GetByKey(k)
		s.Tx.Add(e.Pkg, pkg.Update)
		for _, n := range om.Obsoleting[k] {
			found[n] = true
			s.PkgResultSet.Obsoleted = append(s.PkgResultSet.Obsoleted, n)
		}
		found[k.Name] = true
	}

	for _, n := range names {
		if !found[n] {
			s.logger.Infof("No updates available for %s", n)
		}
	}
	return nil
}

// SeedInstall adds the best available architecture of each name to the
// transaction. Names nothing provides are logged and skipped.
func (s *Solver) SeedInstall(names ...string) error {
	for _, name := range names {
		archs := s.selector.BestVersionArchs(s.Available, name)
		if len(archs) == 0 {
			s.logger.Infof("No package %s available", name)
			continue
		}
		e, _ := s.Available.Get(name, s.compat.BestArch(archs))

		if inst, ok := s.Installed.GetByName(name); ok {
			if !s.policy.IsInstallOnly(name) {
				s.logger.Infof("Package %s is already installed, use update instead", inst.Pkg.GetFingerPrint())
				continue
			}
			if _, same := s.Installed.Get(name, e.Pkg.Arch); same {
				if err := s.SeedUpdate(name); err != nil {
					return err
				}
				continue
			}
		}
		s.Tx.Add(e.Pkg, pkg.Install)
	}
	return nil
}

// SeedErase marks every installed architecture of each name for removal.
func (s *Solver) SeedErase(names ...string) error {
	for _, name := range names {
		archs := s.Installed.Archs(name)
		if len(archs) == 0 {
			return errors.Wrapf(ErrNotFound, "no package %s installed", name)
		}
		for _, a := range archs {
			e, _ := s.Installed.Get(name, a)
			s.Tx.Add(e.Pkg, pkg.Erase)
		}
	}
	return nil
}

// Solve runs the dependency repair loop over the seeded transaction.
func (s *Solver) Solve(ctx context.Context, checker Checker) error {
	r := &Repairer{
		Tx:        s.Tx,
		Installed: s.Installed,
		Available: s.Available,
		Compat:    s.compat,
		Checker:   checker,
		Logger:    s.logger,
	}
	_, err := r.Resolve(ctx)
	s.Tx.DebugPrintDB(s.logger)
	s.GeneratePkgSets(err)

	var depErr *DepError
	if errors.As(err, &depErr) {
		return depErr
	}
	return err
}

// IsResolved reports whether the last Solve succeeded.
func (s *Solver) IsResolved() bool {
	return s.PkgResultSet.Status == StatusResolved
}

func anyWanted(names []string, wanted map[string]bool) bool {
	for _, n := range names {
		if wanted[n] {
			return true
		}
	}
	return false
}

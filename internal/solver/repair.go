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
	"fmt"

	"github.com/Masterminds/log-go"
	"github.com/pkg/errors"

	"github.com/rancher-sandbox/yumper/internal/arch"
	pkg "github.com/rancher-sandbox/yumper/internal/package"
	"github.com/rancher-sandbox/yumper/internal/rpmver"
)

// Unit is what the checker is handed for every transaction entry: a package
// to lay down, or a removal marker.
type Unit struct {
	Pkg   *pkg.Pkg
	State pkg.State
	Erase bool
}

// Requirement is an unsatisfied requirement reported by the checker.
// Suggested is nil when the checker knows no provider.
type Requirement struct {
	Required  pkg.Capability
	Requiring *pkg.Pkg
	Suggested *pkg.Pkg
}

// Conflict is a pair of units that cannot be installed together.
type Conflict struct {
	Capability pkg.Capability
	A, B       *pkg.Pkg
}

// Problems is the checker's verdict on a set of units.
type Problems struct {
	Requirements []Requirement
	Conflicts    []Conflict
}

// Empty reports whether the units are consistent.
func (p *Problems) Empty() bool {
	return p == nil || (len(p.Requirements) == 0 && len(p.Conflicts) == 0)
}

// Checker reports unsatisfied requirements and conflicts of exactly the
// units it is given. It does not search for solutions.
type Checker interface {
	Check(ctx context.Context, units []Unit) (*Problems, error)
}

// PassKind is the verdict of one repair pass.
type PassKind int

const (
	// PassDone means the checker found no problems.
	PassDone PassKind = iota
	// PassContinue means dependencies were added and nothing failed.
	PassContinue
	// PassFailed means at least one requirement is unresolvable or a
	// conflict was found.
	PassFailed
)

func (k PassKind) String() string {
	switch k {
	case PassDone:
		return "done"
	case PassContinue:
		return "continue"
	}
	return "failed"
}

// PassResult is the outcome of a single repair pass.
type PassResult struct {
	Kind         PassKind
	Added        []pkg.Key
	Unresolvable []string
	Conflicts    []string
}

// Repairer drives a transaction registry to a state the checker accepts, by
// adding the providers of missing requirements. It only ever adds entries:
// nothing a pass added is removed by a later one.
//
// Installed and Available are only read. Provider architectures are always
// chosen against Available, never against the transaction.
type Repairer struct {
	Tx        *PackageSet
	Installed *PackageSet
	Available *PackageSet
	Compat    *arch.Compat
	Checker   Checker
	Logger    log.Logger
}

// Materialize turns the transaction into checker units. AvailableOnly
// entries are left out.
func (r *Repairer) Materialize() []Unit {
	units := []Unit{}
	for _, e := range r.Tx.Entries() {
		switch {
		case e.State == pkg.AvailableOnly:
			continue
		case e.State.IsErase():
			units = append(units, Unit{Pkg: e.Pkg, State: e.State, Erase: true})
		default:
			units = append(units, Unit{Pkg: e.Pkg, State: e.State})
		}
	}
	return units
}

// Pass runs the checker once and patches the transaction with whatever the
// reported problems allow.
func (r *Repairer) Pass(ctx context.Context) (PassResult, error) {
	probs, err := r.Checker.Check(ctx, r.Materialize())
	if err != nil {
		return PassResult{}, errors.Wrap(err, "dependency check failed")
	}
	if probs.Empty() {
		return PassResult{Kind: PassDone}, nil
	}

	res := PassResult{Kind: PassContinue}
	added := map[pkg.Key]bool{}
	for _, req := range probs.Requirements {
		k, ok := r.repair(req)
		if ok {
			added[k] = true
			res.Added = append(res.Added, k)
			continue
		}
		if added[k] {
			// provided by a package this pass already added
			continue
		}
		res.Unresolvable = append(res.Unresolvable,
			fmt.Sprintf("package %s needs %s, this is not available", fingerprint(req.Requiring), req.Required))
	}
	for _, c := range probs.Conflicts {
		res.Conflicts = append(res.Conflicts,
			fmt.Sprintf("package %s conflicts with %s (%s)", fingerprint(c.A), fingerprint(c.B), c.Capability))
	}
	if len(res.Unresolvable) > 0 || len(res.Conflicts) > 0 || len(res.Added) == 0 {
		res.Kind = PassFailed
	}
	return res, nil
}

// Resolve repeats passes until the checker is satisfied. Once a pass fails,
// exactly one more pass is run so the reported problems are complete, and
// the resolution fails whatever that pass finds. There is no pass limit: every continuing pass grows the
// transaction, which is bounded by the known packages.
func (r *Repairer) Resolve(ctx context.Context) (*PackageSet, error) {
	var failed *PassResult
	for pass := 1; ; pass++ {
		res, err := r.Pass(ctx)
		if err != nil {
			return nil, err
		}
		r.Logger.Debugf("dependency pass %d: %s, %d added, %d unresolvable, %d conflicts",
			pass, res.Kind, len(res.Added), len(res.Unresolvable), len(res.Conflicts))

		if failed != nil {
			if res.Kind != PassFailed {
				res = *failed
			}
			return nil, &DepError{Unresolvable: res.Unresolvable, Conflicts: res.Conflicts}
		}
		if res.Kind == PassDone {
			return r.Tx, nil
		}
		if res.Kind == PassFailed {
			failed = &res
		}
	}
}

// repair tries to fix one requirement, returning the key it added.
func (r *Repairer) repair(req Requirement) (pkg.Key, bool) {
	if req.Suggested != nil {
		p := req.Suggested
		if e, ok := r.Available.GetByKey(p.Key()); ok {
			p = e.Pkg
		}
		return r.addDep(p, pkg.UpdateDep)
	}

	if r.erasing(req.Required) && req.Requiring != nil && req.Requiring.IsInstalled() {
		return r.addDep(req.Requiring, pkg.EraseDep)
	}

	if p := r.findProvider(req.Required); p != nil {
		return r.addDep(p, pkg.UpdateDep)
	}
	return pkg.Key{}, false
}

// addDep adds p unless its key is already part of the transaction.
func (r *Repairer) addDep(p *pkg.Pkg, state pkg.State) (pkg.Key, bool) {
	k := p.Key()
	if e, ok := r.Tx.GetByKey(k); ok && e.State != pkg.AvailableOnly {
		r.Logger.Debugf("%s is already in the transaction as %s", k, e.State)
		return k, false
	}
	r.Tx.Add(p, state)
	r.Logger.Debugf("adding %s as %s", p, state)
	return k, true
}

// erasing reports whether some package being erased provides c.
func (r *Repairer) erasing(c pkg.Capability) bool {
	for _, e := range r.Tx.Entries() {
		if e.State.IsErase() && provides(e.Pkg, c) {
			return true
		}
	}
	return false
}

// findProvider looks for a package name providing c in the installed and
// available registries, then picks the best architecture of that name among
// the available ones that provide c.
func (r *Repairer) findProvider(c pkg.Capability) *pkg.Pkg {
	for _, ps := range []*PackageSet{r.Installed, r.Available} {
		for _, e := range ps.Entries() {
			if !provides(e.Pkg, c) {
				continue
			}
			archs := []string{}
			for _, a := range r.Compat.AvailableArchs(r.Available, e.Pkg.Name) {
				if ae, _ := r.Available.Get(e.Pkg.Name, a); provides(ae.Pkg, c) {
					archs = append(archs, a)
				}
			}
			if len(archs) == 0 {
				continue
			}
			if best, ok := r.Available.Get(e.Pkg.Name, r.Compat.BestArch(archs)); ok {
				return best.Pkg
			}
		}
	}
	return nil
}

func provides(p *pkg.Pkg, c pkg.Capability) bool {
	for _, prov := range p.AllProvides() {
		if rpmver.Overlaps(prov, c) {
			return true
		}
	}
	return false
}

func fingerprint(p *pkg.Pkg) string {
	if p == nil {
		return "<unknown>"
	}
	return p.GetFingerPrint()
}

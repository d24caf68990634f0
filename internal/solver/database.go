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
	"sort"

	"github.com/Masterminds/log-go"
	"github.com/pkg/errors"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
	"github.com/rancher-sandbox/yumper/internal/rpmver"
)

// ErrNotFound is returned when a (name, arch) is not in a PackageSet.
var ErrNotFound = errors.New("package not found")

// Entry is a package stored in a PackageSet, together with the reason it is
// there.
type Entry struct {
	Pkg   *pkg.Pkg
	State pkg.State
}

// PackageSet implements a registry of packages with 2 indexes: (name, arch),
// holding one entry per architecture, and name alone, holding the most
// recently added architecture.
//
// Entries are never modified in place: adding a package under an existing
// key, or changing its state, replaces the whole entry. Iteration follows
// the order in which keys were first added.
type PackageSet struct {
	entries map[pkg.Key]Entry
	byName  map[string]pkg.Key
	archs   map[string][]string
	order   []pkg.Key
}

// NewPackageSet creates an empty registry.
func NewPackageSet() *PackageSet {
	return &PackageSet{
		entries: make(map[pkg.Key]Entry),
		byName:  make(map[string]pkg.Key),
		archs:   make(map[string][]string),
	}
}

// Add stores p under its (name, arch), replacing any previous entry. An empty
// state keeps the state of the replaced entry, or AvailableOnly for new keys.
func (ps *PackageSet) Add(p *pkg.Pkg, state pkg.State) {
	k := p.Key()
	old, exists := ps.entries[k]
	if state == "" {
		state = pkg.AvailableOnly
		if exists {
			state = old.State
		}
	}
	if !exists {
		ps.order = append(ps.order, k)
		ps.archs[k.Name] = append(ps.archs[k.Name], k.Arch)
	}
	ps.entries[k] = Entry{Pkg: p, State: state}
	ps.byName[k.Name] = k
}

// Merge adds p following the given policy. With PolicyNewest, a package older
// than or equal to the one already stored under the same key is dropped.
// It reports whether p was stored.
func (ps *PackageSet) Merge(p *pkg.Pkg, state pkg.State, policy PkgPolicy) bool {
	if policy == PolicyNewest {
		if old, ok := ps.entries[p.Key()]; ok && !rpmver.Newer(p, old.Pkg) {
			return false
		}
	}
	ps.Add(p, state)
	return true
}

// SetState re-tags the entry stored under k.
func (ps *PackageSet) SetState(k pkg.Key, state pkg.State) error {
	old, ok := ps.entries[k]
	if !ok {
		return errors.Wrapf(ErrNotFound, "cannot set state of %s", k)
	}
	if !state.Valid() {
		return errors.Errorf("unknown state %q for %s", state, k)
	}
	ps.entries[k] = Entry{Pkg: old.Pkg, State: state}
	return nil
}

// Get returns the entry stored for (name, arch).
func (ps *PackageSet) Get(name, arch string) (Entry, bool) {
	e, ok := ps.entries[pkg.Key{Name: name, Arch: arch}]
	return e, ok
}

// GetByKey returns the entry stored for k.
func (ps *PackageSet) GetByKey(k pkg.Key) (Entry, bool) {
	e, ok := ps.entries[k]
	return e, ok
}

// GetByName returns the most recently added entry called name.
func (ps *PackageSet) GetByName(name string) (Entry, bool) {
	k, ok := ps.byName[name]
	if !ok {
		return Entry{}, false
	}
	return ps.entries[k], true
}

// Has reports whether (name, arch) is stored.
func (ps *PackageSet) Has(name, arch string) bool {
	_, ok := ps.entries[pkg.Key{Name: name, Arch: arch}]
	return ok
}

// HasName reports whether any architecture of name is stored.
func (ps *PackageSet) HasName(name string) bool {
	_, ok := ps.byName[name]
	return ok
}

// Archs returns the architectures stored for name, in insertion order.
func (ps *PackageSet) Archs(name string) []string {
	return append([]string(nil), ps.archs[name]...)
}

// Names returns all package names, sorted.
func (ps *PackageSet) Names() []string {
	names := make([]string, 0, len(ps.byName))
	for n := range ps.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Keys returns all (name, arch) pairs in insertion order.
func (ps *PackageSet) Keys() []pkg.Key {
	return append([]pkg.Key(nil), ps.order...)
}

// Entries returns all entries in insertion order.
func (ps *PackageSet) Entries() []Entry {
	out := make([]Entry, 0, len(ps.order))
	for _, k := range ps.order {
		out = append(out, ps.entries[k])
	}
	return out
}

// InState returns the entries tagged with any of the given states, in
// insertion order.
func (ps *PackageSet) InState(states ...pkg.State) []Entry {
	out := []Entry{}
	for _, e := range ps.Entries() {
		for _, s := range states {
			if e.State == s {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Len returns the number of (name, arch) entries.
func (ps *PackageSet) Len() int {
	return len(ps.entries)
}

// Clone returns an independent copy of the registry. Packages are shared,
// as they are immutable.
func (ps *PackageSet) Clone() *PackageSet {
	c := NewPackageSet()
	for _, k := range ps.order {
		e := ps.entries[k]
		c.Add(e.Pkg, e.State)
	}
	for n, k := range ps.byName {
		c.byName[n] = k
	}
	return c
}

// DebugPrintDB logs every entry of ps at debug level.
func (ps *PackageSet) DebugPrintDB(logger log.Logger) {
	logger.Debugf("%d entries", ps.Len())
	for _, e := range ps.Entries() {
		logger.Debugf("%s\t%s", e.Pkg, e.State)
	}
}

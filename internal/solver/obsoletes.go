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
	pkg "github.com/rancher-sandbox/yumper/internal/package"
	"github.com/rancher-sandbox/yumper/internal/rpmver"
)

// ObsoleteMap holds both directions of the obsoletes relation between a
// source registry and the installed registry. It is rebuilt on every
// resolution.
type ObsoleteMap struct {
	Obsoleting map[pkg.Key][]string // obsoleting package -> names it obsoletes
	Obsoleted  map[string][]pkg.Key // obsoleted name -> packages obsoleting it

	obsoletingOrder []pkg.Key
	obsoletedOrder  []string
}

func newObsoleteMap() *ObsoleteMap {
	return &ObsoleteMap{
		Obsoleting: make(map[pkg.Key][]string),
		Obsoleted:  make(map[string][]pkg.Key),
	}
}

// ObsoletingKeys returns the obsoleting packages in the order they were found.
func (om *ObsoleteMap) ObsoletingKeys() []pkg.Key {
	return append([]pkg.Key(nil), om.obsoletingOrder...)
}

// ObsoletedNames returns the obsoleted names in the order they were found.
func (om *ObsoleteMap) ObsoletedNames() []string {
	return append([]string(nil), om.obsoletedOrder...)
}

// Len returns the number of obsoleting packages.
func (om *ObsoleteMap) Len() int {
	return len(om.obsoletingOrder)
}

func (om *ObsoleteMap) add(k pkg.Key, name string) {
	for _, n := range om.Obsoleting[k] {
		if n == name {
			return
		}
	}
	if _, ok := om.Obsoleting[k]; !ok {
		om.obsoletingOrder = append(om.obsoletingOrder, k)
	}
	if _, ok := om.Obsoleted[name]; !ok {
		om.obsoletedOrder = append(om.obsoletedOrder, name)
	}
	om.Obsoleting[k] = append(om.Obsoleting[k], name)
	om.Obsoleted[name] = append(om.Obsoleted[name], k)
}

// ObsoleteMatches tells whether a package whose own version is own, declaring
// obsoletes c, obsoletes an installed package named c.Name.
//
// An unversioned entry always matches. A versioned entry compares own
// against the EVR of the entry with the entry's operator. Malformed entries
// never match.
func ObsoleteMatches(own pkg.EVR, c pkg.Capability) bool {
	if !c.Valid() {
		return false
	}
	if !c.Versioned() {
		return true
	}
	return rpmver.Accept(c.Op, rpmver.Compare(own, c.EVR))
}

// ResolveObsoletes builds the obsoletes map for the given keys of available,
// against what is installed.
func ResolveObsoletes(keys []pkg.Key, available, installed *PackageSet) *ObsoleteMap {
	om := newObsoleteMap()
	for _, k := range keys {
		e, ok := available.GetByKey(k)
		if !ok {
			continue
		}
		for _, c := range e.Pkg.Obsoletes {
			if !installed.HasName(c.Name) {
				continue
			}
			if ObsoleteMatches(e.Pkg.EVR(), c) {
				om.add(k, c.Name)
			}
		}
	}
	return om
}

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
	"path"
)

// PkgPolicy decides what happens when a source lists the same (name, arch)
// more than once.
type PkgPolicy string

const (
	// PolicyNewest keeps the newest version.
	PolicyNewest PkgPolicy = "newest"
	// PolicyLast keeps the last one seen.
	PolicyLast PkgPolicy = "last"
)

// DefaultInstallOnly are packages that are installed side by side instead of
// being updated.
var DefaultInstallOnly = []string{"kernel", "kernel-smp", "kernel-enterprise", "kernel-bigmem", "kernel-BOOT"}

// Policy holds the knobs of a resolution. It is passed by value and never
// changes during a resolution.
type Policy struct {
	ExactArch   bool
	PkgPolicy   PkgPolicy
	InstallOnly []string
	Exclude     []string
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		ExactArch:   true,
		PkgPolicy:   PolicyNewest,
		InstallOnly: append([]string(nil), DefaultInstallOnly...),
	}
}

// IsInstallOnly reports whether name must never be updated in place.
func (p Policy) IsInstallOnly(name string) bool {
	for _, n := range p.InstallOnly {
		if n == name {
			return true
		}
	}
	return false
}

// Excluded reports whether name matches one of the exclude globs.
func (p Policy) Excluded(name string) bool {
	for _, pattern := range p.Exclude {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

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

package pkg

import (
	"fmt"
	"strings"
)

// InstalledLocation is the location of every package that comes from the
// installed rpm database.
const InstalledLocation = "installed"

// State records why a package is part of a PackageSet. It never describes the
// package contents.
type State string

const (
	Install         State = "install"
	Update          State = "update"
	Erase           State = "erase"
	InstallAsUpdate State = "install-as-update"
	UpdateDep       State = "update-dependency"
	EraseDep        State = "erase-dependency"
	AvailableOnly   State = "available-only"
)

// States lists the full tag vocabulary.
var States = []State{Install, Update, Erase, InstallAsUpdate, UpdateDep, EraseDep, AvailableOnly}

// Valid reports whether s is one of the known tags.
func (s State) Valid() bool {
	for _, v := range States {
		if s == v {
			return true
		}
	}
	return false
}

// IsErase reports whether the tag removes a package from the system.
func (s State) IsErase() bool {
	return s == Erase || s == EraseDep
}

// IsInstall reports whether the tag brings a package onto the system.
func (s State) IsInstall() bool {
	switch s {
	case Install, Update, InstallAsUpdate, UpdateDep:
		return true
	}
	return false
}

// Key is the (name, arch) pair that identifies a package inside a
// PackageSet.
type Key struct {
	Name string
	Arch string
}

func (k Key) String() string {
	return fmt.Sprintf("%s.%s", k.Name, k.Arch)
}

// Pkg is the minimum object the resolver reasons about: a package build
// identified by its NEVRA, where it can be retrieved from, and the
// capabilities declared in its header.
// A Pkg is never mutated once it has been added to a PackageSet.
type Pkg struct {
	Name     string
	Arch     string
	Epoch    string
	Version  string
	Release  string
	Location string // InstalledLocation, or path/URL of the rpm
	OriginID string // id of the source that produced this record

	Provides  []Capability `json:",omitempty" yaml:",omitempty"`
	Requires  []Capability `json:",omitempty" yaml:",omitempty"`
	Obsoletes []Capability `json:",omitempty" yaml:",omitempty"`
	Conflicts []Capability `json:",omitempty" yaml:",omitempty"`
}

// NewPkg creates a package without capabilities. An empty epoch is stored
// as "0".
func NewPkg(name, epoch, version, release, arch, location, origin string) *Pkg {
	return &Pkg{
		Name:     name,
		Arch:     arch,
		Epoch:    NormalizeEpoch(epoch),
		Version:  version,
		Release:  release,
		Location: location,
		OriginID: origin,
	}
}

// NewPkgMock creates an installable package living in "ourrepo".
// Useful for testing.
func NewPkgMock(name, evr, arch string) *Pkg {
	e := ParseEVR(evr)
	return NewPkg(name, e.Epoch, e.Version, e.Release, arch,
		fmt.Sprintf("%s-%s-%s.%s.rpm", name, e.Version, e.Release, arch), "ourrepo")
}

// NewInstalledPkgMock creates a package as read from the rpm database.
// Useful for testing.
func NewInstalledPkgMock(name, evr, arch string) *Pkg {
	e := ParseEVR(evr)
	return NewPkg(name, e.Epoch, e.Version, e.Release, arch, InstalledLocation, InstalledLocation)
}

// Key returns the (name, arch) of p.
func (p *Pkg) Key() Key {
	return Key{Name: p.Name, Arch: p.Arch}
}

// EVR returns the orderable part of p.
func (p *Pkg) EVR() EVR {
	return EVR{Epoch: NormalizeEpoch(p.Epoch), Version: p.Version, Release: p.Release}
}

// IsInstalled reports whether p was read from the installed database.
func (p *Pkg) IsInstalled() bool {
	return p.Location == InstalledLocation
}

// GetFingerPrint returns the NEVRA of the package, epoch included.
func (p *Pkg) GetFingerPrint() string {
	return fmt.Sprintf("%s-%s:%s-%s.%s", p.Name, NormalizeEpoch(p.Epoch), p.Version, p.Release, p.Arch)
}

func (p *Pkg) String() string {
	return fmt.Sprintf("%s (%s)", p.GetFingerPrint(), p.OriginID)
}

// AllProvides returns the declared provides plus the implicit
// "name = epoch:version-release" every rpm provides.
func (p *Pkg) AllProvides() []Capability {
	self := Capability{Name: p.Name, Op: OpEQ, EVR: p.EVR()}
	for _, c := range p.Provides {
		if c.Name == self.Name && c.Op == self.Op && c.EVR == self.EVR {
			return p.Provides
		}
	}
	return append([]Capability{self}, p.Provides...)
}

// EVR is the epoch, version and release of a package.
type EVR struct {
	Epoch   string
	Version string
	Release string
}

// ParseEVR parses "[epoch:]version[-release]". The epoch defaults to "0".
func ParseEVR(s string) EVR {
	e := EVR{Epoch: "0"}
	if i := strings.Index(s, ":"); i >= 0 {
		e.Epoch = NormalizeEpoch(s[:i])
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "-"); i >= 0 {
		e.Version, e.Release = s[:i], s[i+1:]
	} else {
		e.Version = s
	}
	return e
}

func (e EVR) String() string {
	s := fmt.Sprintf("%s:%s", NormalizeEpoch(e.Epoch), e.Version)
	if e.Release != "" {
		s += "-" + e.Release
	}
	return s
}

// NormalizeEpoch maps a missing epoch to "0".
func NormalizeEpoch(epoch string) string {
	epoch = strings.TrimSpace(epoch)
	if epoch == "" || strings.EqualFold(epoch, "none") {
		return "0"
	}
	return epoch
}

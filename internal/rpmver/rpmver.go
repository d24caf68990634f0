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
Package rpmver orders packages by epoch, version and release.

The label comparison itself is the one rpm uses, provided by go-rpm. This
package only normalises epochs before handing labels over, and maps the
three-way result onto the relational operators used by capabilities.
*/
package rpmver

import (
	"strconv"

	"github.com/cavaliercoder/go-rpm/version"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
)

// label adapts an EVR to go-rpm's version.Interface. Names are never
// compared.
type label struct {
	epoch   int
	version string
	release string
}

var _ version.Interface = label{}

func (l label) Name() string    { return "" }
func (l label) Epoch() int      { return l.epoch }
func (l label) Version() string { return l.version }
func (l label) Release() string { return l.release }

func newLabel(e pkg.EVR) label {
	epoch, err := strconv.Atoi(pkg.NormalizeEpoch(e.Epoch))
	if err != nil || epoch < 0 {
		epoch = 0
	}
	return label{epoch: epoch, version: e.Version, release: e.Release}
}

// Compare returns -1, 0 or 1 when a is older, equal or newer than b.
func Compare(a, b pkg.EVR) int {
	c := version.Compare(newLabel(a), newLabel(b))
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	}
	return 0
}

// ComparePkgs compares the EVR of two packages, ignoring name and arch.
func ComparePkgs(a, b *pkg.Pkg) int {
	return Compare(a.EVR(), b.EVR())
}

// Newer reports whether a is strictly newer than b.
func Newer(a, b *pkg.Pkg) bool {
	return ComparePkgs(a, b) > 0
}

// Accept tells whether a comparison result satisfies op.
// An unknown operator never accepts.
func Accept(op pkg.Op, cmp int) bool {
	switch op {
	case pkg.OpGT:
		return cmp > 0
	case pkg.OpGE:
		return cmp >= 0
	case pkg.OpEQ, pkg.OpEQ2:
		return cmp == 0
	case pkg.OpLE:
		return cmp <= 0
	case pkg.OpLT:
		return cmp < 0
	}
	return false
}

type sense int

const (
	less sense = 1 << iota
	greater
	equal
)

func senseOf(op pkg.Op) sense {
	switch op {
	case pkg.OpLT:
		return less
	case pkg.OpLE:
		return less | equal
	case pkg.OpEQ, pkg.OpEQ2:
		return equal
	case pkg.OpGE:
		return greater | equal
	case pkg.OpGT:
		return greater
	}
	return 0
}

// Overlaps reports whether a provided capability satisfies a required one,
// following rpm's range overlap rules. Unversioned capabilities on either
// side only need matching names. A missing release on the requiring side
// matches any release.
func Overlaps(provide, require pkg.Capability) bool {
	if provide.Name != require.Name {
		return false
	}
	if !provide.Versioned() || !require.Versioned() {
		return true
	}
	p, r := provide.EVR, require.EVR
	if r.Release == "" {
		p.Release = ""
	}
	cmp := Compare(p, r)
	ps, rs := senseOf(provide.Op), senseOf(require.Op)
	switch {
	case cmp < 0:
		return ps&greater != 0 || rs&less != 0
	case cmp > 0:
		return ps&less != 0 || rs&greater != 0
	}
	return (ps&equal != 0 && rs&equal != 0) ||
		(ps&less != 0 && rs&less != 0) ||
		(ps&greater != 0 && rs&greater != 0)
}

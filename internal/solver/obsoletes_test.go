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
	"testing"

	"github.com/stretchr/testify/assert"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
)

func TestObsoleteMatches(t *testing.T) {
	own := pkg.ParseEVR("1.0-1")

	for _, tcase := range []struct {
		name     string
		obsolete pkg.Capability
		expected bool
	}{
		{name: "unversioned", obsolete: pkg.Capability{Name: "foo"}, expected: true},
		{name: "ge on the boundary", obsolete: pkg.MustParseCapabilities("foo >= 1.0-1")[0], expected: true},
		{name: "gt on the boundary", obsolete: pkg.MustParseCapabilities("foo > 1.0-1")[0], expected: false},
		{name: "lt above", obsolete: pkg.MustParseCapabilities("foo < 2.0")[0], expected: true},
		{name: "eq", obsolete: pkg.MustParseCapabilities("foo = 1.0-1")[0], expected: true},
		{name: "double eq", obsolete: pkg.MustParseCapabilities("foo == 1.0-2")[0], expected: false},
		{name: "le below", obsolete: pkg.MustParseCapabilities("foo <= 0.9")[0], expected: false},
		{name: "epoch", obsolete: pkg.MustParseCapabilities("foo < 1:0.1")[0], expected: true},
		{name: "operator without version", obsolete: pkg.Capability{Name: "foo", Op: pkg.OpGE}, expected: false},
		{name: "unknown operator", obsolete: pkg.Capability{Name: "foo", Op: "~>", EVR: pkg.ParseEVR("1.0")}, expected: false},
	} {
		t.Run(tcase.name, func(t *testing.T) {
			assert.Equal(t, tcase.expected, ObsoleteMatches(own, tcase.obsolete))
		})
	}
}

func TestResolveObsoletes(t *testing.T) {
	installed := newSet(
		pkg.NewInstalledPkgMock("oldfoo", "1.0-1", "i386"),
		pkg.NewInstalledPkgMock("oldbar", "1.0-1", "i386"),
		pkg.NewInstalledPkgMock("keepme", "1.0-1", "i386"),
	)
	available := newSet(
		withCaps(pkg.NewPkgMock("newfoo", "2.0-1", "i386"), nil, nil,
			[]string{"oldfoo", "notinstalled", "keepme > 2.0-1"}, nil),
		withCaps(pkg.NewPkgMock("newbar", "2.0-1", "noarch"), nil, nil,
			[]string{"oldbar <= 2.0-1", "oldfoo", "oldfoo"}, nil),
		pkg.NewPkgMock("plain", "1.0-1", "i386"),
	)

	om := ResolveObsoletes(available.Keys(), available, installed)

	newfoo := pkg.Key{Name: "newfoo", Arch: "i386"}
	newbar := pkg.Key{Name: "newbar", Arch: "noarch"}
	is := assert.New(t)
	is.Equal(2, om.Len())
	is.Equal([]pkg.Key{newfoo, newbar}, om.ObsoletingKeys())
	is.Equal([]string{"oldfoo", "oldbar"}, om.ObsoletedNames())
	is.Equal([]string{"oldfoo"}, om.Obsoleting[newfoo])
	is.Equal([]string{"oldbar", "oldfoo"}, om.Obsoleting[newbar])
	is.Equal([]pkg.Key{newfoo, newbar}, om.Obsoleted["oldfoo"])
	is.Equal([]pkg.Key{newbar}, om.Obsoleted["oldbar"])
	is.NotContains(om.Obsoleted, "keepme")

	om = ResolveObsoletes([]pkg.Key{newbar, {Name: "ghost", Arch: "i386"}}, available, installed)
	is.Equal([]pkg.Key{newbar}, om.ObsoletingKeys())
}

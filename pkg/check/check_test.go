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

package check

import (
	"bytes"
	"context"
	"testing"

	"github.com/Masterminds/log-go"
	logcli "github.com/Masterminds/log-go/impl/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancher-sandbox/yumper/internal/arch"
	pkg "github.com/rancher-sandbox/yumper/internal/package"
	"github.com/rancher-sandbox/yumper/internal/solver"
)

func newTestLogger() (log.Logger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	logger := logcli.NewStandard()
	logger.InfoOut = buf
	logger.WarnOut = buf
	logger.ErrorOut = buf
	logger.DebugOut = buf
	logger.Level = log.DebugLevel
	return logger, buf
}

func newSet(pkgs ...*pkg.Pkg) *solver.PackageSet {
	ps := solver.NewPackageSet()
	for _, p := range pkgs {
		ps.Add(p, pkg.AvailableOnly)
	}
	return ps
}

func withRequires(p *pkg.Pkg, caps ...string) *pkg.Pkg {
	p.Requires = pkg.MustParseCapabilities(caps...)
	return p
}

func withConflicts(p *pkg.Pkg, caps ...string) *pkg.Pkg {
	p.Conflicts = pkg.MustParseCapabilities(caps...)
	return p
}

func newChecker(installed, available []*pkg.Pkg) (*Checker, *bytes.Buffer) {
	logger, buf := newTestLogger()
	return New(newSet(installed...), newSet(available...), arch.New("i686"), logger), buf
}

func TestCheckConsistent(t *testing.T) {
	c, buf := newChecker(
		[]*pkg.Pkg{
			withRequires(pkg.NewInstalledPkgMock("bash", "3.0-1", "i386"), "libtermcap"),
			pkg.NewInstalledPkgMock("libtermcap", "2.0-1", "i386"),
		}, nil)

	probs, err := c.Check(context.Background(), []solver.Unit{
		{Pkg: withRequires(pkg.NewPkgMock("bash", "3.1-1", "i386"), "libtermcap >= 2.0"), State: pkg.Update},
	})
	require.NoError(t, err)
	assert.True(t, probs.Empty())
	assert.Contains(t, buf.String(), "checked 1 units: 0 requirements, 0 conflicts")

	// a second check of the same units is still clean
	probs, err = c.Check(context.Background(), []solver.Unit{
		{Pkg: withRequires(pkg.NewPkgMock("bash", "3.1-1", "i386"), "libtermcap >= 2.0"), State: pkg.Update},
	})
	require.NoError(t, err)
	assert.True(t, probs.Empty())
}

func TestCheckSuggestsBestArch(t *testing.T) {
	libi386 := pkg.NewPkgMock("lib", "2.0-1", "i386")
	libi686 := pkg.NewPkgMock("lib", "2.0-1", "i686")
	app := withRequires(pkg.NewPkgMock("app", "1.0-1", "i386"), "lib >= 2.0")
	c, _ := newChecker(nil, []*pkg.Pkg{libi386, libi686})

	probs, err := c.Check(context.Background(), []solver.Unit{{Pkg: app, State: pkg.Install}})
	require.NoError(t, err)
	require.Len(t, probs.Requirements, 1)
	req := probs.Requirements[0]
	assert.Equal(t, "lib >= 0:2.0", req.Required.String())
	assert.Same(t, app, req.Requiring)
	assert.Same(t, libi686, req.Suggested)
}

func TestCheckNoProvider(t *testing.T) {
	app := withRequires(pkg.NewPkgMock("app", "1.0-1", "i386"), "lib >= 3.0")
	c, _ := newChecker(nil, []*pkg.Pkg{pkg.NewPkgMock("lib", "2.0-1", "i386")})

	probs, err := c.Check(context.Background(), []solver.Unit{{Pkg: app, State: pkg.Install}})
	require.NoError(t, err)
	require.Len(t, probs.Requirements, 1)
	assert.Nil(t, probs.Requirements[0].Suggested)
}

func TestCheckUpdateBreaksInstalled(t *testing.T) {
	app := withRequires(pkg.NewInstalledPkgMock("app", "1.0-1", "i386"), "lib = 1.0")
	c, _ := newChecker([]*pkg.Pkg{app, pkg.NewInstalledPkgMock("lib", "1.0-1", "i386")}, nil)

	probs, err := c.Check(context.Background(), []solver.Unit{
		{Pkg: pkg.NewPkgMock("lib", "2.0-1", "i386"), State: pkg.Update},
	})
	require.NoError(t, err)
	require.Len(t, probs.Requirements, 1)
	assert.Same(t, app, probs.Requirements[0].Requiring)
	assert.Nil(t, probs.Requirements[0].Suggested)
}

func TestCheckEraseBreaksDependents(t *testing.T) {
	lib := pkg.NewInstalledPkgMock("lib", "1.0-1", "i386")
	app := withRequires(pkg.NewInstalledPkgMock("app", "1.0-1", "i386"), "lib")
	other := withRequires(pkg.NewInstalledPkgMock("other", "1.0-1", "i386"), "missing")
	c, _ := newChecker([]*pkg.Pkg{lib, app, other}, []*pkg.Pkg{pkg.NewPkgMock("lib", "1.0-1", "i386")})

	probs, err := c.Check(context.Background(), []solver.Unit{{Pkg: lib, State: pkg.Erase, Erase: true}})
	require.NoError(t, err)
	// other was already broken before the transaction, it is not reported
	require.Len(t, probs.Requirements, 1)
	assert.Same(t, app, probs.Requirements[0].Requiring)
	assert.Nil(t, probs.Requirements[0].Suggested)
}

func TestCheckInstallAsUpdateKeepsOld(t *testing.T) {
	module := withRequires(pkg.NewInstalledPkgMock("kmod", "1.0-1", "i686"), "kernel = 1.0-1")
	c, _ := newChecker([]*pkg.Pkg{module, pkg.NewInstalledPkgMock("kernel", "1.0-1", "i686")}, nil)

	probs, err := c.Check(context.Background(), []solver.Unit{
		{Pkg: pkg.NewPkgMock("kernel", "2.0-1", "i686"), State: pkg.InstallAsUpdate},
	})
	require.NoError(t, err)
	assert.True(t, probs.Empty())
}

func TestCheckConflicts(t *testing.T) {
	bar := pkg.NewInstalledPkgMock("bar", "1.0-1", "i386")
	qux := withConflicts(pkg.NewInstalledPkgMock("qux", "1.0-1", "i386"), "baz")
	foo := withConflicts(pkg.NewPkgMock("foo", "1.0-1", "i386"), "bar < 2.0")
	baz := pkg.NewPkgMock("baz", "1.0-1", "i386")
	x := withConflicts(pkg.NewPkgMock("x", "1.0-1", "i386"), "y")
	y := withConflicts(pkg.NewPkgMock("y", "1.0-1", "i386"), "x")
	c, _ := newChecker([]*pkg.Pkg{bar, qux}, nil)

	probs, err := c.Check(context.Background(), []solver.Unit{
		{Pkg: foo, State: pkg.Install},
		{Pkg: baz, State: pkg.Install},
		{Pkg: x, State: pkg.Install},
		{Pkg: y, State: pkg.Install},
	})
	require.NoError(t, err)
	assert.Empty(t, probs.Requirements)
	require.Len(t, probs.Conflicts, 3)

	assert.Same(t, foo, probs.Conflicts[0].A)
	assert.Same(t, bar, probs.Conflicts[0].B)
	assert.Equal(t, "bar < 0:2.0", probs.Conflicts[0].Capability.String())

	assert.Same(t, baz, probs.Conflicts[1].A)
	assert.Same(t, qux, probs.Conflicts[1].B)

	assert.Same(t, x, probs.Conflicts[2].A)
	assert.Same(t, y, probs.Conflicts[2].B)
}

func TestCheckObsoletedLeaveTheSystem(t *testing.T) {
	old := withConflicts(pkg.NewInstalledPkgMock("oldtool", "1.0-1", "i386"), "newtool")
	newtool := pkg.NewPkgMock("newtool", "2.0-1", "i386")
	newtool.Obsoletes = pkg.MustParseCapabilities("oldtool < 2.0")
	c, _ := newChecker([]*pkg.Pkg{old}, nil)

	probs, err := c.Check(context.Background(), []solver.Unit{{Pkg: newtool, State: pkg.Update}})
	require.NoError(t, err)
	assert.True(t, probs.Empty())
}

func TestCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := newChecker(nil, nil)
	_, err := c.Check(ctx, nil)
	assert.Equal(t, context.Canceled, err)
}

func TestCheckerDrivesRepair(t *testing.T) {
	installed := []*pkg.Pkg{pkg.NewInstalledPkgMock("bash", "3.0-1", "i386")}
	available := []*pkg.Pkg{
		withRequires(pkg.NewPkgMock("bash", "3.1-1", "i386"), "libtermcap"),
		pkg.NewPkgMock("libtermcap", "2.0-1", "i386"),
	}
	c, _ := newChecker(installed, available)
	logger, _ := newTestLogger()

	tx := solver.NewPackageSet()
	tx.Add(available[0], pkg.Update)
	r := &solver.Repairer{
		Tx:        tx,
		Installed: c.Installed,
		Available: c.Available,
		Compat:    c.Compat,
		Checker:   c,
		Logger:    logger,
	}
	out, err := r.Resolve(context.Background())
	require.NoError(t, err)
	e, ok := out.Get("libtermcap", "i386")
	require.True(t, ok)
	assert.Equal(t, pkg.UpdateDep, e.State)
}

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

// Package rpmdb loads the installed package database.
package rpmdb

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/Masterminds/log-go"
	securejoin "github.com/cyphar/filepath-securejoin"
	rpmdb "github.com/knqyf263/go-rpmdb/pkg"
	"github.com/pkg/errors"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
	"github.com/rancher-sandbox/yumper/internal/solver"
)

// ErrNoDatabase is returned when no rpm database exists under the install
// root.
var ErrNoDatabase = errors.New("no rpm database found")

// DefaultPaths are the database locations tried, relative to the install
// root.
var DefaultPaths = []string{
	"var/lib/rpm/rpmdb.sqlite",
	"usr/lib/sysimage/rpm/rpmdb.sqlite",
	"var/lib/rpm/Packages.db",
	"var/lib/rpm/Packages",
}

// Database is an open rpm database. *rpmdb.RpmDB implements it.
type Database interface {
	ListPackages() ([]*rpmdb.PackageInfo, error)
	Close() error
}

// Opener opens the database file at path.
type Opener func(path string) (Database, error)

// Open opens path with go-rpmdb.
func Open(path string) (Database, error) {
	db, err := rpmdb.Open(path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Loader reads the installed packages of the system found at Root.
type Loader struct {
	Root   string
	Paths  []string
	Open   Opener
	Logger log.Logger
}

// NewLoader returns a Loader for the system installed under root.
func NewLoader(root string, logger log.Logger) *Loader {
	return &Loader{
		Root:   root,
		Paths:  DefaultPaths,
		Open:   Open,
		Logger: logger,
	}
}

// LoadInstalled reads the first database found. The returned registry holds
// one entry per (name, arch), the newest when several versions are installed.
func (l *Loader) LoadInstalled(ctx context.Context) (*solver.PackageSet, error) {
	for _, rel := range l.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := securejoin.SecureJoin(l.Root, rel)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot resolve %s under %s", rel, l.Root)
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}

		l.Logger.Debugf("reading rpm database %s", path)
		db, err := l.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot open rpm database %s", path)
		}
		infos, err := db.ListPackages()
		db.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "cannot list packages of %s", path)
		}
		return FromPackageInfos(infos, l.Logger), nil
	}
	return nil, errors.Wrapf(ErrNoDatabase, "under %s", l.Root)
}

// FromPackageInfos converts database entries into an installed registry.
// gpg-pubkey pseudo packages are skipped.
func FromPackageInfos(infos []*rpmdb.PackageInfo, logger log.Logger) *solver.PackageSet {
	ps := solver.NewPackageSet()
	for _, info := range infos {
		if info.Name == "gpg-pubkey" {
			continue
		}
		p := pkg.NewPkg(info.Name, strconv.Itoa(info.EpochNum()), info.Version, info.Release, info.Arch,
			pkg.InstalledLocation, pkg.InstalledLocation)
		p.Provides = parseAll(info.Provides, p, logger)
		for _, c := range parseAll(info.Requires, p, logger) {
			if !strings.HasPrefix(c.Name, "rpmlib(") {
				p.Requires = append(p.Requires, c)
			}
		}
		if !ps.Merge(p, pkg.AvailableOnly, solver.PolicyNewest) {
			logger.Debugf("%s: a newer version of %s is installed", p.GetFingerPrint(), p.Key())
		}
	}
	return ps
}

func parseAll(caps []string, p *pkg.Pkg, logger log.Logger) []pkg.Capability {
	var out []pkg.Capability
	for _, s := range caps {
		c, err := pkg.ParseCapability(s)
		if err != nil {
			logger.Warnf("%s: skipping capability: %s", p.GetFingerPrint(), err)
			continue
		}
		out = append(out, c)
	}
	return out
}

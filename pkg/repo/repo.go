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

package repo

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/log-go"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
	"github.com/rancher-sandbox/yumper/internal/solver"
)

// Source is a local repository: either a directory with repodata/ or a
// plain directory of rpm files.
type Source struct {
	ID      string
	Dir     string
	Exclude []string
}

// HeaderLoader reads the header of one rpm file.
type HeaderLoader interface {
	LoadHeader(ctx context.Context, location, origin string) (*pkg.Pkg, error)
}

// Loader builds package sets out of sources.
type Loader struct {
	Policy  solver.Policy
	Headers HeaderLoader
	Logger  log.Logger
}

// NewLoader returns a Loader that reads rpm headers with headers when a
// source carries no metadata.
func NewLoader(policy solver.Policy, headers HeaderLoader, logger log.Logger) *Loader {
	return &Loader{Policy: policy, Headers: headers, Logger: logger}
}

// LoadFromSource returns the packages of src. repodata/repomd.xml is used
// when present, then repodata/primary.xml[.gz], and the rpm files in the
// directory otherwise.
func (l *Loader) LoadFromSource(ctx context.Context, src Source) (*solver.PackageSet, error) {
	if src.ID == "" {
		return nil, errors.Errorf("source %s has no id", src.Dir)
	}
	fi, err := os.Stat(src.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load source %s", src.ID)
	}
	if !fi.IsDir() {
		return nil, errors.Errorf("cannot load source %s: %s is not a directory", src.ID, src.Dir)
	}

	primary, err := l.primaryPath(src)
	if err != nil {
		return nil, err
	}
	if primary != "" {
		l.Logger.Debugf("loading source %s from %s", src.ID, primary)
		md, err := LoadPrimary(primary)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot load source %s", src.ID)
		}
		return l.fromMetadata(src, md)
	}

	l.Logger.Debugf("loading source %s from rpm headers in %s", src.ID, src.Dir)
	return l.fromDirectory(ctx, src)
}

// LoadAll loads every source concurrently. Packages are merged in the
// order the sources are given, so with PolicyLast later sources win.
func (l *Loader) LoadAll(ctx context.Context, srcs []Source) (*solver.PackageSet, error) {
	sets := make([]*solver.PackageSet, len(srcs))
	g, ctx := errgroup.WithContext(ctx)
	for i := range srcs {
		i := i
		g.Go(func() error {
			ps, err := l.LoadFromSource(ctx, srcs[i])
			if err != nil {
				return err
			}
			sets[i] = ps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := solver.NewPackageSet()
	for _, ps := range sets {
		for _, e := range ps.Entries() {
			all.Merge(e.Pkg, pkg.AvailableOnly, l.Policy.PkgPolicy)
		}
	}
	return all, nil
}

func (l *Loader) primaryPath(src Source) (string, error) {
	repomd, err := securejoin.SecureJoin(src.Dir, "repodata/repomd.xml")
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(repomd); err == nil {
		href, err := LoadRepoMd(repomd)
		if err != nil {
			return "", errors.Wrapf(err, "cannot load source %s", src.ID)
		}
		return securejoin.SecureJoin(src.Dir, href)
	}
	for _, name := range []string{"repodata/primary.xml.gz", "repodata/primary.xml"} {
		p, err := securejoin.SecureJoin(src.Dir, name)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func (l *Loader) fromMetadata(src Source, md *Metadata) (*solver.PackageSet, error) {
	ps := solver.NewPackageSet()
	for i, mp := range md.Packages {
		if err := mp.Validate(); err != nil {
			l.Logger.Warnf("skipping entry %d of source %s: %s", i, src.ID, err)
			continue
		}
		p := mp.Pkg(src.ID)
		location, err := securejoin.SecureJoin(src.Dir, mp.Location.Href)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot resolve location of %s", p.GetFingerPrint())
		}
		p.Location = location
		l.add(ps, src, p)
	}
	return ps, nil
}

func (l *Loader) fromDirectory(ctx context.Context, src Source) (*solver.PackageSet, error) {
	files := []string{}
	err := filepath.WalkDir(src.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".rpm") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load source %s", src.ID)
	}

	ps := solver.NewPackageSet()
	for _, f := range files {
		p, err := l.Headers.LoadHeader(ctx, f, src.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// A damaged header only costs this one package.
			l.Logger.Warnf("skipping %s: %s", f, err)
			continue
		}
		l.add(ps, src, p)
	}
	return ps, nil
}

func (l *Loader) add(ps *solver.PackageSet, src Source, p *pkg.Pkg) {
	if p.Arch == "src" || p.Arch == "nosrc" {
		return
	}
	excluded := solver.Policy{Exclude: src.Exclude}.Excluded(p.Name)
	if excluded || l.Policy.Excluded(p.Name) {
		l.Logger.Debugf("excluding %s", p)
		return
	}
	if !ps.Merge(p, pkg.AvailableOnly, l.Policy.PkgPolicy) {
		l.Logger.Debugf("dropping %s: a newer version is already in %s", p, src.ID)
	}
}

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

package action

import (
	"context"

	"github.com/Masterminds/log-go"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"

	"github.com/rancher-sandbox/yumper/internal/arch"
	"github.com/rancher-sandbox/yumper/internal/solver"
	"github.com/rancher-sandbox/yumper/internal/version"
	"github.com/rancher-sandbox/yumper/pkg/check"
	"github.com/rancher-sandbox/yumper/pkg/cli"
	"github.com/rancher-sandbox/yumper/pkg/commit"
	"github.com/rancher-sandbox/yumper/pkg/config"
	"github.com/rancher-sandbox/yumper/pkg/header"
	"github.com/rancher-sandbox/yumper/pkg/repo"
	"github.com/rancher-sandbox/yumper/pkg/rpmdb"
)

// InstalledLoader reads the packages installed on the system.
type InstalledLoader interface {
	LoadInstalled(ctx context.Context) (*solver.PackageSet, error)
}

// SourceLoader reads the packages offered by the configured repositories.
type SourceLoader interface {
	LoadAll(ctx context.Context, srcs []repo.Source) (*solver.PackageSet, error)
}

// Committer applies a resolved transaction.
type Committer interface {
	Commit(ctx context.Context, tx *solver.PackageSet) ([]string, error)
}

// CheckerFactory builds the dependency checker of one resolution.
type CheckerFactory func(installed, available *solver.PackageSet, compat *arch.Compat, logger log.Logger) solver.Checker

// Configuration holds the collaborators shared by all actions.
type Configuration struct {
	File       *config.File
	Policy     solver.Policy
	Compat     *arch.Compat
	Installed  InstalledLoader
	Sources    SourceLoader
	NewChecker CheckerFactory
	Committer  Committer
	Logger     log.Logger
	NoEmojis   bool
}

// NewConfiguration reads the configuration file named by settings and wires
// the loaders, checker and committer operating on settings.InstallRoot.
func NewConfiguration(settings *cli.EnvSettings, logger log.Logger) (*Configuration, error) {
	f, err := config.LoadFileOrDefault(settings.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := f.CheckVersion(version.GetVersion()); err != nil {
		return nil, err
	}
	policy, err := f.Policy()
	if err != nil {
		return nil, err
	}
	lockFile, err := securejoin.SecureJoin(settings.InstallRoot, f.LockFile)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid lockfile %s", f.LockFile)
	}

	logger.Debugf("machine %s, exactarch %t, pkgpolicy %s", settings.Machine(), policy.ExactArch, policy.PkgPolicy)
	return &Configuration{
		File:       f,
		Policy:     policy,
		Compat:     arch.New(settings.Machine()),
		Installed:  rpmdb.NewLoader(settings.InstallRoot, logger),
		Sources:    repo.NewLoader(policy, header.NewLoader(logger), logger),
		NewChecker: NewChecker,
		Committer:  commit.New(settings.InstallRoot, lockFile, logger),
		Logger:     logger,
		NoEmojis:   settings.NoEmojis,
	}, nil
}

// NewChecker is the default CheckerFactory.
func NewChecker(installed, available *solver.PackageSet, compat *arch.Compat, logger log.Logger) solver.Checker {
	return check.New(installed, available, compat, logger)
}

// RepoSources returns the enabled repositories as sources.
func (c *Configuration) RepoSources() ([]repo.Source, error) {
	srcs := []repo.Source{}
	for _, r := range c.File.Enabled() {
		dir, err := r.Dir()
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, repo.Source{ID: r.ID, Dir: dir, Exclude: r.Exclude})
	}
	return srcs, nil
}

// NewSolver loads the installed and available packages into a new Solver.
func (c *Configuration) NewSolver(ctx context.Context) (*solver.Solver, error) {
	installed, err := c.Installed.LoadInstalled(ctx)
	if err != nil {
		return nil, err
	}
	srcs, err := c.RepoSources()
	if err != nil {
		return nil, err
	}
	if len(srcs) == 0 {
		c.Logger.Warn("No repositories enabled, only installed packages are known")
	}
	available, err := c.Sources.LoadAll(ctx, srcs)
	if err != nil {
		return nil, err
	}
	c.Logger.Debugf("%d packages installed, %d available", installed.Len(), available.Len())

	s := solver.New(c.Policy, c.Compat, c.Logger)
	s.BuildWorld(installed, available)
	return s, nil
}

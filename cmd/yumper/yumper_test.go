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

package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/Masterminds/log-go"
	logcli "github.com/Masterminds/log-go/impl/cli"
	shellwords "github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
	"github.com/rancher-sandbox/yumper/internal/solver"
	"github.com/rancher-sandbox/yumper/pkg/action"
	"github.com/rancher-sandbox/yumper/pkg/cli"
)

type fakeInstalled struct {
	pkgs []*pkg.Pkg
}

func (f *fakeInstalled) LoadInstalled(ctx context.Context) (*solver.PackageSet, error) {
	ps := solver.NewPackageSet()
	for _, p := range f.pkgs {
		ps.Add(p, pkg.AvailableOnly)
	}
	return ps, nil
}

type fakeCommitter struct {
	calls int
	tx    *solver.PackageSet
}

func (f *fakeCommitter) Commit(ctx context.Context, tx *solver.PackageSet) ([]string, error) {
	f.calls++
	f.tx = tx
	return []string{"update"}, nil
}

// useFixture makes commands read testdata/repo, see installed as the rpm
// database, and record commits instead of running rpm.
func useFixture(t *testing.T, installed ...*pkg.Pkg) *fakeCommitter {
	t.Helper()
	committer := &fakeCommitter{}
	old := configure
	configure = func(logger log.Logger) (*action.Configuration, error) {
		settings.ConfigFile = "testdata/yumper.yaml"
		settings.Arch = "i686"
		settings.NoEmojis = true
		cfg, err := action.NewConfiguration(settings, logger)
		if err != nil {
			return nil, err
		}
		cfg.Installed = &fakeInstalled{pkgs: installed}
		cfg.Committer = committer
		return cfg, nil
	}
	t.Cleanup(func() { configure = old })
	return committer
}

// executeCommandStdinC runs cmd with stdin as input. It returns the
// command output and the log output separately.
func executeCommandStdinC(cmd, stdin string) (*cobra.Command, string, string, error) {
	args, err := shellwords.Parse(cmd)
	if err != nil {
		return nil, "", "", err
	}

	out := new(bytes.Buffer)
	logs := new(bytes.Buffer)
	logger := logcli.NewStandard()
	logger.InfoOut = logs
	logger.WarnOut = logs
	logger.ErrorOut = logs
	logger.DebugOut = logs

	root, err := newRootCmd(out, logger, args)
	if err != nil {
		return nil, "", "", err
	}
	root.SetOut(out)
	root.SetErr(out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	c, err := root.ExecuteC()
	return c, out.String(), logs.String(), err
}

func resetEnv() func() {
	origEnv := os.Environ()
	return func() {
		os.Clearenv()
		for _, pair := range origEnv {
			kv := strings.SplitN(pair, "=", 2)
			os.Setenv(kv[0], kv[1])
		}
		settings = cli.New()
	}
}

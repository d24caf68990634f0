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

// Package commit applies resolved transactions to the system with rpm.
package commit

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/log-go"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
	"github.com/rancher-sandbox/yumper/internal/solver"
)

// ErrLocked is returned when another transaction holds the lock file.
var ErrLocked = errors.New("another transaction is in progress")

// LockTimeout is how long Commit waits for the lock file.
var LockTimeout = 30 * time.Second

// Runner runs an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Error is a failed commit. Done lists the steps that completed before the
// failing one.
type Error struct {
	Step     string
	Done     []string
	Problems []string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("transaction failed at %s", e.Step)
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	}
	return msg
}

// Unwrap returns the error of the failed command.
func (e *Error) Unwrap() error { return e.Err }

// Committer applies a resolved transaction with the rpm binary.
type Committer struct {
	RPM      string
	Root     string
	LockFile string
	Test     bool
	Runner   Runner
	Logger   log.Logger
}

// New returns a Committer running "rpm" on the system under root.
func New(root, lockFile string, logger log.Logger) *Committer {
	return &Committer{
		RPM:      "rpm",
		Root:     root,
		LockFile: lockFile,
		Runner:   ExecRunner{},
		Logger:   logger,
	}
}

type step struct {
	name   string
	flag   string
	states []pkg.State
	erase  bool
}

// New packages go through -U together with their dependencies, so rpm
// orders them in one transaction. Only install-only packages use -i, which
// keeps the versions already installed.
var steps = []step{
	{name: "update", flag: "-U", states: []pkg.State{pkg.Install, pkg.Update, pkg.UpdateDep}},
	{name: "install", flag: "-i", states: []pkg.State{pkg.InstallAsUpdate}},
	{name: "erase", flag: "-e", states: []pkg.State{pkg.Erase, pkg.EraseDep}, erase: true},
}

// Commit applies tx: updates and new packages, then install-only packages,
// then erasures, one rpm run each. The lock file is held for the whole
// transaction.
func (c *Committer) Commit(ctx context.Context, tx *solver.PackageSet) ([]string, error) {
	if c.LockFile != "" {
		unlock, err := c.lock(ctx)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	done := []string{}
	for _, s := range steps {
		entries := tx.InState(s.states...)
		if len(entries) == 0 {
			continue
		}
		args := c.args(s, entries)
		c.Logger.Debugf("running %s %s", c.RPM, strings.Join(args, " "))
		out, err := c.Runner.Run(ctx, c.RPM, args...)
		if err != nil {
			return done, &Error{Step: s.name, Done: done, Problems: Problems(out), Err: err}
		}
		done = append(done, s.name)
		c.Logger.Infof("%s: %d packages", s.name, len(entries))
	}
	return done, nil
}

func (c *Committer) args(s step, entries []solver.Entry) []string {
	args := []string{s.flag}
	if c.Test {
		args = append(args, "--test")
	}
	if c.Root != "" && c.Root != "/" {
		args = append(args, "--root", c.Root)
	}
	for _, e := range entries {
		if s.erase {
			p := e.Pkg
			args = append(args, fmt.Sprintf("%s-%s-%s.%s", p.Name, p.Version, p.Release, p.Arch))
			continue
		}
		args = append(args, e.Pkg.Location)
	}
	return args
}

func (c *Committer) lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(c.LockFile), 0755); err != nil {
		return nil, err
	}
	fileLock := flock.New(c.LockFile)
	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()
	locked, err := fileLock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		if ctx.Err() == nil && lockCtx.Err() != nil {
			return nil, errors.Wrapf(ErrLocked, "cannot lock %s", c.LockFile)
		}
		return nil, errors.Wrapf(err, "cannot lock %s", c.LockFile)
	}
	if !locked {
		return nil, errors.Wrapf(ErrLocked, "cannot lock %s", c.LockFile)
	}
	return func() {
		if err := fileLock.Unlock(); err != nil {
			c.Logger.Warnf("cannot unlock %s: %s", c.LockFile, err)
		}
	}, nil
}

// Problems extracts the problem lines rpm prints when a transaction
// check fails, e.g. "\tlibfoo is needed by bar-1.0-1.i386".
func Problems(out []byte) []string {
	problems := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "error: Failed dependencies"):
		case strings.HasPrefix(line, "\t"), strings.HasPrefix(line, " "):
			problems = append(problems, trimmed)
		case strings.HasPrefix(trimmed, "error: "):
			problems = append(problems, strings.TrimPrefix(trimmed, "error: "))
		}
	}
	return problems
}

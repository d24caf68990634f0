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
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/log-go"
	"github.com/pkg/errors"

	"github.com/rancher-sandbox/yumper/internal/solver"
	"github.com/rancher-sandbox/yumper/pkg/eyecandy"
)

// ErrAborted is returned when the user declines the transaction.
var ErrAborted = errors.New("transaction aborted by user")

// Transaction holds the options shared by Update, Install and Erase.
type Transaction struct {
	Config *Configuration

	// DryRun resolves and reports without committing
	DryRun bool
	// AssumeYes commits without asking
	AssumeYes bool
	// In is read for the confirmation, os.Stdin when nil
	In io.Reader
}

func (t *Transaction) resolve(ctx context.Context, seed func(s *solver.Solver) error) (*solver.Solver, error) {
	s, err := t.Config.NewSolver(ctx)
	if err != nil {
		return nil, err
	}
	if err := seed(s); err != nil {
		return s, err
	}
	checker := t.Config.NewChecker(s.Installed, s.Available, t.Config.Compat, t.Config.Logger)
	if err := s.Solve(ctx, checker); err != nil {
		return s, err
	}
	if s.PkgResultSet.Empty() {
		t.Config.Logger.Info(eyecandy.ESPrint(t.Config.NoEmojis, ":zzz:Nothing to do"))
	}
	return s, nil
}

// Commit applies the resolved transaction of s, asking first unless
// AssumeYes is set. An empty transaction is a no-op.
func (t *Transaction) Commit(ctx context.Context, s *solver.Solver) error {
	logger := t.Config.Logger
	if !s.IsResolved() {
		return errors.Wrap(solver.ErrUnresolved, "cannot commit")
	}
	if s.PkgResultSet.Empty() {
		return nil
	}
	if t.DryRun {
		logger.Info(eyecandy.ESPrint(t.Config.NoEmojis, ":memo:Dry run, nothing was changed"))
		return nil
	}
	if !t.AssumeYes {
		in := t.In
		if in == nil {
			in = os.Stdin
		}
		if !promptBool("Is this ok", bufio.NewReader(in), logger) {
			return ErrAborted
		}
	}

	done, err := t.Config.Committer.Commit(ctx, s.Tx)
	if err != nil {
		return err
	}
	logger.Info(eyecandy.ESPrintf(t.Config.NoEmojis, ":check_mark_button:Complete (%s)", strings.Join(done, ", ")))
	return nil
}

// promptBool asks question until it gets an answer. Anything but yes is a
// no when the input ends.
func promptBool(question string, reader *bufio.Reader, logger log.Logger) bool {
	for {
		logger.Infof("%s [y/N]:", question)

		response, err := reader.ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))

		switch response {
		case "y", "yes":
			return true
		case "n", "no", "":
			return false
		}
		if err != nil {
			return false
		}
	}
}

// Update updates installed packages.
type Update struct {
	Transaction
}

// NewUpdate creates a new Update object with the given configuration.
func NewUpdate(cfg *Configuration) *Update {
	return &Update{Transaction{Config: cfg}}
}

// Resolve computes the update transaction. With no names every installed
// package with an update is taken, and obsoleting packages are added.
func (u *Update) Resolve(ctx context.Context, names ...string) (*solver.Solver, error) {
	return u.resolve(ctx, func(s *solver.Solver) error {
		return s.SeedUpdate(names...)
	})
}

// Run resolves and commits.
func (u *Update) Run(ctx context.Context, names ...string) (*solver.Solver, error) {
	s, err := u.Resolve(ctx, names...)
	if err != nil {
		return s, err
	}
	return s, u.Commit(ctx, s)
}

// Install installs new packages.
type Install struct {
	Transaction
}

// NewInstall creates a new Install object with the given configuration.
func NewInstall(cfg *Configuration) *Install {
	return &Install{Transaction{Config: cfg}}
}

// Resolve computes the transaction installing names.
func (i *Install) Resolve(ctx context.Context, names ...string) (*solver.Solver, error) {
	if len(names) == 0 {
		return nil, errors.New("install needs at least one package name")
	}
	return i.resolve(ctx, func(s *solver.Solver) error {
		return s.SeedInstall(names...)
	})
}

// Run resolves and commits.
func (i *Install) Run(ctx context.Context, names ...string) (*solver.Solver, error) {
	s, err := i.Resolve(ctx, names...)
	if err != nil {
		return s, err
	}
	return s, i.Commit(ctx, s)
}

// Erase removes installed packages, and whatever depends on them.
type Erase struct {
	Transaction
}

// NewErase creates a new Erase object with the given configuration.
func NewErase(cfg *Configuration) *Erase {
	return &Erase{Transaction{Config: cfg}}
}

// Resolve computes the transaction erasing names.
func (e *Erase) Resolve(ctx context.Context, names ...string) (*solver.Solver, error) {
	if len(names) == 0 {
		return nil, errors.New("erase needs at least one package name")
	}
	return e.resolve(ctx, func(s *solver.Solver) error {
		return s.SeedErase(names...)
	})
}

// Run resolves and commits.
func (e *Erase) Run(ctx context.Context, names ...string) (*solver.Solver, error) {
	s, err := e.Resolve(ctx, names...)
	if err != nil {
		return s, err
	}
	return s, e.Commit(ctx, s)
}

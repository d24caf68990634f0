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
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Masterminds/log-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rancher-sandbox/yumper/internal/solver"
	"github.com/rancher-sandbox/yumper/pkg/action"
)

const updateDesc = `
This command updates installed packages.

With no arguments every installed package with a newer version in the
enabled repositories is updated, and packages obsoleting installed ones
are pulled in. Dependencies are added as needed.
`

const installDesc = `
This command installs packages from the enabled repositories.

The best version and architecture of each package is picked, and its
dependencies are added as needed. Install-only packages, such as kernel,
are installed side by side with the version already present.
`

const eraseDesc = `
This command removes installed packages, along with every installed
package requiring them.
`

// transactionClient is implemented by action.Update, action.Install and
// action.Erase.
type transactionClient interface {
	Resolve(ctx context.Context, names ...string) (*solver.Solver, error)
	Commit(ctx context.Context, s *solver.Solver) error
}

type transactionOptions struct {
	dryRun    bool
	assumeYes bool
	outfmt    solver.OutputMode
}

func (o *transactionOptions) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&o.dryRun, "dry-run", false, "resolve the transaction and show it, without applying it")
	f.BoolVarP(&o.assumeYes, "assumeyes", "y", false, "answer yes to the confirmation")
	bindOutputFlag(cmd, &o.outfmt)
}

func (o *transactionOptions) apply(t *action.Transaction, in io.Reader) {
	t.DryRun = o.dryRun
	t.AssumeYes = o.assumeYes
	t.In = in
}

func newUpdateCmd(out io.Writer, logger log.Logger) *cobra.Command {
	o := &transactionOptions{}
	cmd := &cobra.Command{
		Use:     "update [PACKAGE...]",
		Aliases: []string{"upgrade"},
		Short:   "update installed packages",
		Long:    updateDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(logger)
			if err != nil {
				return err
			}
			client := action.NewUpdate(cfg)
			o.apply(&client.Transaction, cmd.InOrStdin())
			return runTransaction(contextOf(cmd), out, cmd.InOrStdin(), client, o, args)
		},
	}
	o.addFlags(cmd)
	return cmd
}

func newInstallCmd(out io.Writer, logger log.Logger) *cobra.Command {
	o := &transactionOptions{}
	cmd := &cobra.Command{
		Use:   "install PACKAGE...",
		Short: "install packages",
		Long:  installDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(logger)
			if err != nil {
				return err
			}
			client := action.NewInstall(cfg)
			o.apply(&client.Transaction, cmd.InOrStdin())
			return runTransaction(contextOf(cmd), out, cmd.InOrStdin(), client, o, args)
		},
	}
	o.addFlags(cmd)
	return cmd
}

func newEraseCmd(out io.Writer, logger log.Logger) *cobra.Command {
	o := &transactionOptions{}
	cmd := &cobra.Command{
		Use:     "erase PACKAGE...",
		Aliases: []string{"remove"},
		Short:   "remove installed packages",
		Long:    eraseDesc,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(logger)
			if err != nil {
				return err
			}
			client := action.NewErase(cfg)
			o.apply(&client.Transaction, cmd.InOrStdin())
			return runTransaction(contextOf(cmd), out, cmd.InOrStdin(), client, o, args)
		},
	}
	o.addFlags(cmd)
	return cmd
}

// runTransaction resolves, prints the outcome and commits after
// confirmation read from in.
func runTransaction(ctx context.Context, out io.Writer, in io.Reader, client transactionClient, o *transactionOptions, names []string) error {
	s, err := client.Resolve(ctx, names...)
	if s != nil && s.PkgResultSet.Status != "" {
		res, ferr := s.FormatOutput(o.outfmt)
		if ferr != nil {
			return ferr
		}
		fmt.Fprintln(out, res)
	}
	if err != nil {
		return err
	}

	if !s.PkgResultSet.Empty() && !o.dryRun && !o.assumeYes && !isTerminal(in) {
		return errors.New("cannot ask for confirmation without a terminal, use --assumeyes")
	}
	return client.Commit(ctx, s)
}

// isTerminal reports whether the confirmation can be read from in. Input
// that is not a file, as in tests, is always fine.
func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return true
	}
	return term.IsTerminal(int(f.Fd()))
}

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

	"github.com/Masterminds/log-go"
	"github.com/spf13/cobra"

	"github.com/rancher-sandbox/yumper/internal/solver"
	"github.com/rancher-sandbox/yumper/pkg/action"
	"github.com/rancher-sandbox/yumper/pkg/eyecandy"
)

// checkUpdateExitCode is returned by check-update when updates are
// available.
const checkUpdateExitCode = 100

const listDesc = `
This command lists installed and available packages.

An optional first argument restricts the listing to one section: all,
installed, available, updates or obsoletes. The remaining arguments are
glob patterns matched against package names.
`

const checkUpdateDesc = `
This command lists the updates available for installed packages, and the
packages that would obsolete installed ones.

It exits with code 100 when there are updates, 0 when there are none, and
1 on error.
`

func newListCmd(out io.Writer, logger log.Logger) *cobra.Command {
	var outfmt solver.OutputMode

	cmd := &cobra.Command{
		Use:   "list [all|installed|available|updates|obsoletes] [PATTERN...]",
		Short: "list packages",
		Long:  listDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(logger)
			if err != nil {
				return err
			}
			client := action.NewList(cfg)
			if len(args) > 0 {
				if f, err := action.ParseListFilter(args[0]); err == nil {
					client.Filter = f
					args = args[1:]
				}
			}
			res, err := client.Run(contextOf(cmd), args...)
			if err != nil {
				return err
			}
			return printList(out, res, outfmt)
		},
	}
	bindOutputFlag(cmd, &outfmt)
	return cmd
}

func newCheckUpdateCmd(out io.Writer, logger log.Logger) *cobra.Command {
	var outfmt solver.OutputMode

	cmd := &cobra.Command{
		Use:   "check-update [PATTERN...]",
		Short: "list available updates",
		Long:  checkUpdateDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(logger)
			if err != nil {
				return err
			}
			res, err := action.NewCheckUpdate(cfg).Run(contextOf(cmd), args...)
			if err != nil {
				return err
			}
			if !res.HasUpdates() {
				logger.Info(eyecandy.ESPrint(settings.NoEmojis, ":sparkles:No updates available"))
				return nil
			}
			if err := printList(out, res, outfmt); err != nil {
				return err
			}
			logger.Info(yellow(fmt.Sprintf("%d updates available", len(res.Updates)+len(res.Obsoletes))))
			return exitError{code: checkUpdateExitCode}
		},
	}
	bindOutputFlag(cmd, &outfmt)
	return cmd
}

func printList(out io.Writer, res *action.ListResult, outfmt solver.OutputMode) error {
	s, err := res.Format(outfmt)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, s)
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

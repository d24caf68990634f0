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
	"io"

	"github.com/Masterminds/log-go"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var globalUsage = `Package manager for RPM based systems.

yumper updates, installs and removes rpm packages, pulling the
dependencies they need from the configured repositories.

Common actions:

- yumper check-update:      list the available updates
- yumper update:            update every installed package
- yumper install bash:      install the bash package
- yumper erase bash:        remove bash, and what depends on it

Environment variables:

| Name                | Description                                           |
|---------------------|-------------------------------------------------------|
| $YUMPER_DEBUG       | indicate whether or not yumper is running in debug    |
| $YUMPER_NOCOLORS    | disable colorized output                              |
| $YUMPER_NOEMOJIS    | disable emojis in output                              |
| $YUMPER_CONFIG      | set an alternative location for yumper.yaml           |
| $YUMPER_ROOT        | set the root directory of the system to operate on    |
| $YUMPER_ARCH        | resolve for this machine type                         |
`

func newRootCmd(out io.Writer, logger log.Logger, args []string) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:           "yumper",
		Short:         "A package manager for RPM based systems",
		Long:          globalUsage,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	settings.AddFlags(flags)

	cmd.AddCommand(
		newUpdateCmd(out, logger),
		newInstallCmd(out, logger),
		newEraseCmd(out, logger),
		newCheckUpdateCmd(out, logger),
		newListCmd(out, logger),
		newVersionCmd(logger),
	)

	flags.ParseErrorsWhitelist.UnknownFlags = true
	err := flags.Parse(args)
	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		return nil, errors.Wrapf(err, "failed while parsing flags for %s", args)
	}

	if settings.NoColors {
		color.NoColor = true // disable colorized output
	}

	return cmd, nil
}

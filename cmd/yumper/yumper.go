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
	"fmt"
	"os"

	"github.com/Masterminds/log-go"
	logcli "github.com/Masterminds/log-go/impl/cli"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/rancher-sandbox/yumper/pkg/action"
	"github.com/rancher-sandbox/yumper/pkg/cli"
)

var settings = cli.New()

var red = color.New(color.FgRed).SprintFunc()
var yellow = color.New(color.FgYellow).SprintFunc()

// configure builds the action configuration once flags are parsed.
var configure = func(logger log.Logger) (*action.Configuration, error) {
	return action.NewConfiguration(settings, logger)
}

// exitError ends the program with code, after printing err if not nil.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func main() {
	logger := logcli.NewStandard()
	log.Current = logger

	cmd, err := newRootCmd(os.Stdout, logger, os.Args[1:])
	if err != nil {
		logger.Errorf("%s %s", red("Error:"), err)
		os.Exit(1)
	}
	if settings.Debug {
		logger.Level = log.DebugLevel
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
		settings.NoEmojis = true
	}

	if err := cmd.Execute(); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			if ee.err != nil {
				logger.Errorf("%s %s", red("Error:"), ee.err)
			}
			os.Exit(ee.code)
		}
		logger.Debugf("%+v", err)
		logger.Errorf("%s %s", red("Error:"), err)
		os.Exit(1)
	}
}

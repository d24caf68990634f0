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
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/log-go"
	logio "github.com/Masterminds/log-go/io"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/rancher-sandbox/yumper/internal/solver"
	"github.com/rancher-sandbox/yumper/internal/version"
)

const versionDesc = `
Show the build information of yumper: its version, the git commit and tree
state it was built from, and the Go version that compiled it.

--short prints the version alone. --template takes a Go template over the
fields .Version, .GitCommit, .GitTreeState and .GoVersion. --output json and
--output yaml print every field in that format.
`

type versionOptions struct {
	short    bool
	template string
	outfmt   solver.OutputMode
}

func newVersionCmd(logger log.Logger) *cobra.Command {
	o := &versionOptions{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "print the client version information",
		Long:  versionDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(logio.NewWriter(logger, log.InfoLevel))
		},
	}
	f := cmd.Flags()
	f.BoolVar(&o.short, "short", false, "print the version number")
	f.StringVar(&o.template, "template", "", "template for version string format")
	bindOutputFlag(cmd, &o.outfmt)

	return cmd
}

func (o *versionOptions) run(w io.Writer) error {
	info := version.Get()
	var sb strings.Builder
	switch {
	case o.template != "":
		tt, err := template.New("version").Parse(o.template)
		if err != nil {
			return err
		}
		if err := tt.Execute(&sb, info); err != nil {
			return err
		}
	case o.short:
		sb.WriteString(shortVersion(info))
	case o.outfmt == solver.JSON:
		b, err := json.Marshal(info)
		if err != nil {
			return err
		}
		sb.Write(b)
	case o.outfmt == solver.YAML:
		b, err := yaml.Marshal(info)
		if err != nil {
			return err
		}
		sb.Write(b)
	default:
		fmt.Fprintf(&sb, "%#v", info)
	}
	_, err := fmt.Fprintln(w, strings.TrimSuffix(sb.String(), "\n"))
	return err
}

func shortVersion(info version.BuildInfo) string {
	if len(info.GitCommit) >= 7 {
		return fmt.Sprintf("%s+g%s", info.Version, info.GitCommit[:7])
	}
	return info.Version
}

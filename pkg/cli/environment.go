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

// Package cli describes the operating environment for the yumper CLI: the
// YUMPER_* environment variables and the global flags overriding them.
package cli

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/rancher-sandbox/yumper/internal/arch"
)

// DefaultConfigFile is read when neither --config nor YUMPER_CONFIG is set.
var DefaultConfigFile = filepath.FromSlash("/etc/yumper/yumper.yaml")

// EnvSettings describes all of the environment settings.
type EnvSettings struct {
	Debug    bool
	NoColors bool
	NoEmojis bool
	// ConfigFile is the path to yumper.yaml
	ConfigFile string
	// InstallRoot is the directory the rpm database and packages live under
	InstallRoot string
	// Arch overrides the machine type reported by the system
	Arch string
}

func New() *EnvSettings {
	env := &EnvSettings{
		ConfigFile:  envOr("YUMPER_CONFIG", DefaultConfigFile),
		InstallRoot: envOr("YUMPER_ROOT", "/"),
		Arch:        os.Getenv("YUMPER_ARCH"),
	}
	env.Debug, _ = strconv.ParseBool(os.Getenv("YUMPER_DEBUG"))
	env.NoColors, _ = strconv.ParseBool(os.Getenv("YUMPER_NOCOLORS"))
	env.NoEmojis, _ = strconv.ParseBool(os.Getenv("YUMPER_NOEMOJIS"))
	return env
}

// AddFlags binds flags to the given flagset.
func (s *EnvSettings) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&s.Debug, "debug", s.Debug, "enable verbose output")
	fs.BoolVar(&s.NoColors, "nocolor", s.NoColors, "disable colorized output")
	fs.BoolVar(&s.NoEmojis, "noemoji", s.NoEmojis, "disable emojis in output")
	fs.StringVarP(&s.ConfigFile, "config", "c", s.ConfigFile, "path to the yumper configuration file")
	fs.StringVar(&s.InstallRoot, "installroot", s.InstallRoot, "root directory of the system to operate on")
	fs.StringVar(&s.Arch, "arch", s.Arch, "machine type to resolve for, instead of the running one")
}

func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

// EnvVars returns the environment as yumper sees it, after flags.
func (s *EnvSettings) EnvVars() map[string]string {
	return map[string]string{
		"YUMPER_DEBUG":    strconv.FormatBool(s.Debug),
		"YUMPER_NOCOLORS": strconv.FormatBool(s.NoColors),
		"YUMPER_NOEMOJIS": strconv.FormatBool(s.NoEmojis),
		"YUMPER_CONFIG":   s.ConfigFile,
		"YUMPER_ROOT":     s.InstallRoot,
		"YUMPER_ARCH":     s.Arch,
	}
}

// Machine returns the machine type used for architecture compatibility.
func (s *EnvSettings) Machine() string {
	if s.Arch != "" {
		return s.Arch
	}
	return arch.Machine()
}

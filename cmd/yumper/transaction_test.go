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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
	"github.com/rancher-sandbox/yumper/pkg/action"
)

func TestUpdateCmd(t *testing.T) {
	defer resetEnv()()
	committer := useFixture(t,
		pkg.NewInstalledPkgMock("bash", "3.0-1", "i386"),
		pkg.NewInstalledPkgMock("oldtool", "0.1-1", "noarch"),
	)

	_, out, logs, err := executeCommandStdinC("update -y -o json", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"to_install": [],
		"to_update": [
			{"name": "bash", "arch": "i386", "version": "0:3.1-1", "repository": "base", "state": "update"},
			{"name": "newtool", "arch": "noarch", "version": "0:1.0-1", "repository": "base", "state": "update"}
		],
		"to_erase": [],
		"dependencies": [
			{"name": "libtermcap", "arch": "i386", "version": "0:2.0.8-1", "repository": "base", "state": "update-dependency"}
		],
		"obsoleted": ["oldtool"],
		"status": "resolved",
		"inconsistencies": []
	}`, out)
	assert.Equal(t, 1, committer.calls)
	assert.Contains(t, logs, "Complete (update)")
}

func TestUpdateCmdDryRun(t *testing.T) {
	defer resetEnv()()
	committer := useFixture(t, pkg.NewInstalledPkgMock("bash", "3.0-1", "i386"))

	_, out, logs, err := executeCommandStdinC("upgrade bash --dry-run", "")
	require.NoError(t, err)
	assert.Regexp(t, `bash\s+i386\s+0:3.1-1\s+base\s+update`, out)
	assert.Regexp(t, `libtermcap\s+i386\s+0:2.0.8-1\s+base\s+update-dependency`, out)
	assert.Equal(t, 0, committer.calls)
	assert.Contains(t, logs, "Dry run, nothing was changed")
}

func TestUpdateCmdConfirmation(t *testing.T) {
	defer resetEnv()()
	committer := useFixture(t, pkg.NewInstalledPkgMock("bash", "3.0-1", "i386"))

	_, _, logs, err := executeCommandStdinC("update", "n\n")
	assert.Equal(t, action.ErrAborted, err)
	assert.Equal(t, 0, committer.calls)
	assert.Contains(t, logs, "Is this ok [y/N]:")

	_, _, _, err = executeCommandStdinC("update", "y\n")
	require.NoError(t, err)
	assert.Equal(t, 1, committer.calls)
}

func TestInstallCmd(t *testing.T) {
	defer resetEnv()()
	committer := useFixture(t)

	_, out, _, err := executeCommandStdinC("install bash -y -o yaml", "")
	require.NoError(t, err)
	assert.YAMLEq(t, `
to_install:
- name: bash
  arch: i386
  version: 0:3.1-1
  repository: base
  state: install
to_update: []
to_erase: []
dependencies:
- name: libtermcap
  arch: i386
  version: 0:2.0.8-1
  repository: base
  state: update-dependency
obsoleted: []
status: resolved
inconsistencies: []
`, out)
	assert.Equal(t, 1, committer.calls)

	_, _, _, err = executeCommandStdinC("install", "")
	assert.EqualError(t, err, "requires at least 1 arg(s), only received 0")

	_, _, _, err = executeCommandStdinC("install bash -o xml", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `invalid output format "xml"`)
}

func TestEraseCmd(t *testing.T) {
	defer resetEnv()()
	lib := pkg.NewInstalledPkgMock("libtermcap", "2.0.8-1", "i386")
	lib.Provides = pkg.MustParseCapabilities("libtermcap.so.2")
	bash := pkg.NewInstalledPkgMock("bash", "3.0-1", "i386")
	bash.Requires = pkg.MustParseCapabilities("libtermcap.so.2")
	committer := useFixture(t, bash, lib)

	_, out, _, err := executeCommandStdinC("remove libtermcap -y", "")
	require.NoError(t, err)
	assert.Regexp(t, `libtermcap\s+i386\s+0:2.0.8-1\s+installed\s+erase`, out)
	assert.Regexp(t, `bash\s+i386\s+0:3.0-1\s+installed\s+erase-dependency`, out)
	assert.Equal(t, 1, committer.calls)
}

func TestEraseCmdNotInstalled(t *testing.T) {
	defer resetEnv()()
	useFixture(t)

	_, _, _, err := executeCommandStdinC("erase zsh -y", "")
	assert.EqualError(t, err, "no package zsh installed: package not found")
}

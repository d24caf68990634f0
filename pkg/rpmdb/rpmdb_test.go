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

package rpmdb

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/log-go"
	logcli "github.com/Masterminds/log-go/impl/cli"
	rpmdb "github.com/knqyf263/go-rpmdb/pkg"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
)

type fakeDB struct {
	infos  []*rpmdb.PackageInfo
	closed bool
}

func (f *fakeDB) ListPackages() ([]*rpmdb.PackageInfo, error) { return f.infos, nil }
func (f *fakeDB) Close() error                                { f.closed = true; return nil }

func newTestLogger() (log.Logger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	logger := logcli.NewStandard()
	logger.InfoOut = buf
	logger.WarnOut = buf
	logger.ErrorOut = buf
	logger.DebugOut = buf
	logger.Level = log.DebugLevel
	return logger, buf
}

func epoch(e int) *int { return &e }

func installedInfos() []*rpmdb.PackageInfo {
	return []*rpmdb.PackageInfo{
		{Name: "bash", Version: "3.0", Release: "1", Arch: "i386",
			Provides: []string{"/bin/sh", "bash"},
			Requires: []string{"rpmlib(CompressedFileNames)", "libtermcap.so.2"}},
		{Name: "kernel", Version: "2.6.9", Release: "5", Arch: "i686"},
		{Name: "kernel", Version: "2.6.9", Release: "1", Arch: "i686"},
		{Name: "glibc", Epoch: epoch(1), Version: "2.3", Release: "1", Arch: "i686"},
		{Name: "gpg-pubkey", Version: "db42a60e", Release: "37ea5438"},
	}
}

func TestFromPackageInfos(t *testing.T) {
	logger, _ := newTestLogger()
	ps := FromPackageInfos(installedInfos(), logger)

	is := assert.New(t)
	is.Equal([]string{"bash", "glibc", "kernel"}, ps.Names())

	e, ok := ps.Get("bash", "i386")
	require.True(t, ok)
	is.True(e.Pkg.IsInstalled())
	is.Equal(pkg.AvailableOnly, e.State)
	is.Equal(pkg.MustParseCapabilities("/bin/sh", "bash"), e.Pkg.Provides)
	is.Equal(pkg.MustParseCapabilities("libtermcap.so.2"), e.Pkg.Requires)

	e, _ = ps.Get("kernel", "i686")
	is.Equal("5", e.Pkg.Release, "newest per arch")

	e, _ = ps.Get("glibc", "i686")
	is.Equal("1", e.Pkg.Epoch)
}

func TestLoadInstalled(t *testing.T) {
	root, err := ioutil.TempDir("", "yumper-root")
	require.NoError(t, err)
	defer os.RemoveAll(root)

	dbPath := filepath.Join(root, "var", "lib", "rpm", "Packages")
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0755))
	require.NoError(t, ioutil.WriteFile(dbPath, nil, 0644))

	logger, buf := newTestLogger()
	db := &fakeDB{infos: installedInfos()}
	opened := ""
	l := NewLoader(root, logger)
	l.Open = func(path string) (Database, error) {
		opened = path
		return db, nil
	}

	ps, err := l.LoadInstalled(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, ps.Len())
	assert.Equal(t, dbPath, opened)
	assert.True(t, db.closed)
	assert.Contains(t, buf.String(), "reading rpm database "+dbPath)
}

func TestLoadInstalledNoDatabase(t *testing.T) {
	root, err := ioutil.TempDir("", "yumper-root")
	require.NoError(t, err)
	defer os.RemoveAll(root)

	logger, _ := newTestLogger()
	_, err = NewLoader(root, logger).LoadInstalled(context.Background())
	assert.True(t, errors.Is(err, ErrNoDatabase))
}

func TestLoadInstalledOpenError(t *testing.T) {
	root, err := ioutil.TempDir("", "yumper-root")
	require.NoError(t, err)
	defer os.RemoveAll(root)

	dbPath := filepath.Join(root, "var", "lib", "rpm", "rpmdb.sqlite")
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0755))
	require.NoError(t, ioutil.WriteFile(dbPath, []byte("not sqlite"), 0644))

	logger, _ := newTestLogger()
	l := NewLoader(root, logger)
	l.Open = func(path string) (Database, error) {
		return nil, errors.New("file is not a database")
	}
	_, err = l.LoadInstalled(context.Background())
	require.Error(t, err)
	assert.Equal(t, "cannot open rpm database "+dbPath+": file is not a database", err.Error())
}

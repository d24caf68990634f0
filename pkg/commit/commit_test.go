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

package commit

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Masterminds/log-go"
	logcli "github.com/Masterminds/log-go/impl/cli"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
	"github.com/rancher-sandbox/yumper/internal/solver"
)

type runnerMock struct {
	mock.Mock
}

func (m *runnerMock) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	ret := m.Called(name, args)
	out, _ := ret.Get(0).([]byte)
	return out, ret.Error(1)
}

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

func newTx() *solver.PackageSet {
	tx := solver.NewPackageSet()
	tx.Add(pkg.NewPkgMock("bash", "3.1-1", "i386"), pkg.Update)
	tx.Add(pkg.NewPkgMock("libtermcap", "2.0-1", "i386"), pkg.UpdateDep)
	tx.Add(pkg.NewPkgMock("kernel", "2.6-1", "i686"), pkg.InstallAsUpdate)
	tx.Add(pkg.NewInstalledPkgMock("oldtool", "1.0-1", "i386"), pkg.Erase)
	tx.Add(pkg.NewPkgMock("unrelated", "1.0-1", "i386"), pkg.AvailableOnly)
	return tx
}

func newCommitter(t *testing.T, r Runner) (*Committer, *bytes.Buffer) {
	logger, buf := newTestLogger()
	c := New("/mnt/sysimage", filepath.Join(t.TempDir(), "run", "yumper.pid"), logger)
	c.Runner = r
	return c, buf
}

func TestCommit(t *testing.T) {
	r := new(runnerMock)
	r.On("Run", "rpm", []string{"-U", "--root", "/mnt/sysimage", "bash-3.1-1.i386.rpm", "libtermcap-2.0-1.i386.rpm"}).Return([]byte{}, nil).Once()
	r.On("Run", "rpm", []string{"-i", "--root", "/mnt/sysimage", "kernel-2.6-1.i686.rpm"}).Return([]byte{}, nil).Once()
	r.On("Run", "rpm", []string{"-e", "--root", "/mnt/sysimage", "oldtool-1.0-1.i386"}).Return([]byte{}, nil).Once()

	c, buf := newCommitter(t, r)
	done, err := c.Commit(context.Background(), newTx())
	require.NoError(t, err)
	assert.Equal(t, []string{"update", "install", "erase"}, done)
	r.AssertExpectations(t)
	assert.Contains(t, buf.String(), "update: 2 packages")
}

// recordingRunner keeps the command lines it was asked to run.
type recordingRunner struct {
	calls [][]string
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil, nil
}

func TestCommitInstallsWithDependencies(t *testing.T) {
	tx := solver.NewPackageSet()
	tx.Add(pkg.NewPkgMock("foo", "1.0-1", "x86_64"), pkg.Install)
	tx.Add(pkg.NewPkgMock("libbar", "1.0-1", "x86_64"), pkg.UpdateDep)

	r := &recordingRunner{}
	c, _ := newCommitter(t, r)
	c.Root = "/"
	done, err := c.Commit(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, []string{"update"}, done)
	assert.Equal(t, [][]string{
		{"rpm", "-U", "foo-1.0-1.x86_64.rpm", "libbar-1.0-1.x86_64.rpm"},
	}, r.calls)
}

func TestCommitTestRun(t *testing.T) {
	tx := solver.NewPackageSet()
	tx.Add(pkg.NewPkgMock("bash", "3.1-1", "i386"), pkg.Update)

	r := new(runnerMock)
	r.On("Run", "rpm", []string{"-U", "--test", "bash-3.1-1.i386.rpm"}).Return([]byte{}, nil).Once()

	c, _ := newCommitter(t, r)
	c.Root = "/"
	c.Test = true
	done, err := c.Commit(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, []string{"update"}, done)
	r.AssertExpectations(t)
}

func TestCommitPartialFailure(t *testing.T) {
	out := []byte("error: Failed dependencies:\n\tlibfoo.so.1 is needed by kernel-2.6-1.i686\n\tkernel conflicts with ksh-1.0-1.i386\n")
	r := new(runnerMock)
	r.On("Run", "rpm", mock.MatchedBy(func(args []string) bool { return args[0] == "-U" })).Return([]byte{}, nil).Once()
	r.On("Run", "rpm", mock.MatchedBy(func(args []string) bool { return args[0] == "-i" })).Return(out, errors.New("exit status 1")).Once()

	c, _ := newCommitter(t, r)
	done, err := c.Commit(context.Background(), newTx())
	require.Error(t, err)
	assert.Equal(t, []string{"update"}, done)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "install", cerr.Step)
	assert.Equal(t, []string{"update"}, cerr.Done)
	assert.Equal(t, []string{"libfoo.so.1 is needed by kernel-2.6-1.i686", "kernel conflicts with ksh-1.0-1.i386"}, cerr.Problems)
	assert.EqualError(t, err, "transaction failed at install: libfoo.so.1 is needed by kernel-2.6-1.i686; kernel conflicts with ksh-1.0-1.i386")
	r.AssertNotCalled(t, "Run", "rpm", []string{"-e", "--root", "/mnt/sysimage", "oldtool-1.0-1.i386"})
}

func TestCommitEmpty(t *testing.T) {
	r := new(runnerMock)
	c, _ := newCommitter(t, r)
	done, err := c.Commit(context.Background(), solver.NewPackageSet())
	require.NoError(t, err)
	assert.Empty(t, done)
	r.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestCommitLocked(t *testing.T) {
	r := new(runnerMock)
	c, _ := newCommitter(t, r)
	require.NoError(t, os.MkdirAll(filepath.Dir(c.LockFile), 0755))

	other := flock.New(c.LockFile)
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer other.Unlock()

	defer func(d time.Duration) { LockTimeout = d }(LockTimeout)
	LockTimeout = 200 * time.Millisecond

	_, err = c.Commit(context.Background(), newTx())
	assert.True(t, errors.Is(err, ErrLocked))
	r.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestProblems(t *testing.T) {
	out := []byte("warning: something\nerror: open of /nope.rpm failed: No such file or directory\n\n")
	assert.Equal(t, []string{"open of /nope.rpm failed: No such file or directory"}, Problems(out))
	assert.Empty(t, Problems(nil))
}

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

// Package header turns rpm package headers into package records.
package header

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/log-go"
	rpm "github.com/cavaliercoder/go-rpm"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
)

// ErrDamagedHeader is returned when the header of an rpm cannot be read,
// even after retrying.
var ErrDamagedHeader = errors.New("damaged package header")

// Header is the part of an rpm header a package record is built from.
// *rpm.PackageFile implements it.
type Header interface {
	Name() string
	Epoch() int
	Version() string
	Release() string
	Architecture() string
	Provides() []rpm.Dependency
	Requires() []rpm.Dependency
	Obsoletes() []rpm.Dependency
	Conflicts() []rpm.Dependency
}

// Opener reads the header of the rpm stored at path.
type Opener func(path string) (Header, error)

// OpenPackageFile opens path with go-rpm.
func OpenPackageFile(path string) (Header, error) {
	pf, err := rpm.OpenPackageFile(path)
	if err != nil {
		return nil, err
	}
	return pf, nil
}

// Loader reads package records from rpm files. Reads failing for reasons
// other than a missing or unreadable file are retried with a constant
// backoff before the header is reported damaged.
type Loader struct {
	Open     Opener
	Retries  uint64
	Interval time.Duration
	Logger   log.Logger
}

// NewLoader returns a Loader reading real rpm files.
func NewLoader(logger log.Logger) *Loader {
	return &Loader{
		Open:     OpenPackageFile,
		Retries:  2,
		Interval: 100 * time.Millisecond,
		Logger:   logger,
	}
}

// LoadHeader reads the rpm at location. The record's location is set to
// location and its origin to origin.
func (l *Loader) LoadHeader(ctx context.Context, location, origin string) (*pkg.Pkg, error) {
	var h Header
	attempt := 0

	err := backoff.Retry(func() error {
		attempt++
		var err error
		h, err = l.Open(location)
		if err == nil {
			return nil
		}
		if os.IsNotExist(err) || os.IsPermission(err) {
			return backoff.Permanent(err)
		}
		l.Logger.Debugf("reading header of %s failed (attempt %d): %s", location, attempt, err)
		return err
	},
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(l.Interval), l.Retries), ctx),
	)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return nil, errors.Wrapf(err, "cannot read %s", location)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrapf(ErrDamagedHeader, "%s: %s", location, err)
	}
	return FromHeader(h, location, origin), nil
}

// FromHeader builds a package record out of an rpm header. rpmlib()
// requirements are internal to rpm and are dropped.
func FromHeader(h Header, location, origin string) *pkg.Pkg {
	p := pkg.NewPkg(h.Name(), strconv.Itoa(h.Epoch()), h.Version(), h.Release(), h.Architecture(), location, origin)
	p.Provides = capabilities(h.Provides())
	p.Obsoletes = capabilities(h.Obsoletes())
	p.Conflicts = capabilities(h.Conflicts())
	for _, c := range capabilities(h.Requires()) {
		if strings.HasPrefix(c.Name, "rpmlib(") {
			continue
		}
		p.Requires = append(p.Requires, c)
	}
	return p
}

// Capability converts an rpm dependency.
func Capability(d rpm.Dependency) pkg.Capability {
	c := pkg.Capability{Name: d.Name(), Op: pkg.OpFromSense(d.Flags())}
	if c.Op == pkg.OpNone || d.Version() == "" {
		return pkg.Capability{Name: d.Name()}
	}
	c.EVR = pkg.EVR{
		Epoch:   strconv.Itoa(d.Epoch()),
		Version: d.Version(),
		Release: d.Release(),
	}
	return c
}

func capabilities(deps []rpm.Dependency) []pkg.Capability {
	if len(deps) == 0 {
		return nil
	}
	out := make([]pkg.Capability, 0, len(deps))
	for _, d := range deps {
		out = append(out, Capability(d))
	}
	return out
}

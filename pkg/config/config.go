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

// Package config reads and writes yumper.yaml, the file holding the
// resolution policy and the list of package sources.
package config

import (
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/rancher-sandbox/yumper/internal/solver"
)

// DefaultLockFile is taken while a transaction is committed.
const DefaultLockFile = "/var/run/yumper.pid"

// ErrNoBaseURL indicates that a repository has nowhere to load packages from.
var ErrNoBaseURL = errors.New("no baseurl specified")

// Repo is one configured package source.
type Repo struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	BaseURL string `json:"baseurl"`
	// Enabled defaults to true when missing
	Enabled *bool    `json:"enabled,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// IsEnabled reports whether the repository takes part in resolutions.
func (r *Repo) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Dir returns the local directory of the repository. Only plain paths and
// file:// URLs are supported.
func (r *Repo) Dir() (string, error) {
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid baseurl for repo %s", r.ID)
	}
	switch u.Scheme {
	case "":
		return filepath.Clean(r.BaseURL), nil
	case "file":
		return filepath.Clean(filepath.FromSlash(u.Path)), nil
	}
	return "", errors.Errorf("repo %s: unsupported baseurl scheme %q", r.ID, u.Scheme)
}

// File represents the yumper.yaml file
type File struct {
	// ExactArch defaults to true when missing
	ExactArch       *bool    `json:"exactarch,omitempty"`
	PkgPolicy       string   `json:"pkgpolicy,omitempty"`
	InstallOnlyPkgs []string `json:"installonlypkgs,omitempty"`
	Exclude         []string `json:"exclude,omitempty"`
	LockFile        string   `json:"lockfile,omitempty"`
	// MinVersion is a version constraint, like ">= 0.2", the client must
	// satisfy to use the file
	MinVersion string  `json:"minversion,omitempty"`
	Repos      []*Repo `json:"repos"`
}

// NewFile generates a configuration with the default policy and no
// repositories.
func NewFile() *File {
	return &File{
		PkgPolicy: string(solver.PolicyNewest),
		LockFile:  DefaultLockFile,
		Repos:     []*Repo{},
	}
}

// LoadFile takes a file at the given path and returns a File object
func LoadFile(path string) (*File, error) {
	f := NewFile()
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return f, errors.Wrapf(err, "couldn't load configuration file (%s)", path)
	}

	if err := yaml.UnmarshalStrict(b, f); err != nil {
		return f, errors.Wrapf(err, "error loading %s", path)
	}
	if f.LockFile == "" {
		f.LockFile = DefaultLockFile
	}
	return f, f.Validate()
}

// LoadFileOrDefault behaves like LoadFile, but a missing file yields the
// default configuration.
func LoadFileOrDefault(path string) (*File, error) {
	f, err := LoadFile(path)
	if err != nil && os.IsNotExist(errors.Cause(err)) {
		return NewFile(), nil
	}
	return f, err
}

// Validate checks the policy values and the repository list.
func (f *File) Validate() error {
	if _, err := f.Policy(); err != nil {
		return err
	}
	if f.MinVersion != "" {
		if _, err := semver.NewConstraint(f.MinVersion); err != nil {
			return errors.Wrapf(err, "invalid minversion %q", f.MinVersion)
		}
	}
	seen := map[string]bool{}
	for _, r := range f.Repos {
		if r.ID == "" {
			return errors.New("repository without id")
		}
		if seen[r.ID] {
			return errors.Errorf("repository %s is defined twice", r.ID)
		}
		seen[r.ID] = true
		if r.BaseURL == "" {
			return errors.Wrapf(ErrNoBaseURL, "repo %s", r.ID)
		}
	}
	return nil
}

// CheckVersion fails when the client version v does not satisfy
// MinVersion.
func (f *File) CheckVersion(v string) error {
	if f.MinVersion == "" {
		return nil
	}
	c, err := semver.NewConstraint(f.MinVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid minversion %q", f.MinVersion)
	}
	sv, err := semver.NewVersion(v)
	if err != nil {
		return errors.Wrapf(err, "invalid client version %q", v)
	}
	if !c.Check(sv) {
		return errors.Errorf("configuration requires yumper %s, this is %s", f.MinVersion, v)
	}
	return nil
}

// Policy returns the resolution policy described by the file.
func (f *File) Policy() (solver.Policy, error) {
	p := solver.DefaultPolicy()
	if f.ExactArch != nil {
		p.ExactArch = *f.ExactArch
	}
	switch solver.PkgPolicy(f.PkgPolicy) {
	case "":
	case solver.PolicyNewest, solver.PolicyLast:
		p.PkgPolicy = solver.PkgPolicy(f.PkgPolicy)
	default:
		return p, errors.Errorf("invalid pkgpolicy %q, allowed values: newest, last", f.PkgPolicy)
	}
	if f.InstallOnlyPkgs != nil {
		p.InstallOnly = append([]string(nil), f.InstallOnlyPkgs...)
	}
	p.Exclude = append([]string(nil), f.Exclude...)
	return p, nil
}

// Add adds one or more repo entries to a config file.
func (f *File) Add(re ...*Repo) {
	f.Repos = append(f.Repos, re...)
}

// Update attempts to replace one or more repo entries in a config file. If
// any of the supplied entries do not already exist, they will be added.
func (f *File) Update(re ...*Repo) {
	for _, target := range re {
		replaced := false
		for i, repo := range f.Repos {
			if repo.ID == target.ID {
				f.Repos[i] = target
				replaced = true
				break
			}
		}
		if !replaced {
			f.Add(target)
		}
	}
}

// Has returns true if the given id is already a repository id.
func (f *File) Has(id string) bool {
	return f.Get(id) != nil
}

// Get returns the repo entry with the given id, or nil.
func (f *File) Get(id string) *Repo {
	for _, r := range f.Repos {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Remove removes the entry from the list of repositories.
func (f *File) Remove(id string) bool {
	for i, r := range f.Repos {
		if r.ID == id {
			f.Repos = append(f.Repos[:i], f.Repos[i+1:]...)
			return true
		}
	}
	return false
}

// Enabled returns the repositories taking part in resolutions, in file
// order.
func (f *File) Enabled() []*Repo {
	out := []*Repo{}
	for _, r := range f.Repos {
		if r.IsEnabled() {
			out = append(out, r)
		}
	}
	return out
}

// WriteFile writes a config file to the given path.
func (f *File) WriteFile(path string, perm os.FileMode) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, perm)
}

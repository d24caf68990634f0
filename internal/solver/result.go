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

package solver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
)

const (
	StatusResolved   = "resolved"
	StatusUnresolved = "unresolved"
)

// PkgResultSet contains the status outcome of solving, and the different sets of
// packages derived from the outcome.
// It will be marshalled into Yaml and Json.
type PkgResultSet struct {
	ToInstall       []ResultElement `json:"to_install" yaml:"to_install"`
	ToUpdate        []ResultElement `json:"to_update" yaml:"to_update"`
	ToErase         []ResultElement `json:"to_erase" yaml:"to_erase"`
	Dependencies    []ResultElement `json:"dependencies" yaml:"dependencies"`
	Obsoleted       []string        `json:"obsoleted" yaml:"obsoleted"`
	Status          string          `json:"status" yaml:"status"`
	Inconsistencies []string        `json:"inconsistencies" yaml:"inconsistencies"`
}

// ResultElement is one transaction member as shown to users.
type ResultElement struct {
	Name       string `json:"name" yaml:"name"`
	Arch       string `json:"arch" yaml:"arch"`
	Version    string `json:"version" yaml:"version"`
	Repository string `json:"repository" yaml:"repository"`
	State      string `json:"state" yaml:"state"`
}

func newResultElement(e Entry) ResultElement {
	return ResultElement{
		Name:       e.Pkg.Name,
		Arch:       e.Pkg.Arch,
		Version:    e.Pkg.EVR().String(),
		Repository: e.Pkg.OriginID,
		State:      string(e.State),
	}
}

type OutputMode int

const (
	JSON OutputMode = iota
	YAML
	Table
)

// ParseOutputMode maps "json", "yaml" and "table" to an OutputMode.
func ParseOutputMode(s string) (OutputMode, error) {
	switch strings.ToLower(s) {
	case "json":
		return JSON, nil
	case "yaml":
		return YAML, nil
	case "table", "":
		return Table, nil
	}
	return Table, errors.Errorf("invalid output format %q, allowed values: table, json, yaml", s)
}

// GeneratePkgSets splits the transaction into the result sets. A non nil
// solveErr marks the result unresolved and records its problems.
func (s *Solver) GeneratePkgSets(solveErr error) {
	rs := &s.PkgResultSet
	rs.ToInstall = []ResultElement{}
	rs.ToUpdate = []ResultElement{}
	rs.ToErase = []ResultElement{}
	rs.Dependencies = []ResultElement{}
	if rs.Obsoleted == nil {
		rs.Obsoleted = []string{}
	}
	rs.Inconsistencies = []string{}

	if solveErr != nil {
		rs.Status = StatusUnresolved
		var depErr *DepError
		if errors.As(solveErr, &depErr) {
			rs.Inconsistencies = depErr.Problems()
		} else {
			rs.Inconsistencies = append(rs.Inconsistencies, solveErr.Error())
		}
		return
	}

	rs.Status = StatusResolved
	for _, e := range s.Tx.Entries() {
		switch e.State {
		case pkg.Install, pkg.InstallAsUpdate:
			rs.ToInstall = append(rs.ToInstall, newResultElement(e))
		case pkg.Update:
			rs.ToUpdate = append(rs.ToUpdate, newResultElement(e))
		case pkg.Erase:
			rs.ToErase = append(rs.ToErase, newResultElement(e))
		case pkg.UpdateDep, pkg.EraseDep:
			rs.Dependencies = append(rs.Dependencies, newResultElement(e))
		}
	}
}

// Empty reports whether a resolved transaction has nothing to do.
func (rs *PkgResultSet) Empty() bool {
	return len(rs.ToInstall)+len(rs.ToUpdate)+len(rs.ToErase)+len(rs.Dependencies) == 0
}

func (s *Solver) FormatOutput(t OutputMode) (string, error) {
	var sb strings.Builder
	switch t {
	case Table:
		if !s.IsResolved() {
			sb.WriteString("Inconsistencies:\n")
			for _, incons := range s.PkgResultSet.Inconsistencies {
				sb.WriteString(fmt.Sprintf("\t%s\n", incons))
			}
			return sb.String(), nil
		}
		table := uitable.New()
		table.AddRow("NAME", "ARCH", "VERSION", "REPOSITORY", "ACTION")
		for _, set := range [][]ResultElement{
			s.PkgResultSet.ToInstall,
			s.PkgResultSet.ToUpdate,
			s.PkgResultSet.ToErase,
			s.PkgResultSet.Dependencies,
		} {
			for _, r := range set {
				table.AddRow(r.Name, r.Arch, r.Version, r.Repository, r.State)
			}
		}
		sb.WriteString(fmt.Sprintf("Status: %s\n", s.PkgResultSet.Status))
		sb.WriteString(table.String())
		sb.WriteString("\n")
		if len(s.PkgResultSet.Obsoleted) > 0 {
			sb.WriteString(fmt.Sprintf("Obsoleted: %s\n", strings.Join(s.PkgResultSet.Obsoleted, ", ")))
		}
	case YAML:
		o, err := yaml.Marshal(s.PkgResultSet)
		if err != nil {
			return "", err
		}
		sb.Write(o)
	case JSON:
		o, err := json.Marshal(s.PkgResultSet)
		if err != nil {
			return "", err
		}
		sb.Write(o)
	}
	return sb.String(), nil
}

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

package repo

import (
	"compress/gzip"
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	pkg "github.com/rancher-sandbox/yumper/internal/package"
)

// ErrNoPrimary indicates that repomd.xml does not reference primary metadata.
var ErrNoPrimary = errors.New("no primary metadata in repomd.xml")

// RepoMd defines /repodata/repomd.xml structure:
//
//	<repomd>
//	    <revision>1485854918</revision>
//	    <data type="primary">...</data>
//	    <data type="filelists">...</data>
//	</repomd>
type RepoMd struct {
	Revision string       `xml:"revision"`
	Data     []RepoMdData `xml:"data"`
}

// RepoMdData defines <data> structure. Only the location is used.
type RepoMdData struct {
	Type     string   `xml:"type,attr"`
	Location Location `xml:"location"`
}

// Location defines <location href="..."/>
type Location struct {
	Href string `xml:"href,attr"`
}

// Metadata defines the primary.xml <metadata> structure:
//
//	<metadata xmlns="http://linux.duke.edu/metadata/common" xmlns:rpm="http://linux.duke.edu/metadata/rpm" packages="13">
//	    <package type="rpm">...</package>
//	</metadata>
type Metadata struct {
	PackagesCount int               `xml:"packages,attr"`
	Packages      []MetadataPackage `xml:"package"`
}

// MetadataPackage defines <metadata><package> structure:
//
//	<package type="rpm">
//	    <name>bash</name>
//	    <arch>i386</arch>
//	    <version epoch="0" ver="3.0" rel="19.2"/>
//	    <location href="Packages/bash-3.0-19.2.i386.rpm"/>
//	    <format>
//	        <rpm:provides><rpm:entry name="bash" flags="EQ" epoch="0" ver="3.0" rel="19.2"/></rpm:provides>
//	        <rpm:requires><rpm:entry name="libtermcap.so.2"/></rpm:requires>
//	    </format>
//	</package>
type MetadataPackage struct {
	Type     string          `xml:"type,attr"`
	Name     string          `xml:"name"`
	Arch     string          `xml:"arch"`
	Version  MetadataVersion `xml:"version"`
	Location Location        `xml:"location"`
	Format   MetadataFormat  `xml:"format"`
}

// MetadataVersion defines <version epoch="0" ver="0.0.1" rel="1"/>
type MetadataVersion struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

// MetadataFormat holds the dependency lists of a package.
type MetadataFormat struct {
	Provides  []MetadataEntry `xml:"provides>entry"`
	Requires  []MetadataEntry `xml:"requires>entry"`
	Obsoletes []MetadataEntry `xml:"obsoletes>entry"`
	Conflicts []MetadataEntry `xml:"conflicts>entry"`
}

// MetadataEntry defines <rpm:entry name="glibc" flags="GE" epoch="0" ver="2.3" rel="1"/>
type MetadataEntry struct {
	Name  string `xml:"name,attr"`
	Flags string `xml:"flags,attr"`
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

// Capability converts the entry. Entries without flags or version are
// unversioned.
func (e MetadataEntry) Capability() pkg.Capability {
	op := pkg.OpFromFlags(e.Flags)
	if op == pkg.OpNone || e.Ver == "" {
		return pkg.Capability{Name: e.Name}
	}
	return pkg.Capability{
		Name: e.Name,
		Op:   op,
		EVR:  pkg.EVR{Epoch: pkg.NormalizeEpoch(e.Epoch), Version: e.Ver, Release: e.Rel},
	}
}

func capabilities(entries []MetadataEntry) []pkg.Capability {
	if len(entries) == 0 {
		return nil
	}
	out := make([]pkg.Capability, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Capability())
	}
	return out
}

// Pkg builds a package record. The location is left as found in the
// metadata, relative to the repository.
func (m MetadataPackage) Pkg(origin string) *pkg.Pkg {
	p := pkg.NewPkg(m.Name, m.Version.Epoch, m.Version.Ver, m.Version.Rel, m.Arch, m.Location.Href, origin)
	p.Provides = capabilities(m.Format.Provides)
	p.Obsoletes = capabilities(m.Format.Obsoletes)
	p.Conflicts = capabilities(m.Format.Conflicts)
	for _, c := range capabilities(m.Format.Requires) {
		if !strings.HasPrefix(c.Name, "rpmlib(") {
			p.Requires = append(p.Requires, c)
		}
	}
	return p
}

// Validate reports why a metadata entry cannot become a package record.
func (m MetadataPackage) Validate() error {
	switch {
	case m.Type != "" && m.Type != "rpm":
		return errors.Errorf("unsupported package type %q", m.Type)
	case m.Name == "":
		return errors.New("package without name")
	case m.Arch == "":
		return errors.Errorf("package %s without arch", m.Name)
	case m.Version.Ver == "":
		return errors.Errorf("package %s without version", m.Name)
	case m.Location.Href == "":
		return errors.Errorf("package %s without location", m.Name)
	}
	return nil
}

// LoadRepoMd reads repomd.xml and returns the location of the primary
// metadata, relative to the repository.
func LoadRepoMd(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var md RepoMd
	if err := xml.NewDecoder(f).Decode(&md); err != nil {
		return "", errors.Wrapf(err, "error loading %s", path)
	}
	for _, d := range md.Data {
		if d.Type == "primary" && d.Location.Href != "" {
			return d.Location.Href, nil
		}
	}
	return "", errors.Wrapf(ErrNoPrimary, "%s", path)
}

// LoadPrimary reads a primary.xml file, gzip compressed when its name ends
// in .gz.
func LoadPrimary(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "error loading %s", path)
		}
		defer gz.Close()
		r = gz
	}

	var md Metadata
	if err := xml.NewDecoder(r).Decode(&md); err != nil {
		return nil, errors.Wrapf(err, "error loading %s", path)
	}
	return &md, nil
}

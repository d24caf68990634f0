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

package pkg

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidCapability is returned when a capability string is neither
// "name" nor "name op evr".
var ErrInvalidCapability = errors.New("invalid capability")

// Op is a relational operator of a versioned capability.
type Op string

const (
	OpNone Op = ""
	OpLT   Op = "<"
	OpLE   Op = "<="
	OpEQ   Op = "="
	OpEQ2  Op = "=="
	OpGE   Op = ">="
	OpGT   Op = ">"
)

// Known reports whether o is one of the relational operators.
func (o Op) Known() bool {
	switch o {
	case OpLT, OpLE, OpEQ, OpEQ2, OpGE, OpGT:
		return true
	}
	return false
}

// rpm dependency sense bits
const (
	senseLess    = 1 << 1
	senseGreater = 1 << 2
	senseEqual   = 1 << 3
)

// OpFromSense converts the sense bits of an rpm header dependency.
func OpFromSense(flags int) Op {
	switch flags & (senseLess | senseGreater | senseEqual) {
	case senseLess:
		return OpLT
	case senseLess | senseEqual:
		return OpLE
	case senseEqual:
		return OpEQ
	case senseGreater | senseEqual:
		return OpGE
	case senseGreater:
		return OpGT
	}
	return OpNone
}

// OpFromFlags converts the flags attribute used in repodata (LT, LE, EQ,
// GE, GT).
func OpFromFlags(flags string) Op {
	switch strings.ToUpper(flags) {
	case "LT":
		return OpLT
	case "LE":
		return OpLE
	case "EQ":
		return OpEQ
	case "GE":
		return OpGE
	case "GT":
		return OpGT
	}
	return OpNone
}

// Capability is a provides, requires, obsoletes or conflicts entry, in its
// textual form "name[ op epoch:version-release]".
type Capability struct {
	Name string
	Op   Op  `json:",omitempty" yaml:",omitempty"`
	EVR  EVR `json:",omitempty" yaml:",omitempty"`
}

// ParseCapability parses a one or three token capability.
func ParseCapability(s string) (Capability, error) {
	tokens := strings.Fields(s)
	switch len(tokens) {
	case 1:
		return Capability{Name: tokens[0]}, nil
	case 3:
		op := Op(tokens[1])
		if !op.Known() {
			return Capability{}, errors.Wrapf(ErrInvalidCapability, "unknown operator %q in %q", tokens[1], s)
		}
		return Capability{Name: tokens[0], Op: op, EVR: ParseEVR(tokens[2])}, nil
	}
	return Capability{}, errors.Wrapf(ErrInvalidCapability, "%q has %d tokens", s, len(tokens))
}

// MustParseCapabilities parses every entry and panics on error.
// Useful for testing.
func MustParseCapabilities(caps ...string) []Capability {
	out := make([]Capability, 0, len(caps))
	for _, s := range caps {
		c, err := ParseCapability(s)
		if err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}

// Versioned reports whether c carries an operator and a version.
func (c Capability) Versioned() bool {
	return c.Op != OpNone
}

// Valid reports whether c is either a bare name or a well formed versioned
// capability.
func (c Capability) Valid() bool {
	if c.Name == "" || strings.ContainsAny(c.Name, " \t") {
		return false
	}
	if c.Op == OpNone {
		return c.EVR == EVR{}
	}
	return c.Op.Known() && c.EVR.Version != ""
}

func (c Capability) String() string {
	if !c.Versioned() {
		return c.Name
	}
	return fmt.Sprintf("%s %s %s", c.Name, c.Op, c.EVR)
}

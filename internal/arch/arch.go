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

/*
Package arch decides which package architectures can be installed on the
running machine and which of two architectures is preferred.

Every machine type is normalised to a base architecture (all i?86 become
i386, sparc* and sun* become sparc, ...). Each base architecture has an
ordered compatibility list, always ending in noarch. Preference between two
architectures comes from a score: lower is better, 0 means the architecture
cannot be installed at all.
*/
package arch

import (
	"runtime"
	"strings"
)

// Noarch is installable everywhere.
const Noarch = "noarch"

var goArchToRpmArch = map[string]string{
	"386":     "i686",
	"amd64":   "x86_64",
	"arm64":   "aarch64",
	"ppc64":   "ppc64",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
	"sparc64": "sparc64",
}

// compatLists maps a base architecture to the architectures installable on
// it. Order is compatibility, not preference.
var compatLists = map[string][]string{
	"i386":    {"athlon", "i686", "i586", "i486", "i386", Noarch},
	"x86_64":  {"x86_64", "athlon", "i686", "i586", "i486", "i386", Noarch},
	"ia64":    {"ia64", "i686", "i586", "i486", "i386", Noarch},
	"ppc":     {"ppc", Noarch},
	"ppc64":   {"ppc64", "ppc64pseries", "ppc64iseries", "ppc", Noarch},
	"ppc64le": {"ppc64le", Noarch},
	"alpha":   {"alphaev68", "alphaev67", "alphaev6", "alphapca56", "alphaev56", "alphaev5", "alpha", Noarch},
	"sparc":   {"sparc64", "sparcv9", "sparcv8", "sparc", Noarch},
	"s390":    {"s390", Noarch},
	"s390x":   {"s390x", "s390", Noarch},
	"aarch64": {"aarch64", Noarch},
}

// machineChains is what rpm would accept on a given machine, most preferred
// first. Scores are positions in this chain.
var machineChains = map[string][]string{
	"x86_64":  {"x86_64", "amd64", "ia32e", "athlon", "i686", "i586", "i486", "i386", Noarch},
	"athlon":  {"athlon", "i686", "i586", "i486", "i386", Noarch},
	"i686":    {"i686", "i586", "i486", "i386", Noarch},
	"i586":    {"i586", "i486", "i386", Noarch},
	"i486":    {"i486", "i386", Noarch},
	"i386":    {"i386", Noarch},
	"ia64":    {"ia64", "i686", "i586", "i486", "i386", Noarch},
	"ppc":     {"ppc", Noarch},
	"ppc64":   {"ppc64", "ppc64pseries", "ppc64iseries", "ppc", Noarch},
	"ppc64le": {"ppc64le", Noarch},
	"sparc64": {"sparc64", "sparcv9", "sparcv8", "sparc", Noarch},
	"sparcv9": {"sparcv9", "sparcv8", "sparc", Noarch},
	"sparcv8": {"sparcv8", "sparc", Noarch},
	"sparc":   {"sparc", Noarch},
	"s390x":   {"s390x", "s390", Noarch},
	"s390":    {"s390", Noarch},
	"aarch64": {"aarch64", Noarch},
	"alpha":   {"alpha", Noarch},
}

// Machine returns the rpm name of the architecture this binary runs on.
func Machine() string {
	if a, ok := goArchToRpmArch[runtime.GOARCH]; ok {
		return a
	}
	return runtime.GOARCH
}

// BaseArch normalises a machine type into its base architecture.
func BaseArch(machine string) string {
	switch {
	case len(machine) == 4 && machine[0] == 'i' && machine[2:] == "86":
		return "i386"
	case machine == "athlon":
		return "i386"
	case strings.HasPrefix(machine, "sparc"), strings.HasPrefix(machine, "sun"):
		return "sparc"
	case strings.HasPrefix(machine, "alpha"):
		return "alpha"
	case machine == "ppc64pseries", machine == "ppc64iseries":
		return "ppc64"
	case machine == "amd64", machine == "ia32e":
		return "x86_64"
	}
	return machine
}

// ScoreFunc returns the preference of an architecture on the running
// machine: lower is better, 0 is incompatible.
type ScoreFunc func(arch string) int

// MachineScore builds the ScoreFunc rpm would use on machine.
func MachineScore(machine string) ScoreFunc {
	chain, ok := machineChains[machine]
	if !ok {
		chain = []string{machine, Noarch}
	}
	scores := make(map[string]int, len(chain))
	for i, a := range chain {
		scores[a] = i + 1
	}
	return func(arch string) int {
		return scores[arch]
	}
}

// Lookup is the part of a package registry the compatibility policy needs.
type Lookup interface {
	Has(name, arch string) bool
}

// Compat holds the architecture policy for one machine.
type Compat struct {
	Base  string
	List  []string
	Score ScoreFunc
}

// New returns the policy for the given machine type, e.g. "i686".
func New(machine string) *Compat {
	base := BaseArch(machine)
	list, ok := compatLists[base]
	if !ok {
		list = []string{base, Noarch}
	}
	return &Compat{Base: base, List: list, Score: MachineScore(machine)}
}

// NewWithScores builds a policy from an explicit compatibility list and score
// table. Architectures missing from scores score 0.
// Useful for testing.
func NewWithScores(base string, list []string, scores map[string]int) *Compat {
	return &Compat{
		Base:  base,
		List:  list,
		Score: func(a string) int { return scores[a] },
	}
}

// Compatible reports whether arch is in the compatibility list.
func (c *Compat) Compatible(arch string) bool {
	for _, a := range c.List {
		if a == arch {
			return true
		}
	}
	return false
}

// AvailableArchs returns the architectures of the compatibility list for
// which the registry holds name. The order is the compatibility list order.
func (c *Compat) AvailableArchs(registry Lookup, name string) []string {
	archs := []string{}
	for _, a := range c.List {
		if registry.Has(name, a) {
			archs = append(archs, a)
		}
	}
	return archs
}

// BetterArch returns the preferred of a and b, or "" when neither can be
// installed. Equal scores favour a.
func (c *Compat) BetterArch(a, b string) string {
	sa, sb := c.score(a), c.score(b)
	switch {
	case sa == 0 && sb == 0:
		return ""
	case sa == 0:
		return b
	case sb == 0:
		return a
	case sb < sa:
		return b
	}
	return a
}

// BestArch folds BetterArch over archs from the left. It must not be called
// with an empty list; "" is returned in that case.
func (c *Compat) BestArch(archs []string) string {
	if len(archs) == 0 {
		return ""
	}
	best := archs[0]
	for _, a := range archs[1:] {
		best = c.BetterArch(best, a)
	}
	return best
}

func (c *Compat) score(a string) int {
	if a == "" {
		return 0
	}
	return c.Score(a)
}

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
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ErrUnresolved is the cause of every DepError.
var ErrUnresolved = errors.New("dependencies could not be resolved")

// DepError carries every problem found by the last passes of the repair
// loop, in the order the checker reported them.
type DepError struct {
	Unresolvable []string
	Conflicts    []string
}

// Problems returns the unresolvable requirements followed by the conflicts.
func (e *DepError) Problems() []string {
	return append(append([]string{}, e.Unresolvable...), e.Conflicts...)
}

// Errors returns one error per problem.
func (e *DepError) Errors() []error {
	var err error
	for _, p := range e.Problems() {
		err = multierr.Append(err, errors.New(p))
	}
	return multierr.Errors(err)
}

func (e *DepError) Error() string {
	return ErrUnresolved.Error() + ":\n  " + strings.Join(e.Problems(), "\n  ")
}

// Cause makes errors.Cause return ErrUnresolved.
func (e *DepError) Cause() error { return ErrUnresolved }

// Unwrap makes errors.Is match ErrUnresolved.
func (e *DepError) Unwrap() error { return ErrUnresolved }

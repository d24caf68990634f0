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
Solver works out which packages are installed, which are available, which
are newer and which obsolete others, and the install/update/erase
transaction that brings the system to a consistent state.

A package is a record identified by its (name, arch) inside a PackageSet,
carrying its epoch, version and release, where it comes from (the installed
rpm database, or a location in a source), and a state tag saying why it is
in the set (install, update, erase, update-dependency...).

To perform an operation, for example "update", we:

 1. Build the world:
    - The installed PackageSet, one entry per installed name and arch.
    - The available PackageSet, merged from every enabled source, keeping only
    architectures the machine can install.

 2. Select candidates (Selector). For every available name we decide whether
    it is new, or an update of something installed. Names available or
    installed in a single architecture compare that architecture directly.
    Names with several architectures pick a representative per registry: the
    best scored architecture among those holding the highest version. With
    exactarch, only installed architectures are compared to the same
    architecture on the available side.

 3. Resolve obsoletes (ResolveObsoletes), in both directions: which
    available packages obsolete which installed names.

 4. Seed a transaction PackageSet from the candidates, the obsoletes and the
    user request.

 5. Repair the transaction (Repairer). A Checker reports unsatisfied
    requirements and conflicts of the transaction as it is. Missing providers
    are added as update-dependency and the check runs again, until the checker
    is satisfied or something cannot be fixed. This is a repair loop, not a
    solver: there is no backtracking.

 6. Split the transaction into result sets (PkgResultSet): packages to
    install, update, erase, dependencies pulled in, and the inconsistencies
    found if the transaction could not be repaired.
*/
package solver

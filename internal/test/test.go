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

// Package test compares test output with golden files under testdata/.
package test

import (
	"bytes"
	"flag"
	"io/ioutil"
	"path/filepath"
	"strings"
)

var update = flag.Bool("update", false, "rewrite golden files with the actual output")

// TestingT is the part of testing.T the assertions need.
type TestingT interface {
	Helper()
	Fatalf(string, ...interface{})
}

// AssertGoldenString fails t when actual differs from testdata/filename,
// line endings aside. With -update the file is rewritten instead.
func AssertGoldenString(t TestingT, actual, filename string) {
	t.Helper()

	golden := filepath.Join("testdata", filepath.FromSlash(filename))
	got := normalize([]byte(actual))
	if *update {
		if err := ioutil.WriteFile(golden, got, 0644); err != nil {
			t.Fatalf("cannot update %s: %v", golden, err)
		}
		return
	}
	want, err := ioutil.ReadFile(golden)
	if err != nil {
		t.Fatalf("cannot read golden file: %v", err)
	}
	if want = normalize(want); !bytes.Equal(want, got) {
		t.Fatalf("output does not match %s\n\nWANT:\n%s\n\nGOT:\n%s", golden, want, got)
	}
}

func normalize(in []byte) []byte {
	return []byte(strings.ReplaceAll(string(in), "\r\n", "\n"))
}

// Package testutil provides shared test infrastructure for the cache simulator.
// It holds testdata lookup and assertion helpers used across sim/ test packages.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// TestdataPath resolves name inside the repository's testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ to testdata/.
func TestdataPath(t *testing.T, name string) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", name)
}

// ReadTestdata returns the contents of a file in the testdata directory.
func ReadTestdata(t *testing.T, name string) []byte {
	t.Helper()

	data, err := os.ReadFile(TestdataPath(t, name))
	if err != nil {
		t.Fatalf("Failed to read testdata %s: %v", name, err)
	}
	return data
}

// AssertSubset fails the test if any element of child is missing from parent.
func AssertSubset[T comparable](t *testing.T, child, parent []T, context string) bool {
	t.Helper()

	present := make(map[T]struct{}, len(parent))
	for _, p := range parent {
		present[p] = struct{}{}
	}
	for _, c := range child {
		if _, ok := present[c]; !ok {
			t.Errorf("%s: %v not in %v", context, c, parent)
			return false
		}
	}
	return true
}

// Package pep503 implements the canonical package-name folding rule used by
// the simple index: equivalent spellings of a project name must map to one
// catalog entry.
package pep503

import (
	"regexp"
	"strings"
)

var separatorRun = regexp.MustCompile(`[-_.]+`)

// Normalize lowercases a project name and collapses every maximal run of
// '-', '_' and '.' into a single '-'. Lookups from standard packaging
// clients depend on this equivalence: "Foo_Bar" and "foo-bar" resolve to
// the same project.
func Normalize(name string) string {
	return strings.ToLower(separatorRun.ReplaceAllString(name, "-"))
}

// IsNormalized reports whether name is already in canonical form.
func IsNormalized(name string) bool {
	return name == Normalize(name)
}

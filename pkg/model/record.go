// Package model provides data structures and types for representing
// distribution files, parsed package records, and related metadata in the
// pindex package-index server.
package model

import (
	"time"

	"github.com/glorpus-work/pindex/pkg/pep440"
)

// Format identifies the distribution archive flavor of a file.
type Format string

// Recognized distribution formats.
const (
	FormatSdist Format = "sdist"
	FormatWheel Format = "wheel"
	FormatEgg   Format = "egg"
	FormatOther Format = "other"
)

// ParseQuality describes how much of a filename could be recovered.
type ParseQuality string

// Parse quality levels. Unparsable records are retained for flat file
// listings but never enter the per-project index.
const (
	QualityFullyParsed ParseQuality = "fully-parsed"
	QualityNameOnly    ParseQuality = "name-only"
	QualityUnparsable  ParseQuality = "unparsable"
)

// PackageRecord represents one distribution file known to the catalog.
// RawFilename is the stable identity: two records with the same RawFilename
// cannot coexist in a snapshot.
type PackageRecord struct {
	RawFilename    string         `json:"filename"`
	StoragePath    string         `json:"-"`
	PackageName    string         `json:"package_name,omitempty"`
	NormalizedName string         `json:"normalized_name,omitempty"`
	Version        pep440.Version `json:"version,omitempty"`
	Format         Format         `json:"format"`
	PythonTag      string         `json:"python_tag,omitempty"`
	AbiTag         string         `json:"abi_tag,omitempty"`
	PlatformTag    string         `json:"platform_tag,omitempty"`
	Size           int64          `json:"size"`
	LastModified   time.Time      `json:"last_modified"`
	Quality        ParseQuality   `json:"quality"`
}

// Indexed reports whether the record belongs in the per-project index.
func (r *PackageRecord) Indexed() bool {
	return r.Quality != QualityUnparsable && r.NormalizedName != ""
}

// Compare orders records by version, ties broken by raw filename so that
// snapshot bucket order is deterministic.
func (r *PackageRecord) Compare(other *PackageRecord) int {
	if c := pep440.Compare(r.Version, other.Version); c != 0 {
		return c
	}
	switch {
	case r.RawFilename < other.RawFilename:
		return -1
	case r.RawFilename > other.RawFilename:
		return 1
	}
	return 0
}

// FileInfo describes one file found on backing storage. Name is the base
// filename (the catalog identity); Path is the storage-root-relative path
// used to read the file back.
type FileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
}

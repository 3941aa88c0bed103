// Package distfile parses distribution filenames into package records.
// Parsing is best effort and never fails: a filename that matches no known
// grammar yields a record with unparsable quality so the file still shows
// up in flat listings.
package distfile

import (
	"regexp"
	"strings"

	"github.com/glorpus-work/pindex/pkg/model"
	"github.com/glorpus-work/pindex/pkg/pep440"
	"github.com/glorpus-work/pindex/pkg/pep503"
)

// archiveSuffixes maps recognized extensions to their format, checked
// longest-first so ".tar.gz" wins over ".gz"-style confusion.
var archiveSuffixes = []struct {
	suffix string
	format model.Format
}{
	{".tar.bz2", model.FormatSdist},
	{".tar.gz", model.FormatSdist},
	{".tar.xz", model.FormatSdist},
	{".tar.z", model.FormatSdist},
	{".tar", model.FormatSdist},
	{".tgz", model.FormatSdist},
	{".tbz", model.FormatSdist},
	{".txz", model.FormatSdist},
	{".zip", model.FormatSdist},
	{".whl", model.FormatWheel},
	{".egg", model.FormatEgg},
}

const (
	wheelSegments      = 5
	wheelBuildSegments = 6
)

// pyTagSegment matches trailing python-version markers on egg names,
// e.g. "py2.7" in "demo-1.0-py2.7.egg".
var pyTagSegment = regexp.MustCompile(`^py\d(\.\d+)?$`)

// Parse converts a distribution filename into a package record. The worst
// outcome is a record with QualityUnparsable; the raw filename is always
// retained.
func Parse(filename string) *model.PackageRecord {
	rec := &model.PackageRecord{
		RawFilename: filename,
		Format:      model.FormatOther,
		Quality:     model.QualityUnparsable,
	}

	stem, format, ok := stripArchiveSuffix(filename)
	if !ok || stem == "" {
		return rec
	}
	rec.Format = format

	switch format {
	case model.FormatWheel:
		parseWheel(stem, rec)
	case model.FormatEgg:
		parseLegacy(stem, rec, true)
	default:
		parseLegacy(stem, rec, false)
	}

	if rec.PackageName != "" {
		rec.NormalizedName = pep503.Normalize(rec.PackageName)
	}
	return rec
}

// ParseFile builds a record from a scanned file, carrying over the
// filesystem metadata.
func ParseFile(fi model.FileInfo) *model.PackageRecord {
	rec := Parse(fi.Name)
	rec.StoragePath = fi.Path
	rec.Size = fi.Size
	rec.LastModified = fi.ModTime
	return rec
}

func digitLed(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func stripArchiveSuffix(filename string) (string, model.Format, bool) {
	lower := strings.ToLower(filename)
	for _, e := range archiveSuffixes {
		if strings.HasSuffix(lower, e.suffix) {
			return filename[:len(filename)-len(e.suffix)], e.format, true
		}
	}
	return "", model.FormatOther, false
}

// parseWheel splits a wheel stem into its dash-delimited segments:
// name-version(-build)-pythontag-abitag-platformtag. A segment-count
// mismatch degrades to a best-effort name/version guess.
func parseWheel(stem string, rec *model.PackageRecord) {
	parts := strings.Split(stem, "-")
	switch {
	case len(parts) == wheelSegments && digitLed(parts[1]):
		rec.PythonTag, rec.AbiTag, rec.PlatformTag = parts[2], parts[3], parts[4]
	case len(parts) == wheelBuildSegments && digitLed(parts[1]) && digitLed(parts[2]):
		// version and the optional build tag both start with a digit
		rec.PythonTag, rec.AbiTag, rec.PlatformTag = parts[3], parts[4], parts[5]
	default:
		// a wheel with the wrong segment count keeps its best-effort
		// split but never counts as fully parsed
		parseLegacy(stem, rec, false)
		if rec.Quality == model.QualityFullyParsed {
			rec.Quality = model.QualityNameOnly
		}
		return
	}

	rec.PackageName = parts[0]
	rec.Version = pep440.Parse(parts[1])
	if rec.Version.Unknown() {
		rec.Quality = model.QualityNameOnly
	} else {
		rec.Quality = model.QualityFullyParsed
	}
}

// parseLegacy handles sdist and egg stems with the permissive heuristic:
// the version is the longest trailing dash-separated run whose first
// segment starts with a digit; everything before it is the name. With
// multiple digit-led segments the leftmost wins, so "a-1-b-2" splits into
// name "a" and version "1-b-2". Eggs may carry a trailing python tag,
// which is stripped off first.
func parseLegacy(stem string, rec *model.PackageRecord, egg bool) {
	parts := strings.Split(stem, "-")
	if egg {
		for i, p := range parts[1:] {
			if pyTagSegment.MatchString(strings.ToLower(p)) {
				rec.PythonTag = p
				parts = parts[:i+1]
				break
			}
		}
	}

	split := -1
	for i := 1; i < len(parts); i++ {
		if digitLed(parts[i]) {
			split = i
			break
		}
	}

	if split < 0 {
		rec.PackageName = strings.Join(parts, "-")
		rec.Quality = model.QualityNameOnly
		return
	}

	rec.PackageName = strings.Join(parts[:split], "-")
	rec.Version = pep440.Parse(strings.Join(parts[split:], "-"))
	if rec.Version.Unknown() {
		rec.Quality = model.QualityNameOnly
	} else {
		rec.Quality = model.QualityFullyParsed
	}
}

package store

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	version "github.com/hashicorp/go-version"

	"github.com/glorpus-work/pindex/pkg/errors"
	"github.com/glorpus-work/pindex/pkg/fsutil"
	"github.com/glorpus-work/pindex/pkg/model"
)

// ManifestFormatVersion is written into every saved manifest.
const ManifestFormatVersion = "1.0.0"

// manifestFormatConstraint gates which manifest files we are willing to
// read back; anything outside it is discarded rather than misread.
var manifestFormatConstraint = version.MustConstraints(version.NewConstraint(">= 1.0, < 2.0"))

// Manifest is the persisted record of the last completed storage listing.
// It lets a restarted server report how stale its previous view was and
// seeds the first diff.
type Manifest struct {
	FormatVersion string           `json:"format_version"`
	ScannedAt     time.Time        `json:"scanned_at"`
	Files         []model.FileInfo `json:"files"`
}

// LoadManifest reads a manifest from path. A missing file returns
// ErrFileNotFound; an unreadable or format-incompatible one returns a
// decode/format error so callers can fall back to a cold full scan.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrFileNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "failed to read manifest %s", path)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrManifestDecode, err.Error())
	}
	v, err := version.NewVersion(m.FormatVersion)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrManifestDecode, "bad format version %q", m.FormatVersion)
	}
	if !manifestFormatConstraint.Check(v) {
		return nil, errors.Wrapf(errors.ErrManifestFormat, "%s", m.FormatVersion)
	}
	return &m, nil
}

// SaveManifest atomically writes the listing to path.
func SaveManifest(path string, files []model.FileInfo) error {
	m := Manifest{
		FormatVersion: ManifestFormatVersion,
		ScannedAt:     time.Now().UTC(),
		Files:         files,
	}
	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal scan manifest")
	}
	if _, err := fsutil.AtomicWrite(path, bytes.NewReader(data)); err != nil {
		return errors.Wrapf(err, "failed to save scan manifest %s", path)
	}
	return nil
}

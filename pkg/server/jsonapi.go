package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/glorpus-work/pindex/pkg/model"
	"github.com/glorpus-work/pindex/pkg/pep503"
)

// releaseFile is one entry in the legacy JSON API release lists.
type releaseFile struct {
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	UploadTime  string `json:"upload_time"`
	PackageType string `json:"packagetype"`
	Digests     struct {
		SHA256 string `json:"sha256,omitempty"`
	} `json:"digests"`
}

// handleProjectJSON serves the pre-PEP-691 per-project metadata document
// that older tooling still queries.
func (s *Server) handleProjectJSON(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	name := pep503.Normalize(r.PathValue("name"))
	records := snap.Project(name)
	if len(records) == 0 {
		http.NotFound(w, r)
		return
	}

	releases := make(map[string][]releaseFile)
	for _, rec := range records {
		version := rec.Version.Raw()
		entry := releaseFile{
			Filename:    rec.RawFilename,
			URL:         "/packages/" + rec.RawFilename,
			Size:        rec.Size,
			UploadTime:  rec.LastModified.UTC().Format(time.RFC3339),
			PackageType: packageType(rec.Format),
		}
		entry.Digests.SHA256 = s.digests.get(s.storage, rec)
		releases[version] = append(releases[version], entry)
	}

	latest, _ := snap.Latest(name)
	doc := map[string]any{
		"info": map[string]string{
			"name":    name,
			"version": latest.Version.Raw(),
		},
		"releases": releases,
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(doc)
}

func packageType(format model.Format) string {
	switch format {
	case model.FormatWheel:
		return "bdist_wheel"
	case model.FormatEgg:
		return "bdist_egg"
	case model.FormatSdist:
		return "sdist"
	default:
		return "file"
	}
}

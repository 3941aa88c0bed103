package server

import (
	"fmt"
	"net/http"
	"path"

	"github.com/sirupsen/logrus"

	"github.com/glorpus-work/pindex/pkg/distfile"
	"github.com/glorpus-work/pindex/pkg/logger"
	"github.com/glorpus-work/pindex/pkg/model"
	"github.com/glorpus-work/pindex/pkg/pep503"
	"github.com/glorpus-work/pindex/pkg/refresh"
)

// maxUploadMemory bounds the in-memory part of multipart parsing; larger
// file parts spill to temporary files.
const maxUploadMemory = 32 << 20

// handleAction dispatches the twine-style form endpoint. The ":action"
// field selects between uploading a distribution file and removing a
// release.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "expected a multipart form", http.StatusBadRequest)
		return
	}
	switch action := r.FormValue(":action"); action {
	case "file_upload":
		s.handleFileUpload(w, r)
	case "remove_pkg":
		s.handleRemovePkg(w, r)
	default:
		http.Error(w, fmt.Sprintf("unsupported action %q", action), http.StatusBadRequest)
	}
}

func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	headers, ok := r.MultipartForm.File["content"]
	if !ok || len(headers) == 0 {
		http.Error(w, "missing file part \"content\"", http.StatusBadRequest)
		return
	}
	header := headers[0]
	filename := path.Base(header.Filename)
	if filename == "." || filename == "/" || filename == "" {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	if rec := distfile.Parse(filename); rec.Quality == model.QualityUnparsable {
		http.Error(w, fmt.Sprintf("not a recognized distribution file: %q", filename), http.StatusBadRequest)
		return
	}
	if s.storage.Exists(filename) && !s.cfg.AllowOverwrite {
		http.Error(w, fmt.Sprintf("%q already exists", filename), http.StatusConflict)
		return
	}

	f, err := header.Open()
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := s.storage.Write(filename, f)
	if err != nil {
		logger.Error("failed to store upload", logrus.Fields{"filename": filename, "error": err})
		http.Error(w, "failed to store file", http.StatusInternalServerError)
		return
	}
	if err := s.refresher.Notify(r.Context(), filename, refresh.ActionAdded); err != nil {
		logger.Warn("failed to index uploaded file", logrus.Fields{"filename": filename, "error": err})
	}
	logger.Info("file uploaded", logrus.Fields{"filename": filename, "size": info.Size})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRemovePkg(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	version := r.FormValue("version")
	if name == "" || version == "" {
		http.Error(w, "name and version are required", http.StatusBadRequest)
		return
	}
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	records := snap.Project(pep503.Normalize(name))

	removed := 0
	for _, rec := range records {
		if rec.Version.Raw() != version {
			continue
		}
		if err := s.storage.Remove(rec.StoragePath); err != nil {
			logger.Error("failed to remove file", logrus.Fields{"filename": rec.RawFilename, "error": err})
			http.Error(w, "failed to remove file", http.StatusInternalServerError)
			return
		}
		if err := s.refresher.Notify(r.Context(), rec.RawFilename, refresh.ActionRemoved); err != nil {
			logger.Warn("failed to deindex removed file", logrus.Fields{"filename": rec.RawFilename, "error": err})
		}
		removed++
	}
	if removed == 0 {
		http.NotFound(w, r)
		return
	}
	logger.Info("release removed", logrus.Fields{"name": name, "version": version, "files": removed})
	w.WriteHeader(http.StatusOK)
}

// Package server renders catalog query results over HTTP: the simple
// index (HTML and JSON), the legacy per-project JSON API, file downloads,
// and the upload/remove form endpoint. It terminates no business logic of
// its own: every response is built from one catalog snapshot, and every
// mutation is handed to the refresher after the file operation completed.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/glorpus-work/pindex/pkg/catalog"
	"github.com/glorpus-work/pindex/pkg/config"
	pindexerrors "github.com/glorpus-work/pindex/pkg/errors"
	"github.com/glorpus-work/pindex/pkg/logger"
	"github.com/glorpus-work/pindex/pkg/refresh"
	"github.com/glorpus-work/pindex/pkg/store"
)

const shutdownTimeout = 10 * time.Second

// Server wires the catalog, storage and refresher into an http.Handler.
type Server struct {
	cfg       config.ServerConfig
	catalog   *catalog.Catalog
	storage   *store.Dir
	refresher *refresh.Refresher
	digests   *digestCache
}

// New creates a Server. The refresher receives a notification for every
// completed upload or delete.
func New(cat *catalog.Catalog, storage *store.Dir, refresher *refresh.Refresher, cfg config.ServerConfig) *Server {
	return &Server{
		cfg:       cfg,
		catalog:   cat,
		storage:   storage,
		refresher: refresher,
		digests:   newDigestCache(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleWelcome)
	mux.HandleFunc("POST /{$}", s.handleAction)
	mux.HandleFunc("GET /simple/{$}", s.handleSimpleIndex)
	mux.HandleFunc("GET /simple/{name}", s.handleProjectRedirect)
	mux.HandleFunc("GET /simple/{name}/{$}", s.handleProject)
	mux.HandleFunc("GET /packages/{$}", s.handleFileList)
	mux.HandleFunc("GET /packages/{filename...}", s.handleDownload)
	mux.HandleFunc("GET /{name}/json", s.handleProjectJSON)
	return logRequests(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", logrus.Fields{"addr": addr})
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("Ok"))
}

// snapshot fetches the current catalog view or answers the request with
// 503 when the catalog has not finished its first scan. That state is
// transient and retryable, never permanent.
func (s *Server) snapshot(w http.ResponseWriter) (*catalog.Snapshot, bool) {
	snap, err := s.catalog.Current()
	if err != nil {
		w.Header().Set("Retry-After", "1")
		http.Error(w, "catalog is still initializing", http.StatusServiceUnavailable)
		return nil, false
	}
	s.digests.prune(snap)
	return snap, true
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	filename := r.PathValue("filename")
	rec, found := snap.Lookup(filename)
	if !found {
		http.NotFound(w, r)
		return
	}
	f, _, err := s.storage.Open(rec.StoragePath)
	if err != nil {
		if errors.Is(err, pindexerrors.ErrFileNotFound) {
			http.NotFound(w, r)
			return
		}
		logger.Error("failed to open package file", logrus.Fields{"filename": filename, "error": err})
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", "application/octet-stream")
	if s.cfg.CacheControl > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", s.cfg.CacheControl))
	}
	http.ServeContent(w, r, rec.RawFilename, rec.LastModified, f)
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		logger.Debug("request", logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"status":  rec.status,
			"elapsed": time.Since(start).Round(time.Microsecond).String(),
		})
	})
}

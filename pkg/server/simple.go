package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/glorpus-work/pindex/pkg/logger"
	"github.com/glorpus-work/pindex/pkg/model"
	"github.com/glorpus-work/pindex/pkg/pep503"
)

const simpleJSONContentType = "application/vnd.pypi.simple.v1+json"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
  <head>
    <title>Simple index</title>
  </head>
  <body>
{{- range .}}
    <a href="{{.}}/">{{.}}</a><br>
{{- end}}
  </body>
</html>
`))

var projectTemplate = template.Must(template.New("project").Parse(`<!DOCTYPE html>
<html>
  <head>
    <title>Links for {{.Name}}</title>
  </head>
  <body>
    <h1>Links for {{.Name}}</h1>
{{- range .Files}}
    <a href="{{.Href}}">{{.Filename}}</a><br>
{{- end}}
  </body>
</html>
`))

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
  <head>
    <title>pindex</title>
  </head>
  <body>
    <h1>Welcome to pindex!</h1>
    <p>{{.Message}}</p>
    <p>This index serves {{.FileCount}} files across {{.ProjectCount}} projects.</p>
    <p>
      <a href="simple/">simple index</a> |
      <a href="packages/">package files</a>
    </p>
  </body>
</html>
`))

var fileListTemplate = template.Must(template.New("files").Parse(`<!DOCTYPE html>
<html>
  <head>
    <title>Index of packages</title>
  </head>
  <body>
{{- range .}}
    <a href="{{.}}">{{.}}</a><br>
{{- end}}
  </body>
</html>
`))

func wantsSimpleJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), simpleJSONContentType)
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	message := s.cfg.WelcomeMessage
	if message == "" {
		message = "This is a private package index."
	}
	data := struct {
		Message      string
		FileCount    int
		ProjectCount int
	}{
		Message:      message,
		FileCount:    len(snap.Files()),
		ProjectCount: len(snap.Names()),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := welcomeTemplate.Execute(w, data); err != nil {
		logTemplateError(r, err)
	}
}

func (s *Server) handleSimpleIndex(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	if wantsSimpleJSON(r) {
		type project struct {
			Name string `json:"name"`
		}
		projects := make([]project, 0, len(snap.Names()))
		for _, name := range snap.Names() {
			projects = append(projects, project{Name: name})
		}
		writeSimpleJSON(w, map[string]any{
			"meta":     map[string]string{"api-version": "1.0"},
			"projects": projects,
		})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, snap.Names()); err != nil {
		logTemplateError(r, err)
	}
}

// handleProjectRedirect canonicalizes bare project URLs: /simple/Foo_Bar
// becomes /simple/foo-bar/.
func (s *Server) handleProjectRedirect(w http.ResponseWriter, r *http.Request) {
	name := pep503.Normalize(r.PathValue("name"))
	http.Redirect(w, r, "/simple/"+name+"/", http.StatusMovedPermanently)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	rawName := r.PathValue("name")
	name := pep503.Normalize(rawName)
	if name != rawName {
		http.Redirect(w, r, "/simple/"+name+"/", http.StatusMovedPermanently)
		return
	}
	records := snap.Project(name)
	if len(records) == 0 {
		if url := s.fallbackURL(name); url != "" {
			http.Redirect(w, r, url, http.StatusFound)
			return
		}
		http.NotFound(w, r)
		return
	}

	if wantsSimpleJSON(r) {
		type file struct {
			Filename string            `json:"filename"`
			URL      string            `json:"url"`
			Hashes   map[string]string `json:"hashes"`
		}
		files := make([]file, 0, len(records))
		for _, rec := range records {
			hashes := map[string]string{}
			if sum := s.digests.get(s.storage, rec); sum != "" {
				hashes["sha256"] = sum
			}
			files = append(files, file{
				Filename: rec.RawFilename,
				URL:      "../../packages/" + rec.RawFilename,
				Hashes:   hashes,
			})
		}
		writeSimpleJSON(w, map[string]any{
			"meta":  map[string]string{"api-version": "1.0"},
			"name":  name,
			"files": files,
		})
		return
	}

	type link struct {
		Filename string
		Href     string
	}
	links := make([]link, 0, len(records))
	for _, rec := range records {
		links = append(links, link{Filename: rec.RawFilename, Href: s.fileHref(rec)})
	}
	data := struct {
		Name  string
		Files []link
	}{Name: name, Files: links}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := projectTemplate.Execute(w, data); err != nil {
		logTemplateError(r, err)
	}
}

func (s *Server) handleFileList(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	files := snap.Files()
	names := make([]string, 0, len(files))
	for _, rec := range files {
		names = append(names, rec.RawFilename)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := fileListTemplate.Execute(w, names); err != nil {
		logTemplateError(r, err)
	}
}

// fallbackURL builds the upstream redirect target for a project this
// index does not carry. Empty when the fallback is disabled or not
// configured.
func (s *Server) fallbackURL(name string) string {
	if s.cfg.DisableFallback || s.cfg.FallbackURL == "" {
		return ""
	}
	return strings.TrimSuffix(s.cfg.FallbackURL, "/") + "/" + name + "/"
}

// fileHref builds a project-page link to the download endpoint, with the
// sha256 fragment pip uses for verification when the digest is available.
func (s *Server) fileHref(rec *model.PackageRecord) string {
	href := "../../packages/" + rec.RawFilename
	if sum := s.digests.get(s.storage, rec); sum != "" {
		href += "#sha256=" + sum
	}
	return href
}

func writeSimpleJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", simpleJSONContentType)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// logTemplateError records a render failure. Headers are already written
// at this point so the response itself cannot be changed.
func logTemplateError(r *http.Request, err error) {
	logger.Error("failed to render page", logrus.Fields{"path": r.URL.Path, "error": err})
}

package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"codejoiner/pkg/session"
	"codejoiner/pkg/status"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageData holds everything the page templates render.
type pageData struct {
	Title       string
	Status      *statusView
	MaxUploadMB int
	Files       []session.FileInfo
	Skipped     []string
	Code        string
	PreviewURL  string
}

type statusView struct {
	Level string
	Text  string
}

func newStatusView(msg status.Message, ok bool) *statusView {
	if !ok {
		return nil
	}
	return &statusView{Level: msg.Level.String(), Text: msg.Text}
}

// templateEngine renders each page wrapped in the shared layout.
type templateEngine struct {
	pages map[string]*template.Template
}

func newTemplateEngine() (*templateEngine, error) {
	engine := &templateEngine{pages: make(map[string]*template.Template)}
	for _, page := range []string{"home.html", "result.html"} {
		t, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		engine.pages[page] = t
	}
	return engine, nil
}

func (e *templateEngine) render(w http.ResponseWriter, code int, name string, data pageData) error {
	t, ok := e.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	return t.ExecuteTemplate(w, "layout.html", data)
}

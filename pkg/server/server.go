// Package server exposes joining over HTTP: an upload page, sandboxed
// previews, and a token-protected file storage API used by remote clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"sort"
	"time"

	"codejoiner/pkg/combine"
	"codejoiner/pkg/remote"
	"codejoiner/pkg/session"
	"codejoiner/pkg/sink"
	"codejoiner/pkg/status"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config holds the web server settings.
type Config struct {
	MaxUploadMB  int    // total size cap of an upload or stored file
	PreviewLimit int    // documents kept for /preview
	AccessKey    string // key exchanged for API tokens; empty disables the storage API
	TokenTTL     time.Duration
}

// Server is the codejoiner HTTP server.
type Server struct {
	cfg       Config
	storage   remote.Storage
	previews  *previewStore
	tokens    *tokenStore
	templates *templateEngine
	router    chi.Router
	logger    *zap.Logger
}

// New builds a Server. storage may be nil when the storage API is not wanted.
func New(cfg Config, storage remote.Storage, logger *zap.Logger) (*Server, error) {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}
	if cfg.PreviewLimit <= 0 {
		cfg.PreviewLimit = 64
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}

	tmpl, err := newTemplateEngine()
	if err != nil {
		return nil, fmt.Errorf("initializing templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		storage:   storage,
		previews:  newPreviewStore(cfg.PreviewLimit),
		tokens:    newTokenStore(cfg.TokenTTL),
		templates: tmpl,
		logger:    logger,
	}
	s.router = s.buildRouter()
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve accepts connections on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Serving", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Info("Server stopped")
		return nil
	})
	return g.Wait()
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHome)
	r.Get("/health", s.handleHealth)
	r.Post("/join", s.handleJoin)
	r.Get("/preview/{id}", s.handlePreview)

	if s.storage != nil && s.cfg.AccessKey != "" {
		r.Post(remote.SessionPath, s.handleSignIn)
		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get(remote.FilesPath, s.handleListFiles)
			r.Get(remote.FileContentPath, s.handleReadFile)
			r.Put(remote.FileContentPath, s.handleWriteFile)
		})
	}
	return r
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Join files", MaxUploadMB: s.cfg.MaxUploadMB}
	if err := s.templates.render(w, http.StatusOK, "home.html", data); err != nil {
		s.logger.Error("Failed to render home", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleJoin combines the uploaded files. Each upload gets its own session so
// the usual status messages describe the outcome.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	if r.ContentLength > limit {
		s.renderError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d MB.", s.cfg.MaxUploadMB))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.renderError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d MB.", s.cfg.MaxUploadMB))
			return
		}
		s.renderError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	board := status.NewBoard()
	sess := session.New(board, s.logger)

	var skipped []string
	for _, fh := range r.MultipartForm.File["files"] {
		if _, ok := combine.KindFromName(fh.Filename); !ok {
			skipped = append(skipped, fh.Filename)
			continue
		}
		content, err := readUpload(fh)
		if err != nil {
			s.renderError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read %s: %v", fh.Filename, err))
			return
		}
		if err := sess.AddSource(fh.Filename, content); err != nil {
			skipped = append(skipped, fh.Filename)
		}
	}
	if !sess.HasFiles() {
		s.renderError(w, http.StatusUnprocessableEntity, "Please upload only .html, .css, or .js files")
		return
	}

	doc, err := sess.Join()
	if err != nil {
		msg, _ := board.Current()
		s.renderError(w, http.StatusUnprocessableEntity, msg.Text)
		return
	}

	if r.URL.Query().Get("download") == "1" {
		writeAttachment(w, doc)
		return
	}

	id := s.previews.put(doc)
	msg, ok := board.Current()
	data := pageData{
		Title:      "Combined",
		Status:     newStatusView(msg, ok),
		Files:      sess.Files(),
		Skipped:    skipped,
		Code:       doc,
		PreviewURL: "/preview/" + id,
	}
	if err := s.templates.render(w, http.StatusOK, "result.html", data); err != nil {
		s.logger.Error("Failed to render result", zap.Error(err))
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.previews.get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.URL.Query().Get("download") == "1" {
		writeAttachment(w, doc)
		return
	}
	sink.WriteSandboxed(w, doc)
}

func (s *Server) renderError(w http.ResponseWriter, code int, text string) {
	data := pageData{
		Title:       "Error",
		Status:      &statusView{Level: status.Error.String(), Text: text},
		MaxUploadMB: s.cfg.MaxUploadMB,
	}
	if err := s.templates.render(w, code, "home.html", data); err != nil {
		s.logger.Error("Failed to render error page", zap.Error(err))
	}
}

func readUpload(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return combine.DecodeText(data), nil
}

func writeAttachment(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sink.DefaultFileName))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, remote.ErrorResponse{Error: msg})
}

func sortedEntries(entries []remote.Entry) []remote.Entry {
	if entries == nil {
		return []remote.Entry{}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// File: pkg/sink/preview.go
package sink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// SandboxPolicy isolates a previewed document from its host: scripts may run,
// but the document gets an opaque origin and cannot navigate its opener.
const SandboxPolicy = "sandbox allow-scripts allow-modals allow-forms"

// WriteSandboxed serves doc as an isolated HTML document.
func WriteSandboxed(w http.ResponseWriter, doc string) {
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Security-Policy", SandboxPolicy)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	h.Set("Referrer-Policy", "no-referrer")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// Previewer renders documents on a loopback HTTP server. The server starts on
// the first Open and stops on Close, which also discards every document.
type Previewer struct {
	addr   string
	logger *zap.Logger

	mu      sync.Mutex
	docs    map[string]string
	srv     *http.Server
	baseURL string
	done    chan struct{}
}

// NewPreviewer returns a Previewer listening on addr once opened.
// An empty addr picks a free loopback port.
func NewPreviewer(addr string, logger *zap.Logger) *Previewer {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Previewer{
		addr:   addr,
		logger: logger,
		docs:   map[string]string{},
	}
}

// Handler returns the router serving stored documents.
func (p *Previewer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/preview/{id}", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		doc, ok := p.docs[chi.URLParam(r, "id")]
		p.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		WriteSandboxed(w, doc)
	})
	return r
}

// Open stores doc and returns the URL it can be viewed at.
func (p *Previewer) Open(doc string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.srv == nil {
		if err := p.start(); err != nil {
			return "", err
		}
	}

	id := ulid.Make().String()
	p.docs[id] = doc
	url := p.baseURL + "/preview/" + id
	p.logger.Debug("Opened preview", zap.String("url", url), zap.Int("bytes", len(doc)))
	return url, nil
}

// start binds the listener and serves in the background. Callers hold p.mu.
func (p *Previewer) start() error {
	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		return fmt.Errorf("failed to start preview server: %w", err)
	}

	p.srv = &http.Server{
		Handler:           p.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	p.baseURL = "http://" + ln.Addr().String()
	p.done = make(chan struct{})

	srv, done := p.srv, p.done
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("Preview server stopped", zap.Error(err))
		}
	}()
	p.logger.Info("Preview server listening", zap.String("url", p.baseURL))
	return nil
}

// Close discards every document and stops the server. It is safe to call more than once.
func (p *Previewer) Close() error {
	p.mu.Lock()
	srv, done := p.srv, p.done
	p.srv, p.done, p.baseURL = nil, nil, ""
	p.docs = map[string]string{}
	p.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(ctx)
	<-done
	if err != nil {
		return fmt.Errorf("failed to stop preview server: %w", err)
	}
	p.logger.Debug("Preview server stopped")
	return nil
}

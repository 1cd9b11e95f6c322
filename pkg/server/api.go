package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"codejoiner/pkg/remote"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// tokenStore tracks issued API tokens until they expire.
type tokenStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	tokens map[string]time.Time
}

func newTokenStore(ttl time.Duration) *tokenStore {
	return &tokenStore{ttl: ttl, now: time.Now, tokens: make(map[string]time.Time)}
}

func (s *tokenStore) issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for t, exp := range s.tokens {
		if now.After(exp) {
			delete(s.tokens, t)
		}
	}
	token := uuid.NewString()
	s.tokens[token] = now.Add(s.ttl)
	return token
}

func (s *tokenStore) valid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.tokens[token]
	if !ok {
		return false
	}
	if s.now().After(exp) {
		delete(s.tokens, token)
		return false
	}
	return true
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req remote.SessionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid sign-in request")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.AccessKey), []byte(s.cfg.AccessKey)) != 1 {
		s.logger.Warn("Rejected sign-in", zap.String("remote", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, "invalid access key")
		return
	}
	writeJSON(w, http.StatusOK, remote.SessionResponse{Token: s.tokens.issue()})
}

// requireToken rejects requests without a valid bearer token.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !s.tokens.valid(strings.TrimSpace(token)) {
			writeError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	folder := remote.CleanPath(r.URL.Query().Get("folder"))
	entries, err := s.storage.ListFiles(r.Context(), folder)
	if err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.ListResponse{Folder: folder, Entries: sortedEntries(entries)})
}

func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	data, err := s.storage.ReadFile(r.Context(), remote.CleanPath(p))
	if err != nil {
		s.storageError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleWriteFile(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" || strings.HasSuffix(p, "/") {
		writeError(w, http.StatusBadRequest, "a file path is required")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxUploadMB)<<20))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := s.storage.WriteFile(r.Context(), remote.CleanPath(p), data); err != nil {
		s.storageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) storageError(w http.ResponseWriter, err error) {
	if errors.Is(err, remote.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("Storage request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "storage error")
}

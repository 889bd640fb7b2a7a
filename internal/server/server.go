// Package server exposes the gallery and generation proxy over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"framegen/pkg/config"
	errs "framegen/pkg/errors"
	"framegen/pkg/gallery"
	"framegen/pkg/logger"
	"framegen/pkg/proxy"
	"framegen/pkg/ratelimit"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front for the gallery store and the generation proxy
type Server struct {
	cfg     *config.Config
	store   *gallery.Store
	backend *proxy.Client
	logger  logger.Logger

	// generateLimiter throttles /api/generate when configured; nil means
	// no throttle
	generateLimiter ratelimit.Limiter

	httpServer *http.Server
}

// New wires the HTTP front together. The backend client and gallery store
// are constructed by the caller so tests can substitute their own.
func New(cfg *config.Config, store *gallery.Store, backend *proxy.Client, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	s := &Server{
		cfg:     cfg,
		store:   store,
		backend: backend,
		logger:  log,
	}
	if n := cfg.Server.GenerateRateLimit; n > 0 {
		s.generateLimiter = ratelimit.NewTokenBucket(n, time.Minute)
	}
	return s
}

// Handler builds the route table. Exposed so tests can drive the server
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /api/gallery", s.handleGalleryList)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/gallery", s.handleGallerySave)
	mux.HandleFunc("POST /api/gallery/delete", s.handleGalleryDelete)
	mux.HandleFunc("GET /gallery/{file}", s.handleGalleryImage)
	mux.Handle("/", http.FileServer(http.Dir(s.cfg.Server.StaticDir)))

	return s.withRequestLog(mux)
}

// Start serves HTTP until ctx is cancelled, then drains in-flight
// requests before returning.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// The generate proxy can legitimately hold a response open for
		// the full backend timeout
		WriteTimeout: s.cfg.Server.ProxyTimeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	s.logger.InfoWithFields("server listening", map[string]interface{}{
		"addr":    listener.Addr().String(),
		"backend": s.backend.Endpoint(),
		"gallery": s.store.Dir(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"zImageEndpoint": s.backend.Endpoint(),
	})
}

func (s *Server) handleGalleryList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.generateLimiter != nil && !s.generateLimiter.Allow() {
		writeError(w, errs.WithCode(errs.ErrorTypeClientInput, http.StatusTooManyRequests,
			"generation rate limit exceeded"))
		return
	}

	body, err := readBody(w, r, s.cfg.Server.MaxProxyBody)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.backend.Forward(body)
	if err != nil {
		writeError(w, err)
		return
	}
	if rejected := result.Err(); rejected != nil {
		s.logger.WithError(rejected).Warn("relaying backend rejection")
	}

	// Relay the backend response verbatim, success or not
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.Status)
	w.Write(result.Body)
}

// saveRequest decodes prompt and timestamp leniently: a value of the
// wrong JSON type falls back to its zero default instead of failing
// the whole save
type saveRequest struct {
	Image     string          `json:"image"`
	Prompt    json.RawMessage `json:"prompt"`
	Timestamp json.RawMessage `json:"timestamp"`
}

func (r *saveRequest) prompt() string {
	var s string
	if err := json.Unmarshal(r.Prompt, &s); err != nil {
		return ""
	}
	return s
}

func (r *saveRequest) timestamp() float64 {
	var f float64
	if err := json.Unmarshal(r.Timestamp, &f); err != nil {
		return 0
	}
	return f
}

func (s *Server) handleGallerySave(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, s.cfg.Gallery.MaxRequestSize)
	if err != nil {
		writeError(w, err)
		return
	}

	var req saveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, errs.New(errs.ErrorTypeClientInput, "invalid JSON body"))
		return
	}

	image, err := gallery.DecodeImagePayload(req.Image)
	if err != nil {
		writeError(w, err)
		return
	}

	item, err := s.store.Save(image, req.prompt(), gallery.CoerceTimestamp(req.timestamp()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      item.ID,
	})
}

type deleteRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleGalleryDelete(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, s.cfg.Server.MaxDeleteBody)
	if err != nil {
		writeError(w, err)
		return
	}

	var req deleteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, errs.New(errs.ErrorTypeClientInput, "invalid JSON body"))
		return
	}

	if err := s.store.Delete(req.ID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGalleryImage(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	id, ok := strings.CutSuffix(file, ".png")
	if !ok {
		writeError(w, errs.New(errs.ErrorTypeNotFound, "image not found"))
		return
	}

	path, err := s.store.ImagePath(id)
	if err != nil {
		writeError(w, errs.New(errs.ErrorTypeNotFound, "image not found"))
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, errs.New(errs.ErrorTypeNotFound, "image not found"))
		return
	}

	http.ServeFile(w, r, filepath.Clean(path))
}

// readBody enforces the per-route size cap before and during the read
func readBody(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	if r.ContentLength > maxBytes {
		return nil, errs.WithCode(errs.ErrorTypeClientInput, http.StatusRequestEntityTooLarge,
			"request body exceeds %d bytes", maxBytes)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errs.WithCode(errs.ErrorTypeClientInput, http.StatusRequestEntityTooLarge,
				"request body exceeds %d bytes", maxBytes)
		}
		return nil, errs.New(errs.ErrorTypeClientInput, "failed to read request body")
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.GetLogger().WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errs.HTTPStatus(err), map[string]string{"error": err.Error()})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.LogRequest(r.Method, r.URL.Path, rec.status, float64(time.Since(start).Microseconds())/1000)
	})
}

// Package server serves the effective portfolio document read-only over
// HTTP and swaps in a fresh copy whenever another session saves.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/folio/internal/content"
	"github.com/rcliao/folio/internal/model"
	"github.com/rcliao/folio/internal/session"
)

// Config holds configuration for the viewer.
type Config struct {
	Session *session.Session
	Addr    string
	Logger  *zap.Logger
}

// Server is the read-only viewer.
type Server struct {
	sess    *session.Session
	addr    string
	logger  *zap.Logger
	current atomic.Pointer[content.Document]
}

// New returns a viewer over a loaded session.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{sess: cfg.Session, addr: cfg.Addr, logger: logger}
	s.Refresh()
	return s
}

// Refresh publishes the session's current document to request handlers.
func (s *Server) Refresh() {
	if doc := s.sess.Document(); doc != nil {
		s.current.Store(doc)
	}
}

// Handler returns the viewer routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		s.requestLogger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/data.json", s.handleDocument)
	r.Route("/api", func(r chi.Router) {
		r.Get("/meta", s.handleMeta)
		r.Get("/languages", s.handleLanguages)
		r.Get("/{lang}", s.handleLanguage)
		r.Get("/{lang}/projects/{id}", s.handleProject)
	})
	return r
}

// Serve listens on the configured address until ctx is cancelled, reloading
// the document after every external update.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting viewer", zap.String("addr", ln.Addr().String()))

	eg, egctx := errgroup.WithContext(ctx)

	cancel, err := s.sess.ReloadOnUpdate(egctx, s.Refresh)
	if err != nil {
		s.logger.Warn("live reload disabled", zap.Error(err))
	} else {
		defer cancel()
	}

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down viewer")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) document(w http.ResponseWriter) *content.Document {
	doc := s.current.Load()
	if doc == nil {
		writeError(w, http.StatusServiceUnavailable, "document not loaded")
	}
	return doc
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc := s.document(w)
	if doc == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := doc.Encode(w); err != nil {
		s.logger.Warn("encode document", zap.Error(err))
	}
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	doc := s.document(w)
	if doc == nil {
		return
	}
	meta := doc.Meta()
	if meta == nil {
		meta = map[string]any{}
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	doc := s.document(w)
	if doc == nil {
		return
	}
	out := make([]model.LanguageSummary, 0)
	for _, code := range doc.Languages() {
		lang, err := model.Decode[model.Language](doc.Root()[code])
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("language %s: %v", code, err))
			return
		}
		out = append(out, model.Summarize(code, lang))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	doc := s.document(w)
	if doc == nil {
		return
	}
	code := chi.URLParam(r, "lang")
	v, err := doc.Get(content.Path{}.Key(code))
	sub, ok := v.(map[string]any)
	if err != nil || code == content.MetaKey || !ok {
		writeError(w, http.StatusNotFound, "unknown language "+code)
		return
	}
	out := make(map[string]any, len(sub)+1)
	for k, v := range sub {
		out[k] = v
	}
	out["dir"] = model.Direction(code)
	w.Header().Set("Content-Language", code)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	doc := s.document(w)
	if doc == nil {
		return
	}
	code, id := chi.URLParam(r, "lang"), chi.URLParam(r, "id")
	rec, _, err := doc.FindProject(code, id)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("project %s not found in %s", id, code))
		return
	}
	p, err := model.Decode[model.Project](rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

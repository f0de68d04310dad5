// Package server exposes generation, validation and share-code decoding over HTTP and
// optionally hosts the static browser client.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/danshapiro/murderparty/internal/mystery/engine"
	"github.com/danshapiro/murderparty/internal/mystery/model"
)

type Config struct {
	Addr string // listen address, e.g. "127.0.0.1:8000"
	// StaticDir, when set, is served at / and /static/.
	StaticDir string
	// MaxConcurrent bounds generations in flight; 0 means 1.
	MaxConcurrent int
	RunRetention  int
}

// Generator is the slice of *engine.Engine the server uses.
type Generator interface {
	Generate(ctx context.Context, req engine.Request, opts engine.RunOptions) (*engine.Result, error)
	Categories() []model.Category
}

type Server struct {
	config   Config
	gen      Generator
	registry *RunRegistry
	sem      *semaphore.Weighted
	baseCtx  context.Context
	cancel   context.CancelFunc
	httpSrv  *http.Server
	logger   *zap.Logger
}

func New(cfg Config, gen Generator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   cfg,
		gen:      gen,
		registry: NewRunRegistry(cfg.RunRetention),
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		baseCtx:  ctx,
		cancel:   cancel,
		logger:   logger.With(zap.String("component", "server")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/runs", s.handleSubmitRun)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/runs/{id}/events", s.handleRunEvents)
	mux.HandleFunc("POST /api/runs/{id}/cancel", s.handleCancelRun)
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("GET /api/share/{code}", s.handleShare)
	if cfg.StaticDir != "" {
		files := http.FileServer(http.Dir(cfg.StaticDir))
		mux.Handle("GET /static/", http.StripPrefix("/static/", files))
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, cfg.StaticDir+"/index.html")
		})
	}

	s.httpSrv = &http.Server{
		Handler:      csrfProtect(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE and slow generations need an open response
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	return s
}

// Handler exposes the routed handler, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// ListenAndServe blocks until the server is shut down by SIGINT/SIGTERM or Shutdown.
func (s *Server) ListenAndServe() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info("shutting down", zap.String("signal", sig.String()))
			s.Shutdown()
		case <-s.baseCtx.Done():
		}
	}()

	s.logger.Info("listening", zap.String("addr", s.config.Addr), zap.String("static_dir", s.config.StaticDir))
	s.httpSrv.Addr = s.config.Addr
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// csrfProtect rejects cross-origin POSTs from non-local pages. CLI callers send no
// Origin and pass through.
func csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if origin := r.Header.Get("Origin"); origin != "" {
				u, err := url.Parse(origin)
				if err != nil {
					writeError(w, http.StatusForbidden, "invalid Origin header")
					return
				}
				host := u.Hostname()
				if host != "localhost" && host != "127.0.0.1" && host != "::1" {
					writeError(w, http.StatusForbidden, "cross-origin request blocked")
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown cancels in-flight runs, drains connections and releases the base context.
func (s *Server) Shutdown() {
	s.registry.CancelAll("server shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	_ = s.httpSrv.Shutdown(shutdownCtx)
	s.cancel()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CTAG07/Zilean/pkg/ingest"
	"github.com/CTAG07/Zilean/pkg/registry"
	"github.com/CTAG07/Zilean/pkg/storage"
)

// Server holds the HTTP-facing dependencies.
type Server struct {
	cm          *ConfigManager
	logger      *slog.Logger
	authAPI     *AuthAPI
	genAPI      *GenAPI
	championAPI *ChampionAPI
	serverAPI   *ServerAPI
	router      chi.Router
}

// NewServer wires the API handlers into a chi router.
func NewServer(cm *ConfigManager, db *storage.Database, reg *registry.Registry, ingester *ingest.Ingester, actionChan chan string, logger *slog.Logger) *Server {
	s := &Server{
		cm:          cm,
		logger:      logger,
		authAPI:     NewAuthAPI(cm, logger),
		genAPI:      NewGenAPI(cm, reg, logger),
		championAPI: NewChampionAPI(db, reg, ingester, logger),
		serverAPI:   NewServerAPI(cm, actionChan, logger),
	}

	cfg := cm.Get()
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			MaxAge:         300,
		}))
		if cfg.Server.GenRateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.Server.GenRateLimit, time.Minute))
		}
		s.genAPI.RegisterRoutes(r)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authAPI.Authenticate)
		s.authAPI.RegisterRoutes(r)
		s.championAPI.RegisterRoutes(r)
		s.serverAPI.RegisterRoutes(r)
	})
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.DebugContext(r.Context(), "Handled request",
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// HTTPServer matches the lifecycle methods of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// httpService runs an HTTP server under a suture supervisor.
type httpService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

func newHTTPService(server HTTPServer, shutdownTimeout time.Duration) *httpService {
	return &httpService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve starts the server and shuts it down gracefully once ctx is done.
func (h *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		// ctx is already canceled, so the shutdown gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *httpService) String() string {
	return "http-server"
}

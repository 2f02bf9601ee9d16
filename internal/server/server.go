package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/wikistore/cosbackend/config"
	"github.com/wikistore/cosbackend/internal/backend"
	"github.com/wikistore/cosbackend/internal/handlers"
	"github.com/wikistore/cosbackend/internal/mq"
	"github.com/wikistore/cosbackend/internal/purge"
	"github.com/wikistore/cosbackend/internal/storage"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	queue      *mq.MQ
	log        zerolog.Logger

	// stopWorker cancels the in-process purge worker, if one runs.
	stopWorker context.CancelFunc
}

// New constructs a Server wired to the configured object store and purge queue.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queue, err := mq.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{queue: queue, log: log}

	opts := backendOptions(cfg)
	var scheduler backend.PurgeScheduler
	if opts.UseCDN {
		scheduler = purge.NewScheduler(queue, cfg.Queue.Channel, log)
		if queue.InProcess() {
			if err := s.startInlineWorker(cfg); err != nil {
				_ = queue.Close()
				return nil, err
			}
		}
	}
	fileBackend := backend.New(store, scheduler, log, opts)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	router.With(middleware.Timeout(handlers.DefaultTimeouts.Request)).Get("/healthz", handlers.Healthz)
	router.Route("/files", func(r chi.Router) {
		handlers.FilesRouter(r, fileBackend, cfg.TmpDir, log, handlers.RequireAuth(jwtSecret), handlers.DefaultTimeouts)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  handlers.DefaultTimeouts.Transfer,
		WriteTimeout: handlers.DefaultTimeouts.Transfer,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func backendOptions(cfg config.Config) backend.Options {
	opts := backend.Options{
		Name:     cfg.Storage.Backend,
		DomainID: cfg.Storage.DomainID,
		TmpDir:   cfg.TmpDir,
	}
	switch cfg.Storage.Provider {
	case config.ProviderGCS:
		opts.Viewpoint = cfg.GCS.Viewpoint
	default:
		opts.Viewpoint = cfg.COS.Viewpoint
		opts.UseCDN = cfg.COS.UseCDN
	}
	return opts
}

// startInlineWorker consumes purge tasks in this process when the queue
// does not leave it.
func (s *Server) startInlineWorker(cfg config.Config) error {
	cdn, err := purge.NewCDNClient(cfg.CDN)
	if err != nil {
		return err
	}
	worker := purge.NewWorker(cdn, s.log)

	ctx, cancel := context.WithCancel(context.Background())
	s.stopWorker = cancel
	go func() {
		if err := worker.Run(ctx, s.queue, cfg.Queue.Channel); err != nil && ctx.Err() == nil {
			s.log.Error().Err(err).Msg("inline purge worker stopped")
		}
	}()
	return nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.stopWorker != nil {
		s.stopWorker()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	return err
}

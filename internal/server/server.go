// Package server exposes forms and sessions over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goliatone/go-runform/pkg/orchestrator"
	"github.com/goliatone/go-runform/pkg/render"
	"github.com/goliatone/go-runform/pkg/session"
	"github.com/goliatone/go-runform/pkg/submit"
)

// Config holds listener and policy settings.
type Config struct {
	Addr            string        `mapstructure:"addr"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
	Debug           bool          `mapstructure:"debug"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SessionCapacity int           `mapstructure:"session_capacity"`
	// User is forwarded as the payload user when a run request names none.
	User string `mapstructure:"user"`
	// MaxUploadMB caps multipart uploads when a form sets no image limit.
	MaxUploadMB int `mapstructure:"max_upload_mb"`
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		SessionCapacity: session.DefaultCapacity,
		MaxUploadMB:     10,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionStore injects the session store.
func WithSessionStore(store *session.Store) Option {
	return func(s *Server) {
		s.sessions = store
	}
}

// WithTranslator sets the translator used for rendered labels.
func WithTranslator(t render.Translator) Option {
	return func(s *Server) {
		s.translator = t
	}
}

// WithFileUploader forwards local image uploads to the backend. Without
// one, local uploads are rejected.
func WithFileUploader(files submit.FileUploader) Option {
	return func(s *Server) {
		s.files = files
	}
}

// Server hosts forms and sessions.
type Server struct {
	cfg        Config
	orch       *orchestrator.Orchestrator
	submitter  submit.Submitter
	files      submit.FileUploader
	sessions   *session.Store
	translator render.Translator
	logger     *zap.Logger
	metrics    *metrics
	engine     *gin.Engine
}

// New wires routes. A nil submitter records runs in memory.
func New(cfg Config, orch *orchestrator.Orchestrator, submitter submit.Submitter, options ...Option) (*Server, error) {
	if orch == nil {
		return nil, errors.New("server: orchestrator is required")
	}
	if submitter == nil {
		submitter = submit.NewRecorder(submit.Result{StatusCode: http.StatusAccepted})
	}

	s := &Server{
		cfg:        cfg,
		orch:       orch,
		submitter:  submitter,
		translator: render.DefaultCatalog(),
		logger:     zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	if s.sessions == nil {
		store, err := session.NewStore(
			session.WithCapacity(cfg.SessionCapacity),
			session.WithLogger(s.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.sessions = store
	}

	s.metrics = newMetrics(func() float64 { return float64(s.sessions.Len()) })
	s.engine = s.newEngine()
	return s, nil
}

func (s *Server) newEngine() *gin.Engine {
	if !s.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(recovery(s.logger), requestLogger(s.logger, s.metrics))

	corsConfig := cors.DefaultConfig()
	if len(s.cfg.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = s.cfg.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	engine.Use(cors.New(corsConfig))

	s.routes(engine)
	return engine
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", listener.Addr().String()))
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: serve: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("server shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

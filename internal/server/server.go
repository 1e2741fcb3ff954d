package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nao1215/failsight/internal/auth"
	"github.com/nao1215/failsight/internal/config"
	"github.com/nao1215/failsight/internal/database"
	"github.com/nao1215/failsight/internal/mailbox"
	"github.com/nao1215/failsight/internal/model"
	"github.com/nao1215/failsight/internal/predict"
	"github.com/nao1215/failsight/internal/render"
	"github.com/nao1215/failsight/internal/session"
)

// maxFormSize limits POST bodies on the form endpoints.
const maxFormSize = 1 << 20

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Predictor is the prediction API as used by the pages. *predict.Client implements it.
type Predictor interface {
	SubmitSingle(ctx context.Context, name model.ModelName, features model.FeatureVector) (*predict.SingleResponse, error)
	SubmitComparison(ctx context.Context, features model.FeatureVector) (*predict.ComparisonResponse, error)
	Health(ctx context.Context) (predict.Status, *predict.ModelStatus)
}

// Server holds all the components of the web front-end.
type Server struct {
	cfg        *config.Config
	db         *database.DB
	api        Predictor
	httpServer *http.Server
	router     *mux.Router
	store      *session.Store
	auth       *auth.Service
	renderer   *render.Renderer
	mailbox    *mailbox.Mailbox
	inflight   *inflight
	logger     *slog.Logger

	cleanupCtx  context.Context
	stopCleanup context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server with all components initialized.
// db holds credentials and sessions; api is the prediction service.
func New(cfg *config.Config, db *database.DB, api Predictor, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		db:       db,
		api:      api,
		router:   mux.NewRouter(),
		inflight: newInflight(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.SessionSecret == "" {
		s.logger.Warn("no session secret configured; sessions will not survive a restart")
	}
	s.store = session.NewStore(db, session.KeyPairsFromSecret(cfg.SessionSecret),
		session.WithLogger(s.logger),
		session.WithMaxAge(cfg.SessionMaxAge),
		session.WithSecure(cfg.SecureCookies),
	)
	s.auth = auth.NewService(db, auth.WithLogger(s.logger))
	s.mailbox = mailbox.New(s.store, session.ResultsName)

	renderer, err := render.New(render.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to load page templates: %w", err)
	}
	s.renderer = renderer

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Long enough for the slowest prediction API call.
		WriteTimeout: cfg.Timeout + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.cleanupCtx, s.stopCleanup = context.WithCancel(context.Background())
	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	auth.NewHandler(s.auth, s.store, s.logger).RegisterRoutes(s.router)

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	s.router.HandleFunc("/compare", s.handleCompare).Methods(http.MethodPost)
	s.router.HandleFunc("/results", s.handleResults).Methods(http.MethodGet)
	s.router.HandleFunc("/compare", s.handleComparison).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP connections and runs the expired session
// sweep until Stop is called. It blocks like http.Server.ListenAndServe and
// returns nil after a graceful shutdown.
func (s *Server) Start() error {
	go s.store.RunCleanup(s.cleanupCtx, s.cfg.SessionCleanupInterval)

	s.logger.Info("server listening",
		"address", s.cfg.ListenAddress,
		"prediction_api", s.cfg.PredictionAPIURL)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.stopCleanup()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// logRequests logs every request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Package dashboard serves the web UI: demo upload, summary statistics,
// game event tables, head-to-head and positional heatmaps.
package dashboard

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexandrevicenzi/go-sse"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/pable/go-cs-esalytics/internal/ingest"
	"github.com/pable/go-cs-esalytics/internal/model"
	"github.com/pable/go-cs-esalytics/internal/parser"
	"github.com/pable/go-cs-esalytics/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

var tmpl = template.Must(template.New("").Funcs(template.FuncMap{
	"join":    strings.Join,
	"percent": func(v float64) string { return fmt.Sprintf("%.0f%%", v) },
	"fixed1":  func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"fixed2":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).ParseFS(templateFS, "templates/*.html"))

// Options configures the server.
type Options struct {
	Addr         string
	UploadDir    string
	SessionTTL   time.Duration
	ParseWorkers int
	// MaxUploadBytes bounds one upload request.
	MaxUploadBytes int64
	// TournamentsCSV and MatchesCSV are the scraper caches shown on the
	// index page. Missing files just hide the section.
	TournamentsCSV string
	MatchesCSV     string
}

// Server is the dashboard HTTP server.
type Server struct {
	opts     Options
	logger   *zap.Logger
	sessions *SessionStore
	ingest   IngestFunc
	progress *sse.Server
	slots    *semaphore.Weighted
	router   chi.Router
}

// IngestFunc turns an uploaded demo file into a match and reports whether it
// came from the cache.
type IngestFunc func(ctx context.Context, path string, opts parser.Options) (*model.ParsedMatch, bool, error)

// New builds a server. db may be nil to disable the parse cache.
func New(opts Options, db *storage.DB, logger *zap.Logger) *Server {
	in := &ingest.Ingester{DB: db, Logger: logger}
	return newServer(opts, in.Ingest, logger)
}

func newServer(opts Options, in IngestFunc, logger *zap.Logger) *Server {
	if opts.ParseWorkers < 1 {
		opts.ParseWorkers = 1
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 2 * time.Hour
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 2 << 30
	}
	if opts.UploadDir == "" {
		opts.UploadDir = filepath.Join(os.TempDir(), "esalytics-uploads")
	}

	s := &Server{
		opts:     opts,
		logger:   logger,
		sessions: NewSessionStore(opts.SessionTTL),
		ingest:   in,
		slots:    semaphore.NewWeighted(int64(opts.ParseWorkers)),
	}
	s.progress = sse.NewServer(&sse.Options{
		Logger:          zap.NewStdLog(logger.Named("sse")),
		ChannelNameFunc: progressChannelOf,
	})
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.sessions.withSession)

	r.Get("/", s.handleIndex)
	r.Post("/upload", s.handleUpload)
	r.Get("/progress", s.progress.ServeHTTP)
	r.Get("/stats", s.handleStats)
	r.Get("/stats.csv", s.handleStatsCSV)
	r.Get("/events", s.handleEvents)
	r.Get("/events/{kind}.csv", s.handleEventCSV)
	r.Get("/h2h", s.handleHeadToHead)
	r.Get("/maps", s.handleMaps)
	r.Post("/session/reset", s.handleReset)
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.MkdirAll(s.opts.UploadDir, 0755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.sessions.Run(janitorCtx, time.Minute, s.dropUploads)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.progress.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// dropUploads removes the upload directories of evicted sessions.
func (s *Server) dropUploads(ids []string) {
	for _, id := range ids {
		if err := os.RemoveAll(filepath.Join(s.opts.UploadDir, id)); err != nil {
			s.logger.Warn("remove session uploads", zap.String("session", id), zap.Error(err))
		}
	}
	s.logger.Info("evicted idle sessions", zap.Int("count", len(ids)))
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("took", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

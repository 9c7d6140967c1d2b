package api

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/lox/surfsup/internal/models"
)

// Queries is the set of read operations the API exposes.
type Queries interface {
	RecentPrecipitation(ctx context.Context) ([]models.PrecipitationReading, error)
	ListStations(ctx context.Context) ([]string, error)
	MostActiveStationRecentTemps(ctx context.Context) ([]float64, error)
	TemperatureStats(ctx context.Context, start models.Date, end *models.Date) (models.TemperatureStats, error)
}

// HealthChecker reports table sizes for /health.
type HealthChecker interface {
	Counts(ctx context.Context) (measurements, stations int64, err error)
}

type Config struct {
	Port string
	// RateLimit is requests per second across all clients; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

type Server struct {
	queries Queries
	health  HealthChecker
	port    string
	log     logrus.FieldLogger
	tmpl    *template.Template
	limiter *rate.Limiter
}

func NewServer(queries Queries, health HealthChecker, cfg Config, log logrus.FieldLogger) *Server {
	s := &Server{
		queries: queries,
		health:  health,
		port:    cfg.Port,
		log:     log.WithField("component", "api"),
		tmpl:    newTemplates(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1.0/precipitation", s.handlePrecipitation)
	mux.HandleFunc("GET /api/v1.0/stations", s.handleStations)
	mux.HandleFunc("GET /api/v1.0/tobs", s.handleTobs)
	mux.HandleFunc("GET /api/v1.0/{start}", s.handleTempStats)
	mux.HandleFunc("GET /api/v1.0/{start}/{end}", s.handleTempStats)

	return s.instrument(s.recoverPanics(s.rateLimit(mux)))
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("shutdown: %v", err)
		}
	}()

	s.log.Infof("listening on :%s", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Package httpapi exposes the agent's read-only state over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/AegisMaint/internal/domain"
	"github.com/ghalamif/AegisMaint/internal/metrics"
)

const defaultDecisionLimit = 50

// Provider is the read side of an agent. Implementations return snapshots.
type Provider interface {
	Summary() metrics.Summary
	Decisions(limit int) []domain.Decision
	Latest() (domain.TickReport, bool)
}

type Server struct {
	srv *http.Server
	log *slog.Logger
}

// NewServer serves the API on addr. Metrics come from gatherer, or the
// default gatherer when nil.
func NewServer(addr string, p Provider, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(p, gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger.With("component", "httpapi"),
	}
}

// NewHandler builds the gin router.
func NewHandler(p Provider, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	v1.GET("/summary", func(c *gin.Context) {
		c.JSON(http.StatusOK, p.Summary())
	})
	v1.GET("/latest", func(c *gin.Context) {
		latest, ok := p.Latest()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no tick has completed yet"})
			return
		}
		c.JSON(http.StatusOK, latest)
	})
	v1.GET("/decisions", func(c *gin.Context) {
		limit := defaultDecisionLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}
		c.JSON(http.StatusOK, p.Decisions(limit))
	})
	return r
}

func (s *Server) Addr() string { return s.srv.Addr }

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server exited", "error", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

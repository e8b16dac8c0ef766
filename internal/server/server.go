package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"trade-journal-go/internal/config"
	"trade-journal-go/internal/fetch"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/metrics"
)

// Server exposes the journal over HTTP: report ingestion, statistics and
// rendered chart pages.
type Server struct {
	server      *http.Server
	router      *gin.Engine
	logger      *zap.Logger
	svc         *journal.Service
	fetcher     fetch.FetcherInterface
	metrics     *metrics.Metrics
	uploadLimit int64
	webDir      string
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(cfg *config.Config, logger *zap.Logger, svc *journal.Service, fetcher fetch.FetcherInterface, m *metrics.Metrics) *Server {
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		logger:      logger.Named("http"),
		svc:         svc,
		fetcher:     fetcher,
		metrics:     m,
		uploadLimit: int64(cfg.Server.UploadLimitMB) << 20,
		webDir:      cfg.Server.WebDir,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.observeRequests())
	s.setupRoutes(router)

	s.router = router
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The dashboard is optional; API-only deployments leave web_dir empty.
	if s.webDir != "" {
		r.LoadHTMLGlob(filepath.Join(s.webDir, "templates", "*"))
		r.GET("/", s.indexPage)
	}

	api := r.Group("/api")
	{
		api.POST("/reports", s.uploadReport)
		api.POST("/reports/fetch", s.fetchReport)
		api.GET("/reports", s.listReports)
		api.GET("/reports/:id/stats", s.reportStats)
		api.GET("/reports/:id/export", s.exportReport)
		api.DELETE("/reports/:id", s.deleteReport)
	}

	charts := r.Group("/reports/:id/charts")
	{
		charts.GET("/equity", s.equityChart)
		charts.GET("/instruments", s.instrumentsChart)
		charts.GET("/directions", s.directionsChart)
		charts.GET("/weekdays", s.weekdaysChart)
	}
}

// observeRequests feeds request durations into Prometheus.
func (s *Server) observeRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(status), time.Since(start))
		s.logger.Debug("handled request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)))
	}
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("starting http server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) indexPage(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

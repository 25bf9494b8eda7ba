package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/team-map-service/internal/domain"
	"github.com/couchcryptid/team-map-service/internal/observability"
)

// Fixed client-facing error messages.
const (
	msgMemberNotFound = "Team member not found"
	msgTeamLoad       = "Failed to load team data"
	msgApplicantLoad  = "Failed to load applicant data"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the team and applicant API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	catalog    *Catalog
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// response is the envelope shared by every /api route.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewServer creates the HTTP server. allowedOrigins is the CORS allow-list; "*"
// or an empty list allows every origin.
func NewServer(addr string, catalog *Catalog, allowedOrigins []string, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		catalog: catalog,
		metrics: metrics,
		logger:  logger,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.observe())
	r.Use(cors.New(corsConfig(allowedOrigins)))

	api := r.Group("/api")
	{
		api.GET("/team", s.listTeam)
		api.GET("/team/:id", s.getMember)
		api.GET("/applicant", s.getApplicant)
	}

	r.GET("/healthz", s.handleHealth)
	r.GET("/readyz", handleReady(catalog))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// observe counts requests by matched route and status, and logs them at debug.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
		)
	}
}

func (s *Server) listTeam(c *gin.Context) {
	ds, err := s.catalog.Team()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response{Error: msgTeamLoad})
		return
	}
	c.JSON(http.StatusOK, response{Success: true, Data: ds})
}

func (s *Server) getMember(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, response{Error: msgMemberNotFound})
		return
	}

	m, err := s.catalog.Member(id)
	switch {
	case errors.Is(err, domain.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, response{Error: msgMemberNotFound})
	case err != nil:
		c.JSON(http.StatusInternalServerError, response{Error: msgTeamLoad})
	default:
		c.JSON(http.StatusOK, response{Success: true, Data: m})
	}
}

func (s *Server) getApplicant(c *gin.Context) {
	p, err := s.catalog.Profile()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response{Error: msgApplicantLoad})
		return
	}
	c.JSON(http.StatusOK, response{Success: true, Data: p})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

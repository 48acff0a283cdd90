// Package server exposes the query router and post acquisition over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abelbrown/pulse/internal/fetch"
	"github.com/abelbrown/pulse/internal/logging"
	"github.com/abelbrown/pulse/internal/metrics"
	"github.com/abelbrown/pulse/internal/model"
	"github.com/abelbrown/pulse/internal/otel"
	"github.com/abelbrown/pulse/internal/router"
)

// Config wires a Server. Acquirer, Metrics, Events and Ring are optional.
type Config struct {
	Router     *router.Router
	Data       router.Dataset
	Acquirer   *fetch.Acquirer
	FetchLimit int // default posts per subreddit for POST /posts
	Metrics    *metrics.Metrics
	Events     *otel.Logger
	Ring       *otel.RingBuffer
}

// Server handles the HTTP endpoints.
type Server struct {
	cfg    Config
	engine *gin.Engine
}

type askRequest struct {
	Query string `json:"query"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type postsRequest struct {
	Subreddits []string `json:"subreddits" binding:"required,min=1"`
	Limit      int      `json:"limit"`
}

type postsResponse struct {
	Posts  []model.Post `json:"posts"`
	Errors string       `json:"errors,omitempty"`
}

// New builds the gin engine and its routes.
func New(cfg Config) *Server {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 10
	}
	s := &Server{cfg: cfg, engine: gin.New()}
	s.engine.Use(gin.Recovery(), requestLogger())

	s.engine.POST("/ask", s.ask)
	s.engine.POST("/posts", s.posts)
	s.engine.GET("/healthz", s.healthz)
	if cfg.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	if cfg.Ring != nil {
		s.engine.GET("/debug/events", s.debugEvents)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Serving", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, askResponse{Answer: "Error: " + err.Error()})
		return
	}

	start := time.Now()
	answer := s.cfg.Router.Answer(c.Request.Context(), req.Query)

	if otel.TraceEnabled() {
		s.cfg.Events.QueryRouted("server", s.cfg.Router.RouteName(req.Query), req.Query, time.Since(start))
	}
	c.JSON(http.StatusOK, askResponse{Answer: answer})
}

func (s *Server) posts(c *gin.Context) {
	if s.cfg.Acquirer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "acquisition is not configured"})
		return
	}

	var req postsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subreddits is required"})
		return
	}
	if req.Limit <= 0 {
		req.Limit = s.cfg.FetchLimit
	}

	posts, err := s.cfg.Acquirer.Acquire(c.Request.Context(), req.Subreddits, req.Limit)
	if posts == nil {
		posts = []model.Post{}
	}
	resp := postsResponse{Posts: posts}
	if err != nil {
		if len(posts) == 0 {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		resp.Errors = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) healthz(c *gin.Context) {
	n := 0
	if coll := s.cfg.Data.Collection(); coll != nil {
		n = coll.Len()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "posts": n})
}

func (s *Server) debugEvents(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("n", "100"))
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "n must be a positive integer"})
		return
	}
	stats := s.cfg.Ring.Stats()
	c.JSON(http.StatusOK, gin.H{
		"events":   s.cfg.Ring.Last(n),
		"stats":    stats,
		"degraded": stats.Degraded(),
		"dropped":  s.cfg.Events.Dropped(),
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"dur", time.Since(start))
	}
}

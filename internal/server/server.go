// Package server exposes the Kadrio HTTP API: the chat endpoint, the
// sessions resource, admin mode switching, and operational endpoints.
package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/wpietrzak/kadrio/internal/chat"
	"github.com/wpietrzak/kadrio/internal/config"
	"github.com/wpietrzak/kadrio/internal/knowledge"
	"github.com/wpietrzak/kadrio/internal/metrics"
	"github.com/wpietrzak/kadrio/internal/ratelimit"
	"github.com/wpietrzak/kadrio/internal/store"
)

// StartOpts holds everything the HTTP server needs.
type StartOpts struct {
	Config       *config.Config
	Store        *store.Store
	Orchestrator *chat.Orchestrator
	Knowledge    *knowledge.Store
	Limiter      *ratelimit.Limiter
	Metrics      *metrics.Collector
	Version      string
	Out          io.Writer
}

// handlers carries the shared dependencies of all route handlers.
type handlers struct {
	store        *store.Store
	orchestrator *chat.Orchestrator
	knowledge    *knowledge.Store
	limiter      *ratelimit.Limiter
	metrics      *metrics.Collector
	production   bool
	env          string
	version      string
	staticDir    string
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Config == nil {
		return fmt.Errorf("server: config is required")
	}
	if opts.Store == nil {
		return fmt.Errorf("server: store is required")
	}
	if opts.Orchestrator == nil {
		return fmt.Errorf("server: orchestrator is required")
	}
	if opts.Knowledge == nil {
		return fmt.Errorf("server: knowledge store is required")
	}
	if opts.Limiter == nil {
		return fmt.Errorf("server: rate limiter is required")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector()
	}

	gin.SetMode(gin.ReleaseMode)
	router := newRouter(opts)

	// Background maintenance: purge idle limiter windows every five
	// minutes, log a store digest nightly.
	sched := cron.New()
	sched.AddFunc("*/5 * * * *", func() {
		if n := opts.Limiter.Purge(); n > 0 {
			log.Printf("server: purged %d expired rate-limit windows", n)
		}
	})
	sched.AddFunc("0 3 * * *", func() {
		sessions, turns, err := opts.Store.Counts(context.Background())
		if err != nil {
			log.Printf("server: nightly digest: %v", err)
			return
		}
		log.Printf("server: nightly digest: %d active sessions, %d turns", sessions, turns)
	})
	sched.Start()
	defer sched.Stop()

	addr := fmt.Sprintf(":%d", opts.Config.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Kadrio API listening on http://localhost:%d (%s)\n",
			opts.Config.Server.Port, opts.Config.Server.Env)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// newRouter builds the Gin engine with all middleware and routes.
func newRouter(opts StartOpts) *gin.Engine {
	h := &handlers{
		store:        opts.Store,
		orchestrator: opts.Orchestrator,
		knowledge:    opts.Knowledge,
		limiter:      opts.Limiter,
		metrics:      opts.Metrics,
		production:   opts.Config.Production(),
		env:          opts.Config.Server.Env,
		version:      opts.Version,
		staticDir:    opts.Config.Server.StaticDir,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestMeta(h.metrics))
	router.Use(corsMiddleware(opts.Config.Server.AllowedOrigins))

	router.GET("/", h.handleRoot)
	router.GET("/health", h.handleHealth)
	router.GET("/metrics", h.handleMetrics)

	// The limiter runs before body sanitization so rejected requests
	// never pay for a body read.
	api := router.Group("/api")
	api.Use(rateLimitMiddleware(h.limiter))
	api.Use(sanitizeBody())
	{
		api.POST("/chat", h.handleChat)

		api.GET("/sessions", h.handleListSessions)
		api.POST("/sessions", h.handleCreateSession)
		api.GET("/sessions/:id", h.handleGetSession)
		api.PATCH("/sessions/:id", h.handleRenameSession)
		api.DELETE("/sessions/:id", h.handleDeleteSession)
		api.GET("/sessions/:id/history", h.handleHistory)

		api.GET("/admin/mode", h.handleGetMode)
		api.POST("/admin/mode", h.handleSetMode)
	}

	router.NoRoute(h.handleNoRoute)
	return router
}

// handleNoRoute serves the bundled frontend for non-API paths when a
// static directory is configured, and a JSON 404 otherwise.
func (s *handlers) handleNoRoute(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api") || s.staticDir == "" {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "endpoint not found")
		return
	}

	candidate := filepath.Join(s.staticDir, filepath.Clean("/"+path))
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		c.File(candidate)
		return
	}
	index := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(index); err == nil {
		c.File(index)
		return
	}
	respondError(c, http.StatusNotFound, "NOT_FOUND", "endpoint not found")
}

// Package api provides the HTTP delivery layer: a read-only stage registry
// introspection endpoint (SPEC_FULL.md §4.C13) and a health check. Grounded
// on cmd/tarsy/main.go's gin.Default()/router.GET idiom — the teacher's own
// pkg/api/server.go reaches for echo v5, a dependency that never made it
// into the teacher's go.mod, so main.go's actual, buildable gin pattern is
// the one followed here. Narrowed to the two endpoints this system's
// delivery layer needs — no chat, session, alert, runbook, trace, or
// websocket surface, since the pipeline has no human-in-the-loop or
// multi-turn interaction model to expose.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nellia/prospectord/pkg/persistence"
	"github.com/nellia/prospectord/pkg/version"
)

// Pinger is the narrow health-check surface a persistence.Store may
// optionally implement (jobstore.Store does; memstore.Store does not since
// it has nothing external to ping).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP delivery layer.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	store      persistence.Store
}

// NewServer builds a Server and registers its routes.
func NewServer(store persistence.Store) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(securityHeaders())
	router.MaxMultipartMemory = 1 << 20 // 1 MB

	s := &Server{router: router, store: store}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)

	v1 := s.router.Group("/api/v1")
	v1.GET("/stages", s.listStagesHandler)
	v1.GET("/stages/:name", s.getStageHandler)
}

// Start starts the HTTP server on addr (blocking until it stops — call it
// from its own goroutine, matching the teacher's router.Run idiom).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	return s.httpServer.ListenAndServe()
}

// StartWithListener serves on a pre-created listener, used by tests to bind
// a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.router}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{Status: healthStatusHealthy, Version: version.Full(), Checks: map[string]HealthCheck{}}

	if pinger, ok := s.store.(Pinger); ok {
		if err := pinger.Ping(reqCtx); err != nil {
			resp.Status = healthStatusUnhealthy
			resp.Checks["persistence"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp.Checks["persistence"] = HealthCheck{Status: healthStatusHealthy}
	}

	c.JSON(http.StatusOK, resp)
}

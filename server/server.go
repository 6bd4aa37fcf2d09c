// Package server assembles the HTTP surface: middleware, static frontend,
// and the versioned API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/amani-glitch/botle-collector/interview"
	"github.com/amani-glitch/botle-collector/plugin/sheets"
	"github.com/amani-glitch/botle-collector/server/auth"
	"github.com/amani-glitch/botle-collector/server/profile"
	apiv1 "github.com/amani-glitch/botle-collector/server/router/api/v1"
	"github.com/amani-glitch/botle-collector/store"
)

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	httpServer *http.Server
}

// NewServer builds the echo instance and mounts every route. The caller
// owns the collaborators' lifecycles.
func NewServer(
	p *profile.Profile,
	st *store.Store,
	coordinator *interview.Coordinator,
	sink *sheets.Sink,
) *Server {
	e := echo.New()

	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	if p.Origin != "" {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     []string{p.Origin},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Admin-Password"},
			AllowCredentials: true,
		}))
	}

	// Interview data is personal; keep crawlers out wholesale.
	e.GET("/robots.txt", func(c *echo.Context) error {
		return c.String(http.StatusOK, "User-agent: *\nDisallow: /\n")
	})
	e.GET("/healthz", func(c *echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	authenticator := auth.New(p.SessionSecret)
	apiService := apiv1.NewAPIV1Service(p, st, coordinator, authenticator, sink)
	apiService.RegisterRoutes(e, chatRateLimiter(p))

	registerFrontend(e, p.DistDir)

	return &Server{Profile: p, echoServer: e}
}

// chatRateLimiter caps message sends per client IP. Token-bucket with a
// burst of the per-minute quota, refilled continuously.
func chatRateLimiter(p *profile.Profile) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      float64(p.RateLimitPerMinute) / 60.0,
			Burst:     p.RateLimitPerMinute,
			ExpiresIn: 3 * time.Minute,
		}),
		DenyHandler: func(c *echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many messages, slow down")
		},
	})
}

// registerFrontend serves the built single-page frontend when a dist
// directory is configured, with index.html as the history-API fallback.
func registerFrontend(e *echo.Echo, distDir string) {
	if distDir == "" {
		return
	}
	if _, err := os.Stat(filepath.Join(distDir, "index.html")); err != nil {
		slog.Warn("frontend dist not found, serving API only", "dir", distDir)
		return
	}
	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Root:  distDir,
		HTML5: true,
		Skipper: func(c *echo.Context) bool {
			return len(c.Request().URL.Path) >= 4 && c.Request().URL.Path[:4] == "/api"
		},
	}))
}

// Start begins serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.echoServer,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	slog.Info("server listening", "addr", addr, "mode", s.Profile.Mode)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests with a deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echoServer
}

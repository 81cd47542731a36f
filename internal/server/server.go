// Package server exposes the bot's observability endpoints: health probes,
// Prometheus metrics, and build information.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/byPixelTV/TwitchNotifyBot/internal/config"
)

// pinger is the health-check surface a backing store needs to expose.
type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	kv        pinger
	docs      pinger
	startTime time.Time
}

func NewServer(cfg *config.Config, kv pinger, docs pinger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		config:    cfg,
		kv:        kv,
		docs:      docs,
		startTime: time.Now(),
	}

	e.GET("/health/live", srv.handleLiveness)
	e.GET("/health/ready", srv.handleReadiness)
	e.GET("/version", srv.handleVersion)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return srv
}

func (s *Server) Start() error {
	log.Printf("Starting server on port %s", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Package web serves the webhook the platform posts lifecycle events to.
package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/edly-io/nodebb-sync/internal/config"
	"github.com/edly-io/nodebb-sync/internal/dispatch"
	accesslog "github.com/edly-io/nodebb-sync/internal/logger/adapter/fiber"
)

// Routes of the webhook server.
const (
	EventsPath     = "/api/v1/events"
	CheckAlivePath = "/checkalive"
	MetricsPath    = "/metrics"
)

// Dispatcher accepts decoded events.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev dispatch.Event) (int, error)
}

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	dispatcher   Dispatcher
	events       Storage
}

// Start listens on the configured port and blocks until the server stops.
func (s *Service) Start() error {
	addr := ":" + strconv.Itoa(s.cfg.Webserver.Port)

	log.Info().Str("addr", addr).Msg("webhook listening")

	err := s.App.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err //nolint:wrapcheck
	}

	return nil
}

// Shutdown reports not alive for ShutDownTime seconds so load balancers drain, then stops the server.
func (s *Service) Shutdown(ctx context.Context) error {
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)

		select {
		case <-time.After(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second):
		case <-ctx.Done():
		}
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.ShutdownWithContext(ctx); err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Msg("http server was stopped")

	return nil
}

// New creates the webhook service. events may be nil to disable de-duplication.
func New(cfg *config.Config, dispatcher Dispatcher, events Storage) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if dispatcher == nil {
		panic("dispatcher cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Immutable:      true,
			JSONEncoder:    json.Marshal,
			JSONDecoder:    json.Unmarshal,
		},
	)

	service := &Service{
		App:          app,
		cfg:          cfg,
		fastShutDown: cfg.DevMode,
		dispatcher:   dispatcher,
		events:       events,
	}
	service.alive.Store(true)

	app.Use(accesslog.New(accesslog.Config{
		Log:           cfg.Log,
		CheckAliveURI: CheckAlivePath,
	}))

	app.Get(CheckAlivePath, service.checkAlive)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	app.Post(EventsPath, service.authorize, service.receive)

	return service
}

func (s *Service) checkAlive(c fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	return c.SendString("OK")
}

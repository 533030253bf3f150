package web

import (
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/edly-io/nodebb-sync/internal/dispatch"
)

// HeaderEventID carries the platform's id of a delivery; redeliveries repeat it.
const HeaderEventID = "X-Event-ID"

const bearerPrefix = "Bearer "

type response struct {
	Jobs      int    `json:"jobs"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Error     string `json:"error,omitempty"`
}

// authorize checks the bearer token against the configured argon2id hash.
// Without a hash every request passes.
func (s *Service) authorize(c fiber.Ctx) error {
	hash := s.cfg.Webserver.TokenHash
	if hash == "" {
		return c.Next()
	}

	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return c.Status(fiber.StatusUnauthorized).JSON(response{Error: "missing bearer token"})
	}

	match, err := argon2id.ComparePasswordAndHash(strings.TrimPrefix(header, bearerPrefix), hash)
	if err != nil {
		log.Error().Err(err).Msg("webhook token hash is invalid")
		return c.Status(fiber.StatusInternalServerError).JSON(response{Error: "token check failed"})
	}

	if !match {
		return c.Status(fiber.StatusUnauthorized).JSON(response{Error: "invalid bearer token"})
	}

	return c.Next()
}

func (s *Service) receive(c fiber.Ctx) error {
	var ev dispatch.Event

	if err := json.Unmarshal(c.Body(), &ev); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(response{Error: "malformed event: " + err.Error()})
	}

	id := c.Get(HeaderEventID)
	if id == "" {
		id = ev.ID
	}

	if s.seen(id) {
		log.Debug().Str("event_id", id).Str("type", string(ev.Type)).Msg("dropping redelivered event")
		return c.Status(fiber.StatusOK).JSON(response{Duplicate: true})
	}

	jobs, err := s.dispatcher.Dispatch(c.Context(), ev)

	switch {
	case errors.Is(err, dispatch.ErrUnknownEvent), errors.Is(err, dispatch.ErrInvalidEvent):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(response{Error: err.Error()})
	case err != nil:
		log.Error().Err(err).Str("event_id", id).Str("type", string(ev.Type)).Msg("event not queued")
		return c.Status(fiber.StatusServiceUnavailable).JSON(response{Jobs: jobs, Error: err.Error()})
	}

	s.remember(id)

	return c.Status(fiber.StatusAccepted).JSON(response{Jobs: jobs})
}

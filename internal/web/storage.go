package web

import (
	"time"

	"github.com/gofiber/storage/mysql/v2"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"

	"github.com/edly-io/nodebb-sync/internal/config"
	"github.com/edly-io/nodebb-sync/internal/db/dsn"
)

// EventTable stores the ids of accepted events.
const EventTable = "webhook_events"

// Storage keeps accepted event ids. The gofiber storage backends implement it.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
}

// NewStorage opens the event id storage next to the mapping tables.
// SQLite has no gofiber backend here, so it returns nil and de-duplication is off.
func NewStorage(db config.DB) (Storage, error) {
	uri, err := dsn.Create(db)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	switch db.GormEngine {
	case config.EngineMySQL:
		return mysql.New(mysql.Config{ConnectionURI: uri, Table: EventTable}), nil
	case config.EnginePostgres:
		return postgres.New(postgres.Config{ConnectionURI: uri, Table: EventTable}), nil
	default:
		log.Warn().Str("engine", db.GormEngine).Msg("event de-duplication is not available for this engine")
		return nil, nil //nolint:nilnil
	}
}

func (s *Service) seen(id string) bool {
	if s.events == nil || id == "" || s.cfg.Webserver.DedupTTL <= 0 {
		return false
	}

	val, err := s.events.Get(id)
	if err != nil {
		log.Warn().Err(err).Str("event_id", id).Msg("event id lookup failed")
		return false
	}

	return len(val) > 0
}

func (s *Service) remember(id string) {
	if s.events == nil || id == "" || s.cfg.Webserver.DedupTTL <= 0 {
		return
	}

	if err := s.events.Set(id, []byte{1}, s.cfg.Webserver.DedupTTL); err != nil {
		log.Warn().Err(err).Str("event_id", id).Msg("event id not stored")
	}
}

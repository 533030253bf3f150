package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("config webserver.port listening port can not be 0")

	// ErrUnknownGormEngine is returned for a DB.GormEngine other than mysql, postgres or sqlite.
	ErrUnknownGormEngine = errors.New("config db.gormEngine must be one of mysql, postgres, sqlite")

	// ErrNATSURLRequired is returned when the nats queue driver is selected without a server url.
	ErrNATSURLRequired = errors.New("config queue.nats.url is required for the nats driver")

	// ErrUnknownQueueDriver is returned for a Queue.Driver other than memory or nats.
	ErrUnknownQueueDriver = errors.New("config queue.driver must be one of memory, nats")

	// ErrConfigNil is returned when no config is passed.
	ErrConfigNil = errors.New("config is nil")
)

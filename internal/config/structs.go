package config

import (
	"time"

	"github.com/edly-io/nodebb-sync/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode bool // enable dev mode for development
	// Enabled is the feature flag of the integration. When false, events are accepted and dropped.
	Enabled   bool
	Title     string
	DB        DB // mapping tables
	Platform  DB // read-only platform tables used by reconciliation
	Log       logger.Log
	NodeBB    NodeBB
	Tasks     Tasks
	Queue     Queue
	Webserver Webserver
}

// NodeBB holds the forum write API settings.
type NodeBB struct {
	URL       string        `validate:"required,url"`
	AdminUID  int           `validate:"gt=0"`
	APIToken  string        `validate:"required"`
	Timeout   time.Duration `validate:"gt=0"`
	RateLimit float64       `validate:"gte=0"` // requests per second, 0 disables limiting
	Burst     int           `validate:"gte=0"`
}

// Tasks holds the job retry policy and routing.
type Tasks struct {
	RetryDelay        time.Duration `validate:"gt=0"`
	MaxRetries        int           `validate:"gte=0"` // 0 retries forever
	HighPriorityQueue string        `validate:"required"`
	DefaultQueue      string        `validate:"required"`
	Workers           int           `validate:"gt=0"`
}

// Queue selects the job queue driver.
type Queue struct {
	Driver string `validate:"oneof=memory nats"`
	NATS   NATS
}

// NATS holds the settings of the nats queue driver.
type NATS struct {
	URL           string
	Name          string
	SubjectPrefix string
	QueueGroup    string
	ConnTimeout   time.Duration
	MaxReconnects int
}

// Webserver implements webhook server settings.
type Webserver struct {
	Port         int    // listening port for the webserver
	ShutDownTime int    // seconds to report not alive before shutdown
	URL          string // base url for the webserver
	// TokenHash is the argon2id hash of the bearer token the platform sends with events.
	// Empty disables authentication.
	TokenHash string
	// DedupTTL keeps X-Event-ID keys this long to drop redelivered events. 0 disables it.
	DedupTTL time.Duration
}

// Package config reads etc/main.toml with env overrides into Config.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes single value env overrides, e.g. NODEBB_SYNC_NODEBB_APITOKEN.
	EnvPrefix = "NODEBB_SYNC"

	// EnvConfigJSON holds a JSON document merged over the file config.
	EnvConfigJSON = "NODEBB_SYNC_CONFIG_JSON"

	// QueueDriverMemory runs jobs in process.
	QueueDriverMemory = "memory"
	// QueueDriverNATS distributes jobs over NATS subjects.
	QueueDriverNATS = "nats"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("title", "nodebb-sync")
	v.SetDefault("enabled", true)
	v.SetDefault("db.gormEngine", EngineSQLite)
	v.SetDefault("db.name", "nodebb_sync.db")
	v.SetDefault("platform.gormEngine", EngineMySQL)
	v.SetDefault("nodebb.adminUID", 1)
	v.SetDefault("nodebb.timeout", 10*time.Second)
	v.SetDefault("tasks.retryDelay", 30*time.Second)
	v.SetDefault("tasks.highPriorityQueue", "high_priority")
	v.SetDefault("tasks.defaultQueue", "default")
	v.SetDefault("tasks.workers", 4)
	v.SetDefault("queue.driver", QueueDriverMemory)
	v.SetDefault("queue.nats.subjectPrefix", "nodebb")
	v.SetDefault("queue.nats.queueGroup", "nodebb-sync")
	v.SetDefault("webserver.shutDownTime", 5)
	v.SetDefault("log.logLevel", "info")
	v.SetDefault("log.appName", "nodebb-sync")
	v.SetDefault("log.serviceName", "nodebb-sync")
}

// ReadConfig from <path>main.toml, then env overrides.
func ReadConfig(path string) (Config, error) {
	var c Config

	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("main")
	v.SetConfigType("toml")
	v.AddConfigPath(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configAsJSON := os.Getenv(EnvConfigJSON); configAsJSON != "" {
		v.SetConfigType("json")

		if err := v.MergeConfig(strings.NewReader(configAsJSON)); err != nil {
			return Config{}, errors.Wrap(err, "failed to merge "+EnvConfigJSON)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	return c, validate(&c)
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	out, err := toml.Marshal(c)
	if err != nil {
		return "", err //nolint: wrapcheck
	}

	return string(out), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	out, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err //nolint: wrapcheck
	}

	return string(out) + "\n", nil
}

// validate checks the settings the daemon can not start without and fills late defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	for _, db := range []DB{c.DB, c.Platform} {
		switch db.GormEngine {
		case EngineMySQL, EnginePostgres, EngineSQLite:
		default:
			return errors.Wrap(ErrUnknownGormEngine, invalidErrMessage)
		}
	}

	if c.Queue.Driver == QueueDriverNATS && c.Queue.NATS.URL == "" {
		return errors.Wrap(ErrNATSURLRequired, invalidErrMessage)
	}

	v := validator.New()

	for _, section := range []any{c.NodeBB, c.Tasks, c.Queue} {
		if err := v.Struct(section); err != nil {
			return errors.Wrap(err, invalidErrMessage)
		}
	}

	return nil
}

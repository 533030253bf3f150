// Package dsn builds Data Source Names and gorm dialectors from a DB config section.
package dsn

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/edly-io/nodebb-sync/internal/config"
)

// Create builds the Data Source Name for the configured engine.
func Create(db config.DB) (string, error) {
	switch db.GormEngine {
	case config.EngineMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			db.User,
			db.Password,
			db.Host,
			db.Port,
			db.Name,
			db.Extras,
		), nil
	case config.EnginePostgres:
		out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			db.Host,
			db.Port,
			db.User,
			db.Password,
			db.Name,
		)
		if db.Extras != "" {
			out += " " + db.Extras
		}

		return out, nil
	case config.EngineSQLite:
		return db.Name, nil
	default:
		return "", config.ErrUnknownGormEngine
	}
}

// Dialector returns the gorm dialector for the configured engine.
func Dialector(db config.DB) (gorm.Dialector, error) {
	dsn, err := Create(db)
	if err != nil {
		return nil, err
	}

	switch db.GormEngine {
	case config.EngineMySQL:
		return mysql.Open(dsn), nil
	case config.EnginePostgres:
		return postgres.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

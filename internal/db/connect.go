// Package db owns GORM connection setup and schema migration for Kadrio.
package db

import (
	"fmt"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wpietrzak/kadrio/internal/config"
)

// Connect opens a GORM connection for the configured driver. SQLite serves
// local development and tests; MySQL serves production deployments.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
	case "mysql":
		// Validate the DSN up front and force ParseTime so DATETIME
		// columns scan into time.Time.
		mcfg, perr := mysqldrv.ParseDSN(cfg.DSN)
		if perr != nil {
			return nil, fmt.Errorf("db: invalid mysql dsn: %w", perr)
		}
		mcfg.ParseTime = true
		db, err = gorm.Open(mysql.Open(mcfg.FormatDSN()), gormCfg)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("db: connect (%s): %w", cfg.Driver, err)
	}
	return db, nil
}

// ConnectMemory opens an in-memory SQLite database for tests.
func ConnectMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect in-memory sqlite: %w", err)
	}
	return db, nil
}

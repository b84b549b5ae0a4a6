// Package db opens the relational database used for durable key-value state.
package db

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Driver names accepted by NewDatabase
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Database wraps the GORM database instance
type Database struct {
	DB *gorm.DB
}

// Config holds database configuration
type Config struct {
	Driver string
	// DSN is a Postgres connection string or a SQLite file path (":memory:" works)
	DSN      string
	LogLevel logger.LogLevel
}

// NewDatabase creates a new database connection and migrates the given models
func NewDatabase(config *Config, log *zap.Logger, models ...interface{}) (*Database, error) {
	if config == nil {
		return nil, fmt.Errorf("database config required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	logLevel := config.LogLevel
	if logLevel == 0 {
		logLevel = logger.Silent
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var dialector gorm.Dialector
	switch config.Driver {
	case DriverPostgres:
		dialector = postgres.Open(config.DSN)
	case DriverSQLite, "":
		dsn := config.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if config.Driver == DriverPostgres {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// A single connection keeps an in-memory SQLite database alive and shared
		sqlDB.SetMaxOpenConns(1)
	}

	database := &Database{DB: db}

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Info("database connected", zap.String("driver", config.Driver))
	return database, nil
}

// Health checks database connectivity
func (d *Database) Health() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

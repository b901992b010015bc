package db

import (
	"context"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialect names as reported by the GORM dialector
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DB wraps the GORM database connection
type DB struct {
	*gorm.DB
}

// Connect establishes a connection to the PostgreSQL database. logLevel
// controls GORM's SQL logging: "debug" logs every statement.
func Connect(dsn, logLevel string) (*DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(sqlLogLevel(logLevel)),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		CreateBatchSize:        1000,
	})
	if err != nil {
		return nil, err
	}

	// Get underlying SQL DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// One writer at a time; a small pool covers health checks
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &DB{DB: db}, nil
}

// Dialect returns the name of the underlying SQL dialect
func (db *DB) Dialect() string {
	return db.Dialector.Name()
}

// Ping checks if the database connection is alive
func (db *DB) Ping() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func sqlLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	default:
		return logger.Warn
	}
}

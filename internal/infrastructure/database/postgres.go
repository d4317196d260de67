package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/identitysvc/internal/infrastructure/repositories"
)

// PoolConfig bounds the connection pool of the credential store
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPool is used when no pool settings are given
var DefaultPool = PoolConfig{
	MaxOpenConns:    20,
	MaxIdleConns:    5,
	ConnMaxLifetime: 30 * time.Minute,
}

// Open creates a new Postgres connection with production-ready settings
func Open(dsn string, debug bool) (*gorm.DB, error) {
	return OpenDialector(postgres.Open(dsn), debug, DefaultPool)
}

// OpenDialector opens any GORM dialector with the service's settings.
// Driver errors are translated so unique violations surface as gorm.ErrDuplicatedKey.
func OpenDialector(dialector gorm.Dialector, debug bool, pool PoolConfig) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	return db, nil
}

// AutoMigrate creates or updates the account and session tables
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&repositories.DBAccount{}); err != nil {
		return fmt.Errorf("failed to migrate accounts table: %w", err)
	}
	if err := db.AutoMigrate(&repositories.DBSession{}); err != nil {
		return fmt.Errorf("failed to migrate sessions table: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/depdiscover/pkg/compression"
	"github.com/depdiscover/pkg/telemetry"
)

// DBConfig holds database configuration.
type DBConfig struct {
	Type     string // sqlite, mysql or postgres
	Mode     Mode
	Path     string // sqlite file
	Host     string
	Port     int
	Database string
	User     string
	Password string
	MaxConns int
}

// DBType represents the database type.
type DBType string

const (
	DBTypeSQLite   DBType = "sqlite"
	DBTypePostgres DBType = "postgres"
	DBTypeMySQL    DBType = "mysql"
)

func normalizeDBType(t string) DBType {
	switch strings.ToLower(t) {
	case "postgresql", "postgres":
		return DBTypePostgres
	case "sqlite3", "sqlite", "":
		return DBTypeSQLite
	default:
		return DBType(strings.ToLower(t))
	}
}

// Mode selects the RunStore implementation.
type Mode string

const (
	ModeGorm Mode = "gorm"
	ModeSQL  Mode = "sql"
)

// NewGormDB creates a new GORM database connection based on configuration.
func NewGormDB(cfg *DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch normalizeDBType(cfg.Type) {
	case DBTypeSQLite:
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(path)
	case DBTypePostgres:
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database,
		)
		dialector = postgres.Open(dsn)
	case DBTypeMySQL:
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if telemetry.Enabled() {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf("failed to enable telemetry: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	if normalizeDBType(cfg.Type) == DBTypeSQLite {
		// every :memory: connection is a separate database
		maxConns = 1
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(max(maxConns/2, 1))
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the run tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&DiscoveryRun{}, &RunDependency{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Repositories holds the run store and its connection.
type Repositories struct {
	Runs   RunStore
	gormDB *gorm.DB
	dbType DBType
}

// NewRepositories creates the run store over an open connection.
func NewRepositories(gormDB *gorm.DB, dbType string, mode Mode, codec *compression.Codec) (*Repositories, error) {
	repos := &Repositories{gormDB: gormDB, dbType: normalizeDBType(dbType)}

	switch mode {
	case ModeSQL:
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		store, err := NewSQLRunStore(sqlDB, dbType, codec)
		if err != nil {
			return nil, err
		}
		repos.Runs = store
	case ModeGorm, "":
		repos.Runs = NewGormRunStore(gormDB, codec)
	default:
		return nil, fmt.Errorf("unsupported database mode: %s", mode)
	}

	return repos, nil
}

// Open connects, migrates the schema and creates the run store.
func Open(cfg *DBConfig, codec *compression.Codec) (*Repositories, error) {
	db, err := NewGormDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		closeGorm(db)
		return nil, err
	}
	repos, err := NewRepositories(db, cfg.Type, cfg.Mode, codec)
	if err != nil {
		closeGorm(db)
		return nil, err
	}
	return repos, nil
}

func closeGorm(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// Close closes the database connection.
func (r *Repositories) Close() error {
	if r.gormDB != nil {
		sqlDB, err := r.gormDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// HealthCheck verifies the database connection is still alive.
func (r *Repositories) HealthCheck(ctx context.Context) error {
	sqlDB, err := r.gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DB returns the underlying sql.DB connection.
func (r *Repositories) DB() *sql.DB {
	sqlDB, _ := r.gormDB.DB()
	return sqlDB
}

// Type returns the database type.
func (r *Repositories) Type() DBType {
	return r.dbType
}

package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tecnomadas-portal/internal/config"
	"tecnomadas-portal/internal/models"
)

// GormDB is the data access layer over the catalog tables.
type GormDB struct {
	db      *gorm.DB
	now     func() time.Time
	encoder ImageEncoder
}

// Option customizes a GormDB
type Option func(*GormDB)

// WithClock overrides the time source used for creation timestamps
func WithClock(now func() time.Time) Option {
	return func(g *GormDB) { g.now = now }
}

// WithImageEncoder sets the step that turns uploads into stored image refs
func WithImageEncoder(enc ImageEncoder) Option {
	return func(g *GormDB) { g.encoder = enc }
}

// Open connects to the configured database
func Open(cfg config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "mysql":
		m := cfg.MySQL
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			m.User, m.Password, m.Host, m.Port, m.Database)
		dialector = mysql.Open(dsn)
	case "postgres":
		p := cfg.Postgres
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
		// lib/pq registers the "postgres" database/sql driver
		dialector = postgres.New(postgres.Config{DriverName: "postgres", DSN: dsn})
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLite.Path + "?_pragma=foreign_keys(1)")
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	slog.Info("database connected", "type", cfg.Type)
	return db, nil
}

// NewGormDBFromDB creates a GormDB wrapper from an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB, opts ...Option) *GormDB {
	g := &GormDB{
		db:      db,
		now:     func() time.Time { return time.Now().UTC() },
		encoder: passthroughEncoder{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

// Now reads the store clock
func (gdb *GormDB) Now() time.Time {
	return gdb.now()
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func InitSchema(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Property{},
		&models.PropertyImage{},
		&models.Inquiry{},
		&models.ModalConfig{},
		&models.DeleteLog{},
		&models.PropertyChange{},
	)
	if err != nil {
		return err
	}
	return backfillLocationSearch(db)
}

// backfillLocationSearch fills the search key of rows written before the
// column existed
func backfillLocationSearch(db *gorm.DB) error {
	var rows []struct {
		ID       string
		Location string
	}
	err := db.Model(&models.Property{}).
		Select("id, location").
		Where("location_search = ? AND location <> ?", "", "").
		Find(&rows).Error
	if err != nil {
		return err
	}
	for _, r := range rows {
		err := db.Model(&models.Property{}).
			Where("id = ?", r.ID).
			UpdateColumn("location_search", models.SearchKey(r.Location)).Error
		if err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		slog.Info("backfilled location search keys", "rows", len(rows))
	}
	return nil
}

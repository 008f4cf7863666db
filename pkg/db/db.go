package db

import (
	"context"
	"fmt"
	"os"
	"time"

	"tsmarket/pkg/config"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var Module = fx.Module("database",
	fx.Provide(
		Dialect,
		New,
	),
	fx.Invoke(RegisterConnectionPool, registerOtel),
)

// Dialect picks the gorm dialector for DATABASE.TYPE.
func Dialect(cfg *config.Config) (gorm.Dialector, error) {
	d := cfg.Database
	switch d.Type {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			d.Host, d.Port, d.User, d.Password, d.DBNAME, d.SSLMode, d.Timezone)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.DBNAME)
		return mysql.Open(dsn), nil
	case "sqlite", "":
		path := d.Path
		if path == "" {
			path = "tsmarket.db"
		}
		return sqlite.Open(fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", d.Type)
	}
}

func New(cfg *config.Config, dialector gorm.Dialector) *gorm.DB {
	var db *gorm.DB
	var err error

	var logLevel logger.LogLevel
	var showSQL bool

	if cfg.AppEnv == "production" {
		logLevel = logger.Warn
		showSQL = false
	} else {
		logLevel = logger.Info
		showSQL = true
	}

	gormLogger := NewZapGormLogger(zap.L(), logLevel, showSQL)

	for i := 0; i < 5; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger:         gormLogger,
			TranslateError: true,
		})
		if err == nil {
			break
		}
		zap.L().Warn("[DB] Database not ready, retrying in 3 seconds... ", zap.Int("retry", i+1), zap.Error(err))
		time.Sleep(3 * time.Second)
	}

	if err != nil {
		zap.L().Error("[DB] Failed to connect to database", zap.Error(err))
		os.Exit(1)
	}

	zap.L().Info("[DB] Database connection successfully configured.", zap.String("dialect", dialector.Name()))

	return db
}

type connectionPoolParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	DB        *gorm.DB
	Config    *config.Config
}

func RegisterConnectionPool(p connectionPoolParams) {
	if p.DB == nil {
		zap.L().Error("[DB] Skipping connection pool setup (no db instance)")
		os.Exit(1)
	}

	sqlDB, err := p.DB.DB()
	if err != nil {
		zap.L().Error("[DB] Failed to get sql.DB from gorm", zap.Error(err))
		os.Exit(1)
	}

	cp := p.Config.Database.ConnectionPool
	maxOpen := cp.MaxOpenConns
	if p.DB.Dialector.Name() == "sqlite" {
		// sqlite has a single writer
		maxOpen = 1
	}
	sqlDB.SetMaxIdleConns(cp.MaxIdleConn)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(cp.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cp.ConnMaxIdleTime)

	zap.L().Info("[DB] Connection pool configured", zap.Int("max_open_conns", maxOpen))
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			zap.L().Info("[DB] Closing connection pool...")
			return sqlDB.Close()
		},
	})
}

func registerOtel(cfg *config.Config, db *gorm.DB, tp trace.TracerProvider) error {
	if !cfg.Otel.Enable {
		return nil
	}
	return Otel(db, tp)
}

func Otel(db *gorm.DB, tp trace.TracerProvider) error {
	if err := db.Use(otelgorm.NewPlugin(otelgorm.WithTracerProvider(tp))); err != nil {
		zap.L().Error("Failed to register db telemetry", zap.Error(err))
		return err
	}

	return nil
}

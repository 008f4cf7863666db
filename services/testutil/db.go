package testutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresDSNEnv names the database NewPostgresDB connects to.
const PostgresDSNEnv = "TSMARKET_TEST_POSTGRES_DSN"

// NewTestDB creates an in-memory SQLite database for testing purposes.
// It auto-migrates the provided models and ensures the underlying connection
// is closed when the test finishes.
//
// The pool holds a single connection, so transactions started from several
// goroutines run one after another, and SQLite ignores FOR UPDATE. Tests on
// this database check the outcome of concurrent calls, not the row lock
// itself; NewPostgresDB covers the lock.
func NewTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB from gorm: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	migrate(t, db, models...)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// NewPostgresDB opens the database named by TSMARKET_TEST_POSTGRES_DSN inside
// a schema private to the test, dropped on cleanup. The test is skipped when
// the variable is unset. The pool is not limited, so concurrent transactions
// contend on SELECT ... FOR UPDATE.
func NewPostgresDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s is not set", PostgresDSNEnv)
	}

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	admin, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		t.Fatalf("failed to open postgres: %v", err)
	}

	schemaName := schemaFor(t.Name())
	if err := admin.Exec("CREATE SCHEMA " + schemaName).Error; err != nil {
		t.Fatalf("failed to create schema %s: %v", schemaName, err)
	}

	db, err := gorm.Open(postgres.Open(withSearchPath(dsn, schemaName)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test schema: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = admin.Exec("DROP SCHEMA " + schemaName + " CASCADE").Error
		if sqlDB, err := admin.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	migrate(t, db, models...)
	return db
}

func migrate(t *testing.T, db *gorm.DB, models ...any) {
	t.Helper()
	if len(models) == 0 {
		return
	}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
}

func schemaFor(testName string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, testName)
	if len(clean) > 40 {
		clean = clean[:40]
	}
	return "t_" + clean + "_" + strconv.FormatInt(time.Now().UnixNano(), 36)
}

// withSearchPath appends search_path to a URL or key=value DSN. pgx passes it
// through as a runtime parameter.
func withSearchPath(dsn, schemaName string) string {
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + schemaName
	}
	return dsn + " search_path=" + schemaName
}

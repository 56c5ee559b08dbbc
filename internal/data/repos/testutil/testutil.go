package testutil

import (
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/threadforge/design-backend/internal/domain"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB opens the shared test database. Tests needing it are skipped when
// TEST_POSTGRES_DSN is not set.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		tb.Skip("TEST_POSTGRES_DSN not set")
	}

	dbOnce.Do(func() {
		cfg := &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)}
		db, dbErr = gorm.Open(postgres.Open(dsn), cfg)
		if dbErr != nil {
			return
		}
		dbErr = db.AutoMigrate(
			&types.PersistedDesign{},
			&types.ProductVariant{},
		)
	})
	if dbErr != nil {
		tb.Fatalf("failed to open test database: %v", dbErr)
	}
	return db
}

// Tx opens a transaction rolled back at test end so cases stay isolated.
func Tx(tb testing.TB, base *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := base.Begin()
	if tx.Error != nil {
		tb.Fatalf("failed to begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() { tx.Rollback() })
	return tx
}

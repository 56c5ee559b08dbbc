package localstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/threadforge/design-backend/internal/pkg/envutil"
	"github.com/threadforge/design-backend/internal/pkg/errors"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

// backupRow is the sqlite schema for one backup entry. Plain column
// defaults only; sqlite cannot run function defaults during migration.
type backupRow struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     []byte    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (backupRow) TableName() string { return "design_backup" }

// Store is a sqlite-backed backup store for single-host deployments that
// run without redis. The database file lives next to the process.
type Store struct {
	log *logger.Logger
	db  *gorm.DB
}

func NewStore(log *logger.Logger) (*Store, error) {
	path := envutil.GetEnv("LOCAL_BACKUP_DB_PATH", "design_backup.db", log)
	return NewStoreAt(log, path)
}

func NewStoreAt(log *logger.Logger, path string) (*Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite backup db: %w", err)
	}
	if err := db.AutoMigrate(&backupRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite backup db: %w", err)
	}
	return &Store{log: log.With("service", "LocalBackupStore"), db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var row backupRow
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("backup get %q: %w", key, err)
	}
	return row.Value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	row := backupRow{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("backup set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&backupRow{}).Error
	if err != nil {
		return fmt.Errorf("backup delete %q: %w", key, err)
	}
	return nil
}

// Memory is the zero-dependency fallback used when neither redis nor the
// sqlite file is available. Backups vanish with the process, which still
// covers the common case of a transient remote outage mid-session.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

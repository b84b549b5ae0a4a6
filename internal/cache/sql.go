package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studyforge/internal/db"
)

// KVEntry is the row model for SQLStore
type KVEntry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName pins the table name
func (KVEntry) TableName() string {
	return "kv_entries"
}

// SQLStore implements Store on a gorm database
type SQLStore struct {
	database *db.Database
}

// NewSQLStore wraps an open database. The kv_entries table must already be migrated.
func NewSQLStore(database *db.Database) *SQLStore {
	return &SQLStore{database: database}
}

// Get retrieves a value
func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var entry KVEntry
	err := s.database.DB.WithContext(ctx).Where("entry_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

// Set upserts a value
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	entry := KVEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.database.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// Delete removes a key
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	return s.database.DB.WithContext(ctx).Where("entry_key = ?", key).Delete(&KVEntry{}).Error
}

// Close closes the underlying database
func (s *SQLStore) Close() error {
	return s.database.Close()
}

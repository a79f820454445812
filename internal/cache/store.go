package cache

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"claimcheck/internal/logger"
	"claimcheck/internal/models"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// OpenDatabase connects to the evidence cache database and migrates its schema.
// postgres:// and postgresql:// URLs use Postgres; anything else is a sqlite path.
func OpenDatabase(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		dialector = postgres.Open(databaseURL)
	default:
		dialector = sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite://"))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}

	return db, nil
}

// StoreCache keeps evidence lookups in a SQL table
type StoreCache struct {
	db       *gorm.DB
	provider string
	ttl      time.Duration
	now      func() time.Time
}

// NewStoreCache creates a store layer for one evidence provider
func NewStoreCache(db *gorm.DB, provider string, ttl time.Duration) *StoreCache {
	return &StoreCache{
		db:       db,
		provider: provider,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get retrieves a live entry. Expired entries are removed.
func (s *StoreCache) Get(key string) ([]byte, bool) {
	var entry models.EvidenceCacheEntry
	err := s.db.Where("cache_key = ?", key).First(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Log.WithFields(map[string]interface{}{
				"cache_key": key,
				"operation": "cache_store_get",
			}).WithError(err).Warn("Evidence cache lookup failed")
		}
		return nil, false
	}

	if entry.Expired(s.now()) {
		_ = s.Delete(key)
		return nil, false
	}

	return []byte(entry.Documents), true
}

// Set upserts the value for key. value must be a JSON document.
func (s *StoreCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.ttl
	}

	now := s.now()
	entry := models.EvidenceCacheEntry{
		CacheKey:  key,
		Provider:  s.provider,
		Query:     key,
		Documents: datatypes.JSON(value),
		CreatedAt: now,
	}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"documents", "created_at", "expires_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry
func (s *StoreCache) Delete(key string) error {
	if err := s.db.Where("cache_key = ?", key).Delete(&models.EvidenceCacheEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry for this store's provider
func (s *StoreCache) Clear() error {
	if err := s.db.Where("provider = ?", s.provider).Delete(&models.EvidenceCacheEntry{}).Error; err != nil {
		return fmt.Errorf("failed to clear cache entries: %w", err)
	}
	return nil
}

// PurgeExpired deletes entries past their expiry and returns how many were removed
func (s *StoreCache) PurgeExpired() (int64, error) {
	result := s.db.Where("expires_at > ? AND expires_at < ?", time.Time{}, s.now()).
		Delete(&models.EvidenceCacheEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired cache entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EvidenceCacheEntry stores the documents an evidence provider returned for one claim query
type EvidenceCacheEntry struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CacheKey  string         `gorm:"size:128;not null;uniqueIndex" json:"cache_key"`
	Provider  string         `gorm:"size:32;not null;index" json:"provider"`
	Query     string         `gorm:"type:text;not null" json:"query"`
	Documents datatypes.JSON `json:"documents"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	ExpiresAt time.Time      `gorm:"index" json:"expires_at"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (e *EvidenceCacheEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the entry is past its expiry at the given time
func (e *EvidenceCacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// AutoMigrate creates or updates database tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EvidenceCacheEntry{})
}

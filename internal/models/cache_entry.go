package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// CacheEntry is a key-value row used when the SQL database backs the cache.
// Rows are addressed by the SHA-256 of Key so keys of any length fit an indexed column;
// Key keeps the exact text for the final equality check.
// A zero ExpiresAt means the entry never expires.
type CacheEntry struct {
	ID        string `gorm:"primaryKey;size:64"`
	Key       string `gorm:"type:text;not null"`
	Value     []byte
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CacheEntryID derives the row identifier for a cache key.
func CacheEntryID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// BeforeSave fills ID from Key when the caller left it empty.
func (e *CacheEntry) BeforeSave(*gorm.DB) error {
	if e.ID == "" {
		e.ID = CacheEntryID(e.Key)
	}
	return nil
}

// Expired reports whether the entry has passed its expiry at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

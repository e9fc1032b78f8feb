package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/promptgallery/internal/models"
)

var errDatabaseStoreNil = errors.New("cache: database store not initialised")

// byID matches the row for key. Columns go through clause.Column so every dialect quotes them.
func byID(key string) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: "id"}, Value: models.CacheEntryID(key)}
}

// lookup loads the row for key. A stored key that differs from key reads as not found.
func lookup(tx *gorm.DB, key string, entry *models.CacheEntry) error {
	if err := tx.Where(byID(key)).Take(entry).Error; err != nil {
		return err
	}
	if entry.Key != key {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DatabaseStore implements Store on top of a SQL database through gorm.
// Expired rows are ignored on read and removed by PurgeExpired.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

// IncrementWithTTL increments a counter row under a row lock. The expiry is only set when
// the counter is created (or recreated after expiring), giving fixed windows.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, error) {
	if s == nil {
		return 0, errDatabaseStoreNil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := s.now()
	var count int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := lookup(tx.Clauses(clause.Locking{Strength: "UPDATE"}), key, &entry)

		fresh := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !fresh {
			return err
		}
		if !fresh && entry.Expired(now) {
			fresh = true
		}

		if fresh {
			count = 1
			entry.ID = models.CacheEntryID(key)
			entry.Key = key
			entry.ExpiresAt = time.Time{}
			if window > 0 {
				entry.ExpiresAt = now.Add(window)
			}
		} else {
			current, parseErr := strconv.ParseInt(string(entry.Value), 10, 64)
			if parseErr != nil {
				return parseErr
			}
			count = current + 1
		}
		entry.Value = []byte(strconv.FormatInt(count, 10))

		if fresh && err != nil {
			return tx.Create(&entry).Error
		}
		return tx.Save(&entry).Error
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Set upserts the value for a given key with expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return errDatabaseStoreNil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	entry := models.CacheEntry{
		ID:    models.CacheEntryID(key),
		Key:   key,
		Value: value,
	}
	if ttl > 0 {
		entry.ExpiresAt = s.now().Add(ttl)
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"key", "value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
}

// Get retrieves a value by key, respecting expiry.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errDatabaseStoreNil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var entry models.CacheEntry
	err := lookup(s.db.WithContext(ctx), key, &entry)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if entry.Expired(s.now()) {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Delete removes keys from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errDatabaseStoreNil
	}
	if len(keys) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ids := make([]any, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, models.CacheEntryID(key))
	}
	return s.db.WithContext(ctx).
		Where(clause.IN{Column: clause.Column{Name: "id"}, Values: ids}).
		Delete(&models.CacheEntry{}).Error
}

// Ping verifies the database connection is alive.
func (s *DatabaseStore) Ping(ctx context.Context) error {
	if s == nil {
		return errDatabaseStoreNil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PurgeExpired deletes rows whose expiry has passed and reports how many were removed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errDatabaseStoreNil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at > ? AND expires_at <= ?", time.Time{}, s.now()).
		Delete(&models.CacheEntry{})
	return res.RowsAffected, res.Error
}

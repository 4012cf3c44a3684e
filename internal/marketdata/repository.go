package marketdata

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Repository provides persistent caching of price frames.
// Frames are stored as msgpack blobs with expiration timestamps, so the
// cache survives restarts and stale entries remain available as a fallback.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new price history repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Store saves a frame with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert.
func (r *Repository) Store(key string, tickers []string, lookbackYears int, frame *PriceFrame, ttl time.Duration) error {
	payload, err := msgpack.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal price frame: %w", err)
	}

	now := time.Now()
	_, err = r.db.Exec(
		`INSERT OR REPLACE INTO price_history
		 (cache_key, tickers, lookback_years, payload, fetched_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key, strings.Join(tickers, ","), lookbackYears, payload, now.Unix(), now.Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store price frame: %w", err)
	}

	return nil
}

// GetFresh returns a frame only if it has not expired.
// Returns nil, nil when the key is absent or expired.
// Use GetStale to retrieve expired data as a fallback when fetches fail.
func (r *Repository) GetFresh(key string) (*PriceFrame, error) {
	return r.get(key, true)
}

// GetStale returns a frame regardless of expiration status.
// Stale data is better than no data when the upstream source is down.
// Returns nil, nil when the key is absent.
func (r *Repository) GetStale(key string) (*PriceFrame, error) {
	return r.get(key, false)
}

func (r *Repository) get(key string, freshOnly bool) (*PriceFrame, error) {
	query := "SELECT payload FROM price_history WHERE cache_key = ?"
	args := []interface{}{key}
	if freshOnly {
		query += " AND expires_at > ?"
		args = append(args, time.Now().Unix())
	}

	var payload []byte
	err := r.db.QueryRow(query, args...).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read price frame: %w", err)
	}

	var frame PriceFrame
	if err := msgpack.Unmarshal(payload, &frame); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price frame: %w", err)
	}

	return &frame, nil
}

// Delete removes a specific entry
func (r *Repository) Delete(key string) error {
	if _, err := r.db.Exec("DELETE FROM price_history WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete price frame: %w", err)
	}
	return nil
}

// DeleteExpired removes all rows past their expiration.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec("DELETE FROM price_history WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired frames: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// DeleteOlderThan removes frames fetched more than age ago, regardless of TTL.
// Returns the number of rows deleted.
func (r *Repository) DeleteOlderThan(age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).Unix()
	result, err := r.db.Exec("DELETE FROM price_history WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old frames: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// Clear removes all cached frames.
// Returns the number of rows deleted.
func (r *Repository) Clear() (int64, error) {
	result, err := r.db.Exec("DELETE FROM price_history")
	if err != nil {
		return 0, fmt.Errorf("failed to clear price cache: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// CacheInfo summarizes the state of the price cache
type CacheInfo struct {
	Entries      int        `json:"entries"`
	FreshEntries int        `json:"fresh_entries"`
	PayloadBytes int64      `json:"payload_bytes"`
	OldestFetch  *time.Time `json:"oldest_fetch,omitempty"`
	NewestFetch  *time.Time `json:"newest_fetch,omitempty"`
}

// Info returns cache statistics
func (r *Repository) Info() (*CacheInfo, error) {
	info := &CacheInfo{}

	err := r.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0) FROM price_history",
	).Scan(&info.Entries, &info.PayloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to count cache entries: %w", err)
	}

	err = r.db.QueryRow(
		"SELECT COUNT(*) FROM price_history WHERE expires_at > ?", time.Now().Unix(),
	).Scan(&info.FreshEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to count fresh entries: %w", err)
	}

	if info.Entries > 0 {
		var oldest, newest int64
		err = r.db.QueryRow(
			"SELECT MIN(fetched_at), MAX(fetched_at) FROM price_history",
		).Scan(&oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("failed to read fetch timestamps: %w", err)
		}

		oldestTime := time.Unix(oldest, 0)
		newestTime := time.Unix(newest, 0)
		info.OldestFetch = &oldestTime
		info.NewestFetch = &newestTime
	}

	return info, nil
}

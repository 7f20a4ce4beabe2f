package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Joenasriani/vibedeal/config"
	"github.com/Joenasriani/vibedeal/models"
)

const (
	sessionKeyPrefix = "vibedeal:session:"
	historyKey       = "vibedeal:history"
)

// SessionStore keeps session snapshots and the recent-search list in
// Redis. Everything is TTL-bound: the store is a reconnect cache, not
// durable storage.
type SessionStore struct {
	rdb          *redis.Client
	ttl          time.Duration
	historyLimit int
}

func NewSessionStore(rdb *redis.Client, cfg *config.Config) *SessionStore {
	return &SessionStore{
		rdb:          rdb,
		ttl:          cfg.SessionTTL,
		historyLimit: cfg.HistoryLimit,
	}
}

func (s *SessionStore) SaveSnapshot(ctx context.Context, snap models.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKeyPrefix+snap.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns nil without error when the session is unknown
// or already expired.
func (s *SessionStore) LoadSnapshot(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	data, err := s.rdb.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}

	var snap models.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode session snapshot: %w", err)
	}
	return &snap, nil
}

// HistoryEntry is one line of the recent-search list.
type HistoryEntry struct {
	ProductQuery     string    `json:"product_query"`
	DeliveryLocation string    `json:"delivery_location"`
	Timestamp        time.Time `json:"timestamp"`
}

func (s *SessionStore) RecordSearch(ctx context.Context, params models.SearchParams) error {
	entry := HistoryEntry{
		ProductQuery:     params.ProductQuery,
		DeliveryLocation: params.DeliveryLocation,
		Timestamp:        time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, 0, int64(s.historyLimit-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record search history: %w", err)
	}
	return nil
}

func (s *SessionStore) RecentSearches(ctx context.Context) ([]HistoryEntry, error) {
	items, err := s.rdb.LRange(ctx, historyKey, 0, int64(s.historyLimit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read search history: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(items))
	for _, item := range items {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/casehall-backend/internal/data/repos"
	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

// DocumentValidator rejects a config document that would not decode.
type DocumentValidator func(raw []byte) error

// DocumentCache is a TTL cache keyed by feed key.
type DocumentCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, doc []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RankingConfigStore serves operator-owned config documents per feed key.
type RankingConfigStore interface {
	// Document returns nil when no row exists for the key.
	Document(ctx context.Context, feedKey string) ([]byte, error)
	Get(ctx context.Context, feedKey string) (*types.RankingConfigRow, error)
	Apply(ctx context.Context, feedKey string, doc []byte, actor string) (*types.RankingConfigRow, error)
}

type RankingConfigStoreDeps struct {
	DB   *gorm.DB
	Log  *logger.Logger
	Repo repos.RankingConfigRepo
	// Cache is optional; TTL <= 0 disables it.
	Cache      DocumentCache
	TTL        time.Duration
	Validators map[string]DocumentValidator
}

type rankingConfigStore struct {
	deps RankingConfigStoreDeps
}

func NewRankingConfigStore(deps RankingConfigStoreDeps) RankingConfigStore {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("service", "RankingConfigStore")
	return &rankingConfigStore{deps: deps}
}

func (s *rankingConfigStore) cacheOn() bool {
	return s.deps.Cache != nil && s.deps.TTL > 0
}

func (s *rankingConfigStore) Document(ctx context.Context, feedKey string) ([]byte, error) {
	feedKey = strings.TrimSpace(feedKey)
	if s.cacheOn() {
		raw, ok, err := s.deps.Cache.Get(ctx, feedKey)
		if err != nil {
			s.deps.Log.Warn("ranking config cache read failed", "feed_key", feedKey, "error", err)
		} else if ok {
			return raw, nil
		}
	}
	row, err := s.deps.Repo.GetByFeedKey(dbctx.Background(ctx), feedKey)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	raw := []byte(row.Document)
	if s.cacheOn() {
		if err := s.deps.Cache.Set(ctx, feedKey, raw, s.deps.TTL); err != nil {
			s.deps.Log.Warn("ranking config cache write failed", "feed_key", feedKey, "error", err)
		}
	}
	return raw, nil
}

func (s *rankingConfigStore) Get(ctx context.Context, feedKey string) (*types.RankingConfigRow, error) {
	return s.deps.Repo.GetByFeedKey(dbctx.Background(ctx), strings.TrimSpace(feedKey))
}

// Apply validates and upserts a document, then drops the cached copy.
func (s *rankingConfigStore) Apply(ctx context.Context, feedKey string, doc []byte, actor string) (*types.RankingConfigRow, error) {
	feedKey = strings.TrimSpace(feedKey)
	validate, ok := s.deps.Validators[feedKey]
	if !ok {
		return nil, fmt.Errorf("unknown feed key %q", feedKey)
	}
	if !json.Valid(doc) {
		return nil, fmt.Errorf("document is not valid JSON")
	}
	if err := validate(doc); err != nil {
		return nil, err
	}
	row := &types.RankingConfigRow{
		FeedKey:   feedKey,
		Document:  doc,
		UpdatedBy: strings.TrimSpace(actor),
	}
	if err := s.deps.Repo.Upsert(dbctx.Background(ctx), row); err != nil {
		return nil, err
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Delete(ctx, feedKey); err != nil {
			s.deps.Log.Warn("ranking config cache invalidation failed", "feed_key", feedKey, "error", err)
		}
	}
	s.deps.Log.Info("ranking config applied", "feed_key", feedKey, "actor", row.UpdatedBy)
	return s.deps.Repo.GetByFeedKey(dbctx.Background(ctx), feedKey)
}

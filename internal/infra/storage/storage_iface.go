package storage

import (
	"context"

	model "go_deproxy/internal/domain/model"
)

type MySQLChainStorageIface interface {
	SaveChainToDB(ctx context.Context, rec *model.ChainRecord) error
	// GetChainFromDB returns nil, nil when the id is unknown.
	GetChainFromDB(ctx context.Context, id string) (*model.ChainRecord, error)
	ListRecentChains(ctx context.Context, limit int) ([]*model.ChainRecord, error)
}

// RedisChainCacheIface caches recent chain records and a most-recent-first id list.
type RedisChainCacheIface interface {
	GetChainFromCache(ctx context.Context, id string) (*model.ChainRecord, error)
	SetChainToCache(ctx context.Context, rec *model.ChainRecord) error
	DeleteChainFromCache(ctx context.Context, id string) error

	PushRecent(ctx context.Context, id string) error
	GetRecentIDs(ctx context.Context, limit int64) ([]string, error)
}

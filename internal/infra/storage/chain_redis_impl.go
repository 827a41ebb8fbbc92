package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	model "go_deproxy/internal/domain/model"
	configs "go_deproxy/internal/infra/config"
	"go_deproxy/utils"

	"github.com/go-redis/redis/v8"
)

const (
	chainKeyPrefix = "deproxy:chain:"
	recentChainKey = "deproxy:chains:recent"
)

// ErrCacheMiss is returned by GetChainFromCache for unknown ids.
var ErrCacheMiss = errors.New("chain not in cache")

type redisChainStorageImpl struct {
	redisClient *redis.Client
	ttl         time.Duration
	recentLimit int64
}

func NewRedisClient(c *configs.ArchiveConfig) (*redis.Client, error) {
	rc := c.RedisConfig
	client := redis.NewClient(&redis.Options{
		Addr:         rc.Addr(),
		Password:     rc.Password,
		DB:           rc.Database,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		MaxRetries:   rc.MaxRetries,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
		PoolTimeout:  rc.PoolTimeout,
		IdleTimeout:  rc.IdleTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", rc.Addr(), err)
	}

	utils.GetLogger().WithField("addr", rc.Addr()).Info("connected to redis")
	return client, nil
}

func NewRedisChainStorageImpl(redisClient *redis.Client, c *configs.ArchiveConfig) RedisChainCacheIface {
	return &redisChainStorageImpl{
		redisClient: redisClient,
		ttl:         c.RedisConfig.TTL,
		recentLimit: c.RecentLimit,
	}
}

var _ RedisChainCacheIface = (*redisChainStorageImpl)(nil)

func (r *redisChainStorageImpl) SetChainToCache(ctx context.Context, rec *model.ChainRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal chain to JSON: %w", err)
	}

	if err := r.redisClient.Set(ctx, chainKeyPrefix+rec.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set chain to redis: %w", err)
	}
	return nil
}

func (r *redisChainStorageImpl) GetChainFromCache(ctx context.Context, id string) (*model.ChainRecord, error) {
	data, err := r.redisClient.Get(ctx, chainKeyPrefix+id).Bytes()
	if err == redis.Nil {
		utils.GetLogger().WithField("request_id", id).Debug("chain not found in cache")
		return nil, ErrCacheMiss
	} else if err != nil {
		return nil, fmt.Errorf("failed to get chain from redis: %w", err)
	}

	rec := &model.ChainRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chain from JSON: %w", err)
	}
	return rec, nil
}

func (r *redisChainStorageImpl) DeleteChainFromCache(ctx context.Context, id string) error {
	if err := r.redisClient.Del(ctx, chainKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete chain from redis: %w", err)
	}
	return nil
}

// PushRecent prepends id to the recent list and trims it to recentLimit.
func (r *redisChainStorageImpl) PushRecent(ctx context.Context, id string) error {
	_, err := r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, recentChainKey, id)
		if r.recentLimit > 0 {
			pipe.LTrim(ctx, recentChainKey, 0, r.recentLimit-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push recent chain: %w", err)
	}
	return nil
}

func (r *redisChainStorageImpl) GetRecentIDs(ctx context.Context, limit int64) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := r.redisClient.LRange(ctx, recentChainKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent chains: %w", err)
	}
	return ids, nil
}

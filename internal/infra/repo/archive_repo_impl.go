package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	model "go_deproxy/internal/domain/model"
	configs "go_deproxy/internal/infra/config"
	"go_deproxy/internal/infra/storage"
	"go_deproxy/utils"

	"github.com/avast/retry-go/v4"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/singleflight"
)

// ErrChainNotArchived is returned by FindChain for ids the archive never saw.
var ErrChainNotArchived = errors.New("chain not archived")

// errArchiveClosed is returned by Submit after Close.
var errArchiveClosed = errors.New("archive closed")

// archiveSaveTimeout bounds one background save, retries included.
const archiveSaveTimeout = 30 * time.Second

// archiveRepoImpl writes chain records to mysql (source of truth) and redis
// (cache + recent list) from an ants pool, retrying each backend with retry-go.
// Reads go cache first and collapse concurrent misses with singleflight.
type archiveRepoImpl struct {
	mysqlStorage storage.MySQLChainStorageIface
	redisCache   storage.RedisChainCacheIface
	config       *configs.ArchiveConfig
	taskPool     *ants.Pool
	sfGroup      singleflight.Group
	pending      sync.WaitGroup
	closed       atomic.Bool
}

var _ ArchiveRepoIface = (*archiveRepoImpl)(nil)

func NewArchiveRepoImpl(mysqlStorage storage.MySQLChainStorageIface, redisCache storage.RedisChainCacheIface, config *configs.ArchiveConfig) (ArchiveRepoIface, error) {
	taskPool, err := ants.NewPool(config.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	return &archiveRepoImpl{
		mysqlStorage: mysqlStorage,
		redisCache:   redisCache,
		config:       config,
		taskPool:     taskPool,
	}, nil
}

// Submit snapshots chain now and saves the snapshot in the background.
func (r *archiveRepoImpl) Submit(chain *model.MessageChain) error {
	if r.closed.Load() {
		return errArchiveClosed
	}
	if !chain.Finalized() {
		return fmt.Errorf("chain %s is not finalized", chain.ID())
	}

	rec := model.NewChainRecord(chain)
	r.pending.Add(1)
	if err := r.taskPool.Submit(func() {
		defer r.pending.Done()
		r.save(rec)
	}); err != nil {
		r.pending.Done()
		return fmt.Errorf("failed to submit archive task: %w", err)
	}
	return nil
}

func (r *archiveRepoImpl) save(rec *model.ChainRecord) {
	log := utils.GetLogger().WithField("request_id", rec.ID)
	ctx, cancel := context.WithTimeout(context.Background(), archiveSaveTimeout)
	defer cancel()

	err := retry.Do(
		func() error {
			return r.mysqlStorage.SaveChainToDB(ctx, rec)
		},
		r.retryOptions(ctx)...,
	)
	if err != nil {
		log.Errorf("failed to archive chain to db: %v", err)
		return
	}

	err = retry.Do(
		func() error {
			if err := r.redisCache.SetChainToCache(ctx, rec); err != nil {
				return err
			}
			return r.redisCache.PushRecent(ctx, rec.ID)
		},
		r.retryOptions(ctx)...,
	)
	if err != nil {
		log.Warnf("failed to cache archived chain: %v", err)
		return
	}
	log.Debug("chain archived")
}

// FindChain looks in the cache, then the database, refilling the cache on a
// database hit.
func (r *archiveRepoImpl) FindChain(ctx context.Context, id string) (*model.ChainRecord, error) {
	rec, err := r.redisCache.GetChainFromCache(ctx, id)
	if err == nil {
		utils.GetLogger().Debugf("chain found in cache: %s", id)
		return rec, nil
	}

	data, err, _ := r.sfGroup.Do("find_chain_"+id, func() (interface{}, error) {
		rec, err := r.mysqlStorage.GetChainFromDB(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get chain from db: %w", err)
		}
		if rec == nil {
			return nil, ErrChainNotArchived
		}

		err = retry.Do(
			func() error {
				return r.redisCache.SetChainToCache(ctx, rec)
			},
			r.retryOptions(ctx)...,
		)
		if err != nil {
			utils.GetLogger().Warnf("failed to refill chain cache for %s: %v", id, err)
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}

	return data.(*model.ChainRecord), nil
}

// RecentChains returns up to limit records, most recent first. The redis list
// drives the order; the database is the fallback when the list is empty.
func (r *archiveRepoImpl) RecentChains(ctx context.Context, limit int64) ([]*model.ChainRecord, error) {
	if limit <= 0 {
		limit = r.config.RecentLimit
	}

	ids, err := r.redisCache.GetRecentIDs(ctx, limit)
	if err != nil || len(ids) == 0 {
		if err != nil {
			utils.GetLogger().Warnf("recent list unavailable, using db: %v", err)
		}
		return r.mysqlStorage.ListRecentChains(ctx, int(limit))
	}

	recs := make([]*model.ChainRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := r.FindChain(ctx, id)
		if errors.Is(err, ErrChainNotArchived) {
			continue
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Close stops accepting work and waits for queued saves until ctx expires.
func (r *archiveRepoImpl) Close(ctx context.Context) error {
	r.closed.Store(true)

	done := make(chan struct{})
	go func() {
		r.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.taskPool.Release()
		return nil
	case <-ctx.Done():
		r.taskPool.Release()
		return fmt.Errorf("archive close: %w", ctx.Err())
	}
}

func (r *archiveRepoImpl) retryOptions(ctx context.Context) []retry.Option {
	attempts := r.config.RetryCount
	if attempts < 1 {
		attempts = 1
	}
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(r.config.RetryDelay),
		retry.LastErrorOnly(true),
	}
}

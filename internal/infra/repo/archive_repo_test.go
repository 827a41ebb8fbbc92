package repo

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	model "go_deproxy/internal/domain/model"
	configs "go_deproxy/internal/infra/config"
	"go_deproxy/internal/infra/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	mu       sync.Mutex
	recs     map[string]*model.ChainRecord
	order    []string
	failures int32
	gets     int32
}

func newFakeDB() *fakeDB {
	return &fakeDB{recs: make(map[string]*model.ChainRecord)}
}

func (f *fakeDB) SaveChainToDB(_ context.Context, rec *model.ChainRecord) error {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return errors.New("transient db failure")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[rec.ID] = rec
	f.order = append(f.order, rec.ID)
	return nil
}

func (f *fakeDB) GetChainFromDB(_ context.Context, id string) (*model.ChainRecord, error) {
	atomic.AddInt32(&f.gets, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs[id], nil
}

func (f *fakeDB) ListRecentChains(_ context.Context, limit int) ([]*model.ChainRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ChainRecord
	for i := len(f.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.recs[f.order[i]])
	}
	return out, nil
}

type fakeCache struct {
	mu     sync.Mutex
	recs   map[string]*model.ChainRecord
	recent []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{recs: make(map[string]*model.ChainRecord)}
}

func (f *fakeCache) GetChainFromCache(_ context.Context, id string) (*model.ChainRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return nil, storage.ErrCacheMiss
	}
	return rec, nil
}

func (f *fakeCache) SetChainToCache(_ context.Context, rec *model.ChainRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[rec.ID] = rec
	return nil
}

func (f *fakeCache) DeleteChainFromCache(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.recs, id)
	return nil
}

func (f *fakeCache) PushRecent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recent = append([]string{id}, f.recent...)
	return nil
}

func (f *fakeCache) GetRecentIDs(_ context.Context, limit int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if int64(len(f.recent)) < limit {
		limit = int64(len(f.recent))
	}
	return append([]string(nil), f.recent[:limit]...), nil
}

func (f *fakeCache) recentIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.recent...)
}

func archiveConfig() *configs.ArchiveConfig {
	return &configs.ArchiveConfig{
		Enabled:     true,
		PoolSize:    4,
		RetryCount:  3,
		RetryDelay:  time.Millisecond,
		RecentLimit: 10,
	}
}

func finalizedChain(t *testing.T, id string) *model.MessageChain {
	t.Helper()
	chain := model.NewMessageChain(id, nil)
	require.NoError(t, chain.Finalize(
		&model.Request{Method: "GET", Path: "/abc/123", Header: http.Header{}},
		&model.Response{Code: 200, Message: "OK", Header: http.Header{}},
	))
	return chain
}

func TestArchiveSubmitAndFind(t *testing.T) {
	db, cache := newFakeDB(), newFakeCache()
	archive, err := NewArchiveRepoImpl(db, cache, archiveConfig())
	require.NoError(t, err)

	require.NoError(t, archive.Submit(finalizedChain(t, "a")))
	require.NoError(t, archive.Submit(finalizedChain(t, "b")))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, archive.Close(ctx))

	rec, err := archive.FindChain(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "GET", rec.Method)
	assert.Equal(t, 200, rec.ResponseCode)
	assert.Len(t, cache.recentIDs(), 2)

	assert.ErrorIs(t, archive.Submit(finalizedChain(t, "c")), errArchiveClosed)
}

func TestArchiveSubmitRejectsOpenChain(t *testing.T) {
	archive, err := NewArchiveRepoImpl(newFakeDB(), newFakeCache(), archiveConfig())
	require.NoError(t, err)
	assert.Error(t, archive.Submit(model.NewMessageChain("open", nil)))
}

func TestArchiveRetriesTransientDBFailure(t *testing.T) {
	db, cache := newFakeDB(), newFakeCache()
	db.failures = 2
	archive, err := NewArchiveRepoImpl(db, cache, archiveConfig())
	require.NoError(t, err)

	require.NoError(t, archive.Submit(finalizedChain(t, "retry")))
	require.NoError(t, archive.Close(context.Background()))

	db.mu.Lock()
	defer db.mu.Unlock()
	assert.Contains(t, db.recs, "retry")
}

func TestArchiveFindChainFallsBackToDB(t *testing.T) {
	db, cache := newFakeDB(), newFakeCache()
	db.recs["db-only"] = &model.ChainRecord{ID: "db-only", Method: "POST"}
	archive, err := NewArchiveRepoImpl(db, cache, archiveConfig())
	require.NoError(t, err)
	ctx := context.Background()

	rec, err := archive.FindChain(ctx, "db-only")
	require.NoError(t, err)
	assert.Equal(t, "POST", rec.Method)

	_, err = cache.GetChainFromCache(ctx, "db-only")
	assert.NoError(t, err, "db hit refills the cache")

	_, err = archive.FindChain(ctx, "db-only")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&db.gets), "second read served from cache")

	_, err = archive.FindChain(ctx, "nowhere")
	assert.ErrorIs(t, err, ErrChainNotArchived)
}

func TestArchiveRecentChains(t *testing.T) {
	db, cache := newFakeDB(), newFakeCache()
	archive, err := NewArchiveRepoImpl(db, cache, archiveConfig())
	require.NoError(t, err)
	ctx := context.Background()

	// empty recent list falls back to the database
	db.recs["old"] = &model.ChainRecord{ID: "old"}
	db.order = []string{"old"}
	recs, err := archive.RecentChains(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "old", recs[0].ID)

	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, archive.Submit(finalizedChain(t, id)))
		// serialize saves so the recent list order is deterministic
		require.Eventually(t, func() bool {
			recent := cache.recentIDs()
			return len(recent) > 0 && recent[0] == id
		}, 2*time.Second, 5*time.Millisecond)
	}

	recs, err = archive.RecentChains(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "third", recs[0].ID)
	assert.Equal(t, "second", recs[1].ID)
	require.NoError(t, archive.Close(ctx))
}

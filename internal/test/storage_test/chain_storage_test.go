package storagetest

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	model "go_deproxy/internal/domain/model"
	configs "go_deproxy/internal/infra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need live MySQL and Redis described by the file that
// DEPROXY_CONFIG_PATH (or deproxy.<DEPROXY_ENV>.yaml) points at.
func initSuite(t *testing.T) *ChainStorageTestSuite {
	t.Helper()
	if os.Getenv("DEPROXY_ARCHIVE_IT") != "1" {
		t.Skip("set DEPROXY_ARCHIVE_IT=1 to run against live MySQL and Redis")
	}
	c, err := configs.LoadDeproxyConfig("")
	require.NoError(t, err)
	require.True(t, c.Archive.Enabled, "archive must be enabled in the test config")

	suite, err := InitializeStorageTest(c)
	require.NoError(t, err)
	return suite
}

func newRecord(suffix string) *model.ChainRecord {
	id := fmt.Sprintf("it-%d-%s", time.Now().UnixNano(), suffix)
	header := http.Header{}
	model.SetRequestID(header, id)
	return &model.ChainRecord{
		ID:               id,
		Method:           http.MethodGet,
		Path:             "/abc/123",
		ResponseCode:     601,
		HandlingCount:    1,
		SentRequest:      &model.RequestRecord{Method: http.MethodGet, Path: "/abc/123", Header: header},
		ReceivedResponse: &model.ResponseRecord{Code: 601, Message: "Something", Header: header, Body: []byte("this is the body")},
		Handlings: model.HandlingRecords{{
			Endpoint:     "Deproxy Endpoint 1",
			EndpointAddr: "127.0.0.1:8081",
			Request:      &model.RequestRecord{Method: http.MethodGet, Path: "/abc/123", Header: header},
			Response:     &model.ResponseRecord{Code: 601, Message: "Something", Header: header},
			ReceivedAt:   time.Now().UTC().Truncate(time.Second),
		}},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSaveChain(t *testing.T) {
	store := initSuite(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rec := newRecord("db")
	require.NoError(t, store.storage.SaveChainToDB(ctx, rec))

	saved, err := store.storage.GetChainFromDB(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, rec.ID, saved.ID)
	assert.Equal(t, rec.ResponseCode, saved.ResponseCode)
	assert.Equal(t, rec.ReceivedResponse.Body, saved.ReceivedResponse.Body)
	require.Len(t, saved.Handlings, 1)
	assert.Equal(t, "Deproxy Endpoint 1", saved.Handlings[0].Endpoint)

	missing, err := store.storage.GetChainFromDB(ctx, "no-such-chain")
	require.NoError(t, err)
	assert.Nil(t, missing)

	recent, err := store.storage.ListRecentChains(ctx, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, recent)
}

func TestRedisSaveChain(t *testing.T) {
	store := initSuite(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rec := newRecord("cache")
	require.NoError(t, store.redisStorage.SetChainToCache(ctx, rec))
	require.NoError(t, store.redisStorage.PushRecent(ctx, rec.ID))

	cached, err := store.redisStorage.GetChainFromCache(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, cached.ID)
	assert.Equal(t, rec.SentRequest.Header.Get(model.RequestIDHeader), cached.SentRequest.Header.Get(model.RequestIDHeader))

	ids, err := store.redisStorage.GetRecentIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, ids)

	require.NoError(t, store.redisStorage.DeleteChainFromCache(ctx, rec.ID))
	_, err = store.redisStorage.GetChainFromCache(ctx, rec.ID)
	assert.Error(t, err)
}

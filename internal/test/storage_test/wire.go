//go:build wireinject
// +build wireinject

package storagetest

import (
	configs "go_deproxy/internal/infra/config"
	"go_deproxy/internal/infra/storage"

	"github.com/google/wire"
)

type ChainStorageTestSuite struct {
	storage      storage.MySQLChainStorageIface
	redisStorage storage.RedisChainCacheIface
}

func NewChainStorageTestSuite(st storage.MySQLChainStorageIface, rd storage.RedisChainCacheIface) *ChainStorageTestSuite {
	return &ChainStorageTestSuite{storage: st, redisStorage: rd}
}

func InitializeStorageTest(c *configs.DeproxyConfig) (*ChainStorageTestSuite, error) {
	wire.Build(storage.StorageSet, NewChainStorageTestSuite)
	return &ChainStorageTestSuite{}, nil
}

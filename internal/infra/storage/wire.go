package storage

import (
	configs "go_deproxy/internal/infra/config"

	"github.com/google/wire"
)

// StorageSet is a Wire provider set that includes all archive storage providers
var StorageSet = wire.NewSet(
	configs.NewArchiveConfig,
	NewMySQLClient,
	NewMysqlChainStorage,
	NewRedisClient,
	NewRedisChainStorageImpl,
)

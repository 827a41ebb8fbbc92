package repo

import (
	"go_deproxy/internal/infra/storage"

	"github.com/google/wire"
)

// Reposet provides the correlation registry.
var Reposet = wire.NewSet(
	NewMessageChainRepo,
)

// ArchiveSet provides the archive repo together with its storage backends.
var ArchiveSet = wire.NewSet(
	storage.StorageSet,
	NewArchiveRepoImpl,
)

package repo

import (
	"context"

	model "go_deproxy/internal/domain/model"
)

// MessageChainRepoIface is the correlation registry: request id -> live chain.
type MessageChainRepoIface interface {
	// Register fails with *model.DuplicateIDError if id is already live.
	Register(id string, chain *model.MessageChain) error
	// Unregister fails with *model.NotFoundError if id is not live.
	Unregister(id string) error
	// Lookup returns nil when id is not live.
	Lookup(id string) *model.MessageChain
	Len() int
}

// ArchiveRepoIface keeps copies of finished chains outside the process.
type ArchiveRepoIface interface {
	// Submit queues chain for archiving and returns immediately.
	Submit(chain *model.MessageChain) error
	FindChain(ctx context.Context, id string) (*model.ChainRecord, error)
	RecentChains(ctx context.Context, limit int64) ([]*model.ChainRecord, error)
	// Close waits for queued writes until ctx expires.
	Close(ctx context.Context) error
}

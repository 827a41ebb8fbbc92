package iface

import (
	"context"

	model "go_deproxy/internal/domain/model"
	"go_deproxy/internal/domain/services"
	"go_deproxy/internal/infra/server"
)

// DeproxyService is what the command line and reporting layers drive.
type DeproxyService interface {
	// AddNamedEndpoint binds a new endpoint; an empty name is generated.
	AddNamedEndpoint(name, address string) (*server.Endpoint, error)
	Endpoints() []*server.Endpoint
	// MakeRequest sends one correlated request and returns its finished chain.
	MakeRequest(ctx context.Context, url string, opts ...services.RequestOption) (*model.MessageChain, error)
	Shutdown(ctx context.Context) error
}

var _ DeproxyService = (*services.Deproxy)(nil)

// ArchiveReader reads finished chains back out of the archive.
type ArchiveReader interface {
	FindChain(ctx context.Context, id string) (*model.ChainRecord, error)
	RecentChains(ctx context.Context, limit int64) ([]*model.ChainRecord, error)
}

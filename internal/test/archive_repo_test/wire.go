//go:build wireinject
// +build wireinject

package archiverepotest

import (
	configs "go_deproxy/internal/infra/config"
	"go_deproxy/internal/infra/repo"

	"github.com/google/wire"
)

type ArchiveRepoTestSuite struct {
	Repo repo.ArchiveRepoIface
}

func NewArchiveRepoTestSuite(r repo.ArchiveRepoIface) *ArchiveRepoTestSuite {
	return &ArchiveRepoTestSuite{Repo: r}
}

func InitializeRepoTest(c *configs.DeproxyConfig) (*ArchiveRepoTestSuite, error) {
	wire.Build(repo.ArchiveSet, NewArchiveRepoTestSuite)
	return &ArchiveRepoTestSuite{}, nil
}

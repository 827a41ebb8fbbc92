//go:build wireinject
// +build wireinject

package main

import (
	"go_deproxy/internal/domain/services"
	configs "go_deproxy/internal/infra/config"
	"go_deproxy/internal/infra/repo"

	"github.com/google/wire"
)

func initializeDeproxy(c *configs.DeproxyConfig) (*services.Deproxy, error) {
	wire.Build(
		configs.NewServerConfig,
		configs.NewClientConfig,
		configs.NewMetricsConfig,
		repo.Reposet,
		provideCollector,
		provideArchive,
		services.DeproxySet,
	)
	return &services.Deproxy{}, nil
}

func initializeArchive(c *configs.DeproxyConfig) (repo.ArchiveRepoIface, error) {
	wire.Build(repo.ArchiveSet)
	return nil, nil
}

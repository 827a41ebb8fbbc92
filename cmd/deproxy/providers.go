package main

import (
	configs "go_deproxy/internal/infra/config"
	"go_deproxy/internal/infra/metrics"
	"go_deproxy/internal/infra/repo"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// provideCollector returns nil when metrics are disabled.
func provideCollector(c *configs.MetricsConfig) *metrics.Collector {
	if !c.Enabled {
		return nil
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.NewCollector(c, registry)
}

// provideArchive returns a nil archive when it is disabled.
func provideArchive(c *configs.DeproxyConfig) (repo.ArchiveRepoIface, error) {
	if !c.Archive.Enabled {
		return nil, nil
	}
	return initializeArchive(c)
}

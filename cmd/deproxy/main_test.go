package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	model "go_deproxy/internal/domain/model"
	configs "go_deproxy/internal/infra/config"
	"go_deproxy/internal/infra/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv("DEPROXY_CONFIG_PATH", "")
	t.Setenv("DEPROXY_ENV", "does-not-exist")

	c, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, configs.DefaultDeproxyConfig(), c)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deproxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoints:\n  - {name: a, address: '127.0.0.1:0'}\n"), 0644))

	c, err := loadConfig(path)
	require.NoError(t, err)
	require.Len(t, c.Endpoints, 1)
	assert.Equal(t, "a", c.Endpoints[0].Name)
}

func TestInitializeDeproxyWithoutArchive(t *testing.T) {
	c := configs.DefaultDeproxyConfig()
	c.Metrics.Enabled = true
	c.Metrics.Address = "127.0.0.1:0"

	d, err := initializeDeproxy(c)
	require.NoError(t, err)
	require.NotNil(t, d.Collector())
	defer d.Shutdown(context.Background())

	ep, err := d.AddNamedEndpoint("only", "127.0.0.1:0")
	require.NoError(t, err)
	chain, err := d.MakeRequest(context.Background(), ep.URL()+"/")
	require.NoError(t, err)
	assert.Len(t, chain.Handlings(), 1)

	families, err := d.Collector().Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "deproxy_inbound_requests_total")
	assert.Contains(t, names, "go_goroutines")
}

func TestProvideCollectorDisabled(t *testing.T) {
	assert.Nil(t, provideCollector(&configs.MetricsConfig{}))
	ar, err := provideArchive(configs.DefaultDeproxyConfig())
	require.NoError(t, err)
	assert.Nil(t, ar)
}

type stubArchive struct {
	records map[string]*model.ChainRecord
}

func (s *stubArchive) FindChain(_ context.Context, id string) (*model.ChainRecord, error) {
	if rec, ok := s.records[id]; ok {
		return rec, nil
	}
	return nil, repo.ErrChainNotArchived
}

func (s *stubArchive) RecentChains(context.Context, int64) ([]*model.ChainRecord, error) {
	out := make([]*model.ChainRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

func TestShow(t *testing.T) {
	archive := &stubArchive{records: map[string]*model.ChainRecord{
		"known": {ID: "known", SentRequest: &model.RequestRecord{Method: "GET", Path: "/"}},
	}}

	assert.NoError(t, show(context.Background(), archive, []string{"known"}))

	err := show(context.Background(), archive, []string{"unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no archived chain")

	showRecent = 5
	t.Cleanup(func() { showRecent = 0 })
	assert.NoError(t, show(context.Background(), archive, nil))
}

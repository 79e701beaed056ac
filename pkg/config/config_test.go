package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Empty(t, DefaultConfig().Warnings(), "defaults agree with each other")
}

func TestWarningsQueryLongerThanServerPrefix(t *testing.T) {
	testCases := []struct {
		maxQueryLen int
		maxPrefix   int
		warns       int
		description string
	}{
		{60, 60, 0, "equal bounds"},
		{0, 60, 0, "unbounded widget"},
		{200, 60, 1, "widget allows longer queries"},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Widget.MaxQueryLen = tc.maxQueryLen
			cfg.Server.MaxPrefix = tc.maxPrefix
			require.NoError(t, cfg.Validate())
			warns := cfg.Warnings()
			require.Len(t, warns, tc.warns)
			if tc.warns > 0 {
				assert.Contains(t, warns[0], "widget.max_query_len (200)")
				assert.Contains(t, warns[0], "server.max_prefix (60)")
			}
		})
	}
}

func TestInitConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
[lookup]
transport = "ipc"
ipc_command = ["qacbox", "ipc", "--data", "/srv/qac"]
limit = 5

[server]
rate_per_sec = 10
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, TransportIPC, cfg.Lookup.Transport)
	assert.Equal(t, []string{"qacbox", "ipc", "--data", "/srv/qac"}, cfg.Lookup.IPCCommand)
	assert.Equal(t, 5, cfg.Lookup.Limit)
	assert.Equal(t, 10.0, cfg.Server.RatePerSec)
	// untouched sections keep their defaults
	assert.Equal(t, DefaultConfig().Index, cfg.Index)
	assert.Equal(t, 2*time.Second, cfg.Lookup.Timeout())
}

func TestLoadConfigPartialRecovery(t *testing.T) {
	// The type mismatch fails the struct decode, the map decode still works.
	path := writeConfig(t, `
[widget]
max_query_len = "long"

[server]
max_limit = 12
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Server.MaxLimit)
	assert.Equal(t, DefaultConfig().Widget, cfg.Widget)
}

func TestLoadConfigBrokenFile(t *testing.T) {
	path := writeConfig(t, "[server\nmax_limit = ")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigResetsInvalidSections(t *testing.T) {
	path := writeConfig(t, `
[lookup]
transport = "carrier-pigeon"

[server]
min_prefix = 10
max_prefix = 2
listen = ":9000"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Lookup, cfg.Lookup)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lookup.Limit = 0
	cfg.Server.MaxLimit = 0
	cfg.Index.Aliases = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup.limit")
	assert.Contains(t, err.Error(), "server.max_limit")
	assert.Contains(t, err.Error(), "index.aliases")
}

func TestIndexPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Index.Entities = "/abs/entities.tsv"
	aliases, entities := cfg.IndexPaths("/data")
	assert.Equal(t, filepath.Join("/data", "aliases.tsv"), aliases)
	assert.Equal(t, "/abs/entities.tsv", entities)
}

func TestWatchReloads(t *testing.T) {
	path := writeConfig(t, "[server]\nmax_limit = 5\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, func(c *Config) { got <- c }) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	cfg := DefaultConfig()
	cfg.Server.MaxLimit = 7
	require.NoError(t, SaveConfig(cfg, path))

	select {
	case c := <-got:
		assert.Equal(t, 7, c.Server.MaxLimit)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload seen")
	}
	cancel()
	assert.NoError(t, <-done)
}

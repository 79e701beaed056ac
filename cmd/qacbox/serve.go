package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/bastiangx/qacbox/internal/httpapi"
	"github.com/bastiangx/qacbox/internal/utils"
	"github.com/bastiangx/qacbox/pkg/config"
	"github.com/bastiangx/qacbox/pkg/dictionary"
	"github.com/bastiangx/qacbox/pkg/server"
	"github.com/bastiangx/qacbox/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// backend is the loaded completion index and the reloader feeding it.
type backend struct {
	dataDir string
	rl      *dictionary.Reloader
	ix      *suggest.Index
}

func loadBackend(c *config.Config) (*backend, error) {
	configDir := ""
	if configPath != "" {
		configDir = filepath.Dir(configPath)
	}
	pr, err := utils.NewPathResolver(configDir)
	if err != nil {
		log.Print("Either env is not set or system is not supported")
		return nil, fmt.Errorf("path resolver: %w", err)
	}
	dataDir := pr.GetDataDir(dataFlag, c.Index.Aliases)
	log.Debugf("Using data dir at: %s", dataDir)

	aliases, entities := c.IndexPaths(dataDir)
	rl, err := dictionary.NewReloader(aliases, entities)
	if err != nil {
		return nil, fmt.Errorf("load index from %s: %w", dataDir, err)
	}
	ix := suggest.NewIndex(rl.Store(), suggest.Options{
		CacheEntries: c.Index.CacheSize,
		Fuzzy:        c.Index.Fuzzy,
	})
	rl.OnReload(ix.SetStore)
	return &backend{dataDir: dataDir, rl: rl, ix: ix}, nil
}

// apply reloads the index when the configured files changed.
// cache_size and fuzzy take effect on restart.
func (b *backend) apply(c *config.Config) {
	aliases, entities := c.IndexPaths(b.dataDir)
	if a, e := b.rl.Paths(); a == aliases && e == entities {
		return
	}
	b.rl.SetPaths(aliases, entities)
	if err := b.rl.Reload(); err != nil {
		log.Warnf("Keeping previous index: %v", err)
	}
}

func limitsFrom(c *config.Config) server.Limits {
	return server.Limits{
		MinPrefix:  c.Server.MinPrefix,
		MaxPrefix:  c.Server.MaxPrefix,
		MaxLimit:   c.Server.MaxLimit,
		RatePerSec: c.Server.RatePerSec,
		Burst:      c.Server.Burst,
	}
}

// watchConfig applies config changes until ctx ends. A watcher that cannot
// start is logged, not fatal.
func watchConfig(ctx context.Context, apply func(*config.Config)) {
	if configPath == "" {
		return
	}
	if err := config.Watch(ctx, configPath, apply); err != nil {
		log.Warnf("Config changes will not be picked up: %v", err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	b, err := loadBackend(cfg)
	if err != nil {
		return err
	}
	if !debugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	api := httpapi.New(b.ix, limitsFrom(cfg))

	addr := cfg.Server.Listen
	if listenFlag != "" {
		addr = listenFlag
	}
	srv := &http.Server{Addr: addr, Handler: api.Router(), ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		watchConfig(ctx, func(c *config.Config) {
			api.SetLimits(limitsFrom(c))
			b.apply(c)
		})
		return nil
	})

	showStartupInfo("http "+addr, b.dataDir, b.ix.Stats())
	return g.Wait()
}

func runIPC(cmd *cobra.Command, args []string) error {
	b, err := loadBackend(cfg)
	if err != nil {
		return err
	}
	srv := server.NewServer(b.ix, limitsFrom(cfg))
	ctx := cmd.Context()

	go watchConfig(ctx, func(c *config.Config) {
		srv.SetLimits(limitsFrom(c))
		b.apply(c)
	})

	showStartupInfo("ipc", b.dataDir, b.ix.Stats())

	// Start blocks reading stdin; a signal ends the process without waiting.
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	select {
	case err := <-done:
		log.Debugf("IPC server handled %d requests", srv.RequestCount())
		return err
	case <-ctx.Done():
		return nil
	}
}

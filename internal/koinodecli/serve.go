// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package koinodecli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/koi-net/koinode/internal/api"
	"github.com/koi-net/koinode/internal/config"
	"github.com/koi-net/koinode/internal/graph"
	"github.com/koi-net/koinode/internal/identity"
	"github.com/koi-net/koinode/internal/metrics"
	"github.com/koi-net/koinode/internal/network"
	"github.com/koi-net/koinode/internal/processor"
	"github.com/koi-net/koinode/internal/queue"
	"github.com/koi-net/koinode/internal/runtime"
	"github.com/koi-net/koinode/internal/store"
)

// runtimeError marks an error surfaced after startup completed — from
// Node.Start's handshake, or from Node.Stop — so Execute can map it to
// exit code 2 instead of the startup/configuration code 1.
type runtimeError struct{ err error }

func (e runtimeError) Error() string { return e.err.Error() }
func (e runtimeError) Unwrap() error { return e.err }

var useMemoryCache bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run this koi-net node",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(context.Background())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&useMemoryCache, "memory", false, "use an in-memory cache instead of Postgres (for local experimentation only)")
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cache, closeCache, err := openCache(ctx, cfg, useMemoryCache)
	if err != nil {
		return err
	}
	defer closeCache()

	baseURL := fmt.Sprintf("http://%s:%d%s", cfg.Server.Host, cfg.Server.Port, cfg.Server.Path)
	id, err := identity.Load(cfg.KOINet.IdentityPath, cfg.KOINet.NodeName, cfg.KOINet.NodeProfile(baseURL))
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	logrus.Infof("koinode: identity %s", id.RID)

	g := graph.New()
	q := queue.New()
	net := network.New(id.RID, cfg.KOINet.FirstContact, g, q)

	// api.Server mounts promhttp.Handler() at /metrics, which serves the
	// default registry, so the collectors are registered there.
	registry := prometheus.DefaultRegisterer
	var collectors *metrics.Collectors
	if cfg.Server.MetricsEnabled {
		collectors, err = metrics.New(registry)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		net.Metrics = collectors.NetworkMetrics()
	}

	engine := processor.New(cache, net, id, cfg.KOINet.Worker())
	if collectors != nil {
		engine.Metrics = collectors.ProcessorMetrics()
	}
	processor.RegisterDefaultHandlers(engine)

	node := &runtime.Node{
		Identity:        id,
		Cache:           cache,
		Network:         net,
		Engine:          engine,
		EventQueuesPath: cfg.KOINet.EventQueuesPath,
	}
	if err := node.Start(ctx); err != nil {
		return runtimeError{fmt.Errorf("start node: %w", err)}
	}
	node.StartPollLoop(ctx, cfg.KOINet.PollInterval())

	server := api.NewServer(api.Options{
		Addr:           cfg.Server.Addr(),
		RootPath:       cfg.Server.Path,
		MetricsEnabled: cfg.Server.MetricsEnabled,
	}, cache, engine, net)

	serverErrCh := make(chan error, 1)
	go func() {
		logrus.Infof("koinode: listening on %s", cfg.Server.Addr())
		serverErrCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logrus.Info("koinode: shutting down")
	case err := <-serverErrCh:
		if err != nil {
			logrus.Errorf("koinode: server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Warnf("koinode: server shutdown: %v", err)
	}
	if err := node.Stop(); err != nil {
		return runtimeError{fmt.Errorf("stop node: %w", err)}
	}
	return nil
}

func openCache(ctx context.Context, cfg *config.Config, memory bool) (store.Cache, func(), error) {
	if memory {
		logrus.Warn("koinode: using in-memory cache, state will not survive a restart")
		return store.NewMemoryCache(), func() {}, nil
	}

	if err := cfg.RequireDatabaseURL(); err != nil {
		return nil, nil, err
	}

	if err := store.RunMigrations(cfg.Database.URL); err != nil {
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	cache, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return cache, func() { _ = cache.Close() }, nil
}

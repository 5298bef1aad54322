// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

// Package api implements the server half of the koi-net Request/Response
// handlers (C5): a chi-based HTTP server exposing the five wire endpoints
// under a configurable root prefix.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/koi-net/koinode/internal/network"
	"github.com/koi-net/koinode/internal/processor"
	"github.com/koi-net/koinode/internal/protocol"
	"github.com/koi-net/koinode/internal/store"
)

// Server is the HTTP API server implementing C5's server half.
type Server struct {
	router     *chi.Mux
	cache      store.Cache
	engine     *processor.Engine
	network    *network.Network
	httpServer *http.Server
}

// Options configure the server's listen address and wire surface.
type Options struct {
	Addr           string
	RootPath       string // e.g. "/koi-net"
	MetricsEnabled bool
}

// NewServer builds a Server over cache/engine/network, mounting the five
// koi-net endpoints under opts.RootPath plus /healthz and (optionally)
// /metrics outside it.
func NewServer(opts Options, cache store.Cache, engine *processor.Engine, net *network.Network) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		cache:   cache,
		engine:  engine,
		network: net,
	}

	s.setupMiddleware()
	s.setupRoutes(opts)

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
}

func (s *Server) setupRoutes(opts Options) {
	s.router.Get("/healthz", s.handleHealthz)
	if opts.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	root := opts.RootPath
	if root == "" {
		root = "/koi-net"
	}
	s.router.Route(root, func(r chi.Router) {
		r.Post(protocol.PathBroadcastEvents, s.handleBroadcastEvents)
		r.Post(protocol.PathPollEvents, s.handlePollEvents)
		r.Post(protocol.PathFetchRIDs, s.handleFetchRIDs)
		r.Post(protocol.PathFetchManifests, s.handleFetchManifests)
		r.Post(protocol.PathFetchBundles, s.handleFetchBundles)
	})
}

// Start begins serving. It blocks until Shutdown is called or the server
// fails for a reason other than a clean shutdown.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying chi.Mux, useful for testing.
func (s *Server) Router() *chi.Mux { return s.router }

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

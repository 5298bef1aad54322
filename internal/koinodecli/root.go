// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

// Package koinodecli implements the koinode command-line interface.
package koinodecli

import (
	"errors"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "koinode",
	Short: "Reference implementation of a koi-net node",
	Long: `koinode runs a single koi-net node: it serves the five koi-net wire
endpoints, maintains a cache of known bundles, and exchanges events with
its peers according to the edges in its graph.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "koinode.yaml", "path to the koinode configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(identityCmd)
}

// Execute runs the koinode CLI and returns the process exit code: 0 on
// success, 1 on a configuration/startup error, 2 on a runtime error
// surfaced after startup completed.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var re runtimeError
	if errors.As(err, &re) {
		return 2
	}
	return 1
}

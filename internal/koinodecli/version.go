// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package koinodecli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koi-net/koinode/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the koinode version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version.Info())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

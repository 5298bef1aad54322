// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package koinodecli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/koi-net/koinode/internal/config"
	"github.com/koi-net/koinode/internal/identity"
)

var skipConfirm bool

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage this node's identity",
}

var identityResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the stored identity file, forcing a new RID on next start",
	Long: `Deleting the identity file is a network-visible act: this node's RID
will change on its next start, and every peer will need to re-learn it
through a new edge negotiation. Requires interactive confirmation unless
--yes is passed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if !skipConfirm && !confirmReset(cfg.KOINet.IdentityPath) {
			fmt.Println("aborted")
			return nil
		}

		if err := identity.Reset(cfg.KOINet.IdentityPath); err != nil {
			return fmt.Errorf("reset identity: %w", err)
		}
		fmt.Println("identity reset")
		return nil
	},
}

func init() {
	identityResetCmd.Flags().BoolVar(&skipConfirm, "yes", false, "skip interactive confirmation")
	identityCmd.AddCommand(identityResetCmd)
}

// confirmReset prompts for confirmation when stdin is an interactive
// terminal; non-interactive invocations (scripts, CI) must pass --yes.
func confirmReset(path string) bool {
	if !term.IsTerminal(int(syscall.Stdin)) {
		fmt.Fprintln(os.Stderr, "refusing to reset identity without --yes on a non-interactive terminal")
		return false
	}

	fmt.Printf("This will delete %s and generate a new node RID on next start. Continue? [y/N] ", path)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

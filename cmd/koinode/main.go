// Copyright (c) 2026 KOI-Net Authors
// SPDX-License-Identifier: MIT

package main

import (
	"os"

	"github.com/koi-net/koinode/internal/koinodecli"
)

func main() {
	os.Exit(koinodecli.Execute())
}

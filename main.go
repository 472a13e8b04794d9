// gptapi - A terminal chat client for the gptAPI Worker.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/Strikerman10/gptAPI/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command megaphone serves the experience-upgrade engine over HTTP.
//
// The engine decides which in-app prompt (megaphone) to show next for an
// account, tracks per-prompt view/snooze/completion state in an embedded
// BadgerDB, and consults a hot-reloaded YAML remote config for rollout
// flags.
//
// Usage:
//
//	megaphone serve --config ./megaphone.yaml
//	megaphone serve --config ./megaphone.yaml --trace
//
// Example requests:
//
//	curl http://localhost:8080/v1/megaphones/next
//	curl -X POST http://localhost:8080/v1/megaphones/introducing_pins/snooze
//	curl http://localhost:8080/metrics
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "megaphone",
	Short: "Prioritized, persisted in-app prompt engine",
	Long: "megaphone decides which experience-upgrade prompt an account should see\n" +
		"next, persisting view/snooze/completion state across restarts.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

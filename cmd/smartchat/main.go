// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/TIASmartChat/pkg/logging"
)

var (
	serverURL string
	userID    string
	authToken string
	logLevel  string
	logDir    string

	logger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "smartchat",
		Short: "A CLI for the TIA Smart Chat guided-conversation service",
		Long: `smartchat talks to a running smartchat-service instance. It drives
the phase-based vision and connect conversations from the terminal and
manages stored sessions.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(logging.Config{
				Level:   logging.ParseLevel(logLevel),
				LogDir:  logDir,
				Service: "smartchat-cli",
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Close()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(),
		"Base URL of the smartchat service")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", os.Getenv("SMARTCHAT_USER_ID"),
		"TIA user id the conversation belongs to")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("SMARTCHAT_AUTH_TOKEN"),
		"Bearer token for the service (empty when the service runs in open mode)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"Directory for CLI log files (disabled when empty)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(listSessionsCmd)
	sessionCmd.AddCommand(deleteSessionCmd)
}

func defaultServerURL() string {
	if url := os.Getenv("SMARTCHAT_SERVER_URL"); url != "" {
		return url
	}
	return "http://localhost:12310"
}

// requireUser guards commands that cannot run without a user id.
func requireUser() error {
	if userID == "" {
		return fmt.Errorf("a user id is required: pass --user or set SMARTCHAT_USER_ID")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

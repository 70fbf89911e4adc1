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
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	sessionCmd = &cobra.Command{
		Use:   "session",
		Short: "Manage conversation sessions",
		Long:  `List or delete sessions stored by the smartchat service.`,
	}

	listSessionsCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored and live sessions",
		RunE:  runListSessions,
	}

	deleteSessionCmd = &cobra.Command{
		Use:   "delete [session-id]",
		Short: "Delete a session's stored answer logs and release it if live",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeleteSession,
	}
)

func runListSessions(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL, authToken)
	out, err := client.ListSessions(cmd.Context())
	if err != nil {
		return err
	}

	live := make(map[string]bool, len(out.Live))
	for _, id := range out.Live {
		live[id] = true
	}

	if len(out.Sessions) == 0 && len(out.Live) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tUSER\tAGENT\tSTARTED\tLIVE")
	seen := make(map[string]bool, len(out.Sessions))
	for _, s := range out.Sessions {
		seen[s.SessionID] = true
		started := time.UnixMilli(s.Timestamp).Format(time.RFC3339)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n",
			s.SessionID, s.UserID, s.Agent, started, live[s.SessionID])
	}
	// Live sessions the store has not recorded yet (lightweight mode or
	// a save that failed) still show up.
	for _, id := range out.Live {
		if !seen[id] {
			fmt.Fprintf(w, "%s\t\t\t\ttrue\n", id)
		}
	}
	return w.Flush()
}

func runDeleteSession(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL, authToken)
	if err := client.DeleteSession(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Println("Session", args[0], "deleted.")
	return nil
}

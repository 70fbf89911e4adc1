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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	chatAgent      string
	chatSession    string
	chatConnection string

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Start or resume a guided conversation",
		Long: `Opens an interactive loop against the smartchat service. Each line you
type is one conversation turn. The service walks you through its phases
and hands the session to the connect agent once your vision profile
exists. Type quit, exit, or bye to end the session.`,
		RunE: runChatCommand,
	}

	resetCmd = &cobra.Command{
		Use:   "reset [session-id]",
		Short: "Abandon a live session without saving anything further",
		Args:  cobra.ExactArgs(1),
		RunE:  runResetCommand,
	}
)

func init() {
	chatCmd.Flags().StringVar(&chatAgent, "agent", "",
		"Agent to request: vision or connect (empty lets the service decide)")
	chatCmd.Flags().StringVar(&chatSession, "session", "",
		"Session id to resume (a new session is created when empty)")
	chatCmd.Flags().StringVar(&chatConnection, "connection", "",
		"Partner relationship to match on: complementary, alliance, mastermind, or intelligent")
}

// agentNameFor maps the friendly flag values onto the service's agent
// names. An empty value is passed through for server-side routing.
func agentNameFor(flag string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "":
		return "", nil
	case "vision":
		return "VisionAgent", nil
	case "connect":
		return "ConnectAgent", nil
	default:
		return "", fmt.Errorf("unknown agent %q: expected vision or connect", flag)
	}
}

// connectionTypeFor validates the --connection flag. An empty value lets
// the service default to complementary matching.
func connectionTypeFor(flag string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(flag)); v {
	case "", "complementary", "alliance", "mastermind", "intelligent":
		return v, nil
	default:
		return "", fmt.Errorf("unknown connection %q: expected complementary, alliance, mastermind, or intelligent", flag)
	}
}

func runChatCommand(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	agent, err := agentNameFor(chatAgent)
	if err != nil {
		return err
	}
	connection, err := connectionTypeFor(chatConnection)
	if err != nil {
		return err
	}

	client := newAPIClient(serverURL, authToken)
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())

	if interactive {
		fmt.Println("Connected to", serverURL)
		fmt.Println("Type your message and press Enter. quit, exit, or bye ends the session.")
		fmt.Println()
	}

	reader := bufio.NewReader(os.Stdin)
	sessionID := chatSession

	for {
		if interactive {
			fmt.Print("you> ")
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if interactive {
					fmt.Println()
				}
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		message := strings.TrimSpace(line)
		if message == "" {
			continue
		}

		resp, err := client.SubmitTurn(cmd.Context(), TurnRequest{
			UserID:         userID,
			SessionID:      sessionID,
			Message:        message,
			Agent:          agent,
			ConnectionType: connection,
		})
		if err != nil {
			// Retryable failures keep the loop alive so the user can
			// resend the same answer.
			fmt.Fprintln(os.Stderr, "Error:", err)
			logger.Warn("turn failed", "session_id", sessionID, "error", err)
			continue
		}
		sessionID = resp.SessionID
		// The requested agent only matters for the first turn; after
		// that the session carries it.
		agent = ""

		printTurn(os.Stdout, resp, interactive)

		if resp.ChatState != "chat" {
			logger.Info("session ended",
				"session_id", resp.SessionID, "completed", resp.Completed)
			return nil
		}
	}
}

// printTurn renders one turn outcome. Recommendations and email drafts
// only appear on the closing turn of a connect conversation.
func printTurn(w io.Writer, resp *TurnResponse, interactive bool) {
	if resp.Response != "" {
		fmt.Fprintf(w, "tia> %s\n", resp.Response)
	}
	if interactive && resp.TotalPhases > 0 && resp.ChatState == "chat" {
		fmt.Fprintf(w, "     [%s, phase %d of %d]\n",
			resp.ActiveAgent, resp.Phase+1, resp.TotalPhases)
	}

	if len(resp.Recommendations) > 0 {
		fmt.Fprintf(w, "\nReferral partners (%s):\n", resp.RecommendationSource)
		for i, b := range resp.Recommendations {
			fmt.Fprintf(w, "  %d. %s", i+1, b.Name)
			if b.BusinessType != "" {
				fmt.Fprintf(w, " (%s)", b.BusinessType)
			}
			fmt.Fprintln(w)
			if b.Address != "" {
				fmt.Fprintf(w, "     %s\n", b.Address)
			}
			if b.PhoneNumber != "" || b.Email != "" {
				fmt.Fprintf(w, "     %s\n",
					strings.TrimSpace(b.PhoneNumber+"  "+b.Email))
			}
			if b.Website != "" {
				fmt.Fprintf(w, "     %s\n", b.Website)
			}
		}
	}

	if len(resp.EmailTemplates) > 0 {
		fmt.Fprintln(w, "\nIntroduction drafts:")
		for _, t := range resp.EmailTemplates {
			fmt.Fprintf(w, "--- to %s", t.BusinessName)
			if t.BusinessEmail != "" {
				fmt.Fprintf(w, " <%s>", t.BusinessEmail)
			}
			fmt.Fprintln(w, " ---")
			fmt.Fprintln(w, t.Body)
		}
	}
}

func runResetCommand(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	client := newAPIClient(serverURL, authToken)
	if err := client.ResetSession(cmd.Context(), ResetRequest{
		UserID:    userID,
		SessionID: args[0],
	}); err != nil {
		return err
	}
	fmt.Println("Session", args[0], "reset.")
	return nil
}

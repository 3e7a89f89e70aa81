// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
	"github.com/spf13/cobra"
)

func newCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture [content]",
		Short: "Submit a capture event",
		Long:  "Send a conversation snippet to the running server for ingestion. Content is read from the argument, or from stdin when omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCapture,
	}

	cmd.Flags().String("address", "127.0.0.1:18990", "server address")
	cmd.Flags().String("account", "", "account the memory belongs to")
	cmd.Flags().String("source", "web", "capture source tag (e.g. chatgpt, slack)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runCapture(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("address")
	account, _ := cmd.Flags().GetString("account")
	source, _ := cmd.Flags().GetString("source")
	out := cmd.OutOrStdout()

	content := ""
	if len(args) == 1 {
		content = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return memerr.Errorf(memerr.CodeCLIInputInvalid, "reading stdin: %w", err)
		}
		content = string(data)
	}
	if strings.TrimSpace(content) == "" {
		return memerr.New(memerr.CodeCLIInputInvalid, "content is empty")
	}

	payload := map[string]any{
		"source":      source,
		"content":     content,
		"captured_at": time.Now().UTC(),
	}
	var body struct {
		Memory struct {
			ID               string `json:"id"`
			Platform         string `json:"platform"`
			ConversationType string `json:"conversation_type"`
		} `json:"memory"`
	}

	client := newServerClient(addr)
	path := fmt.Sprintf("/api/v1/accounts/%s/memories", account)
	if err := client.postJSON(path, payload, &body); err != nil {
		if memerr.HasCode(err, memerr.CodeCLIServerNotRunning) {
			_, _ = fmt.Fprintf(out, "Server at %s is not running (run 'memlayer start')\n", addr)
			return nil
		}
		return err
	}

	_, _ = fmt.Fprintf(out, "Captured %s (platform=%s, type=%s)\n", body.Memory.ID, body.Memory.Platform, body.Memory.ConversationType)
	return nil
}

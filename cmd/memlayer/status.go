// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package main

import (
	"fmt"
	"time"

	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		Long:  "Check the running server's status endpoint and display status and reconciler health.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:18990", "server address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	client := newServerClient(addr)
	var body struct {
		Status     string `json:"status"`
		Reconciler *struct {
			RunCount         int64      `json:"run_count"`
			DivergenceCount  int64      `json:"divergence_count"`
			LastRunAt        *time.Time `json:"last_run_at"`
			LastDivergenceAt *time.Time `json:"last_divergence_at"`
			Healthy          bool       `json:"healthy"`
		} `json:"reconciler"`
	}
	if err := client.getJSON("/api/v1/status", &body); err != nil {
		if memerr.HasCode(err, memerr.CodeCLIServerNotRunning) {
			_, _ = fmt.Fprintf(out, "Server at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Server at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Server at %s: %s\n", addr, body.Status)
	if r := body.Reconciler; r != nil {
		healthy := "healthy"
		if !r.Healthy {
			healthy = "degraded"
		}
		_, _ = fmt.Fprintf(out, "Reconciler: %s (%d runs, %d divergences)\n", healthy, r.RunCount, r.DivergenceCount)
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check binary health, the running server, the memory database, disk space, and other system requirements.",
		RunE:  runDoctor,
	}

	cmd.Flags().String("address", "127.0.0.1:18990", "server address to check")

	return cmd
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr, _ := cmd.Flags().GetString("address")
	dbPath := viper.GetString("storage.path")

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Server", func() string { return checkServer(addr) }},
		{"Config", checkConfig},
		{"Database", func() string { return checkDatabase(dbPath) }},
		{"Disk Space", func() string { return checkDiskSpace(dbPath) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("memlayer %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkServer(addr string) string {
	client := newServerClient(addr)
	var body struct {
		Status string `json:"status"`
	}
	if err := client.getJSON("/api/v1/status", &body); err != nil {
		if memerr.HasCode(err, memerr.CodeCLIServerNotRunning) {
			return fmt.Sprintf("not running at %s (run 'memlayer start')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s at %s", body.Status, addr)
}

func checkConfig() string {
	cfgFile := viper.ConfigFileUsed()
	if cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

func checkDatabase(dbPath string) string {
	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("not created yet at %s", dbPath)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s (%s)", dbPath, formatBytes(uint64(info.Size())))
}

func checkDiskSpace(dbPath string) string {
	path := filepath.Dir(dbPath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Fall back to home directory if the database directory doesn't exist yet.
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}

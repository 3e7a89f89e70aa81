// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/memlayer-dev/memlayer/internal/aggregate"
	"github.com/memlayer-dev/memlayer/internal/config"
	"github.com/memlayer-dev/memlayer/internal/ingest"
	"github.com/memlayer-dev/memlayer/internal/query"
	"github.com/memlayer-dev/memlayer/internal/server"
	"github.com/memlayer-dev/memlayer/internal/store/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the memlayer server",
		Long:  "Load configuration, open the memory store, and start the HTTP server.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("networking.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		config.WarnInsecurePermissions(used)
	}

	// Apply any flag/env overrides that Viper resolved.
	if listen := viper.GetString("networking.listen"); listen != "" {
		cfg.Networking.Listen = listen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening memory store: %w", err)
	}
	defer st.Close()

	classifier := ingest.NewClassifier()
	if cfg.Classifier.RulesPath != "" {
		classifier, err = ingest.NewClassifierFromRules(cfg.Classifier.RulesPath)
		if err != nil {
			return fmt.Errorf("loading classifier rules: %w", err)
		}
	}

	engine := aggregate.NewEngine()
	if err := engine.Rebuild(ctx, st); err != nil {
		return fmt.Errorf("building aggregates: %w", err)
	}

	tracker := ingest.NewTracker(cfg.Quota.DailyLimit, st)
	pipeline := ingest.New(st, st.Audit(), engine, tracker, classifier, ingest.Config{
		RetryAttempts: cfg.Ingest.RetryAttempts,
		RetryBackoff:  cfg.Ingest.RetryBackoff,
	})
	queries := query.NewService(st, engine, tracker)

	reconciler := aggregate.NewReconciler(engine, st, cfg.Aggregates.ReconcileInterval)
	go reconciler.Run(ctx)

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	services, err := server.NewServices(pipeline, queries, reconciler)
	if err != nil {
		return fmt.Errorf("wiring services: %w", err)
	}
	srv.RegisterServices(services)

	slog.Info("memlayer started",
		"listen", cfg.Networking.Listen,
		"db", cfg.Storage.Path,
		"daily_limit", cfg.Quota.DailyLimit)

	return srv.Start(ctx)
}

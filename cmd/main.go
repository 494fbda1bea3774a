package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"item-batch-service/internal/config"
	"item-batch-service/internal/infrastructure/database"
	"item-batch-service/internal/infrastructure/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), envFile)
		},
	}

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Mark every stored item as processed and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.Context(), envFile, cmd)
		},
	}

	rootCmd := &cobra.Command{
		Use:          "item-batch-service",
		Short:        "Item CRUD API with a concurrent batch processing job",
		SilenceUsage: true,
		RunE:         serveCmd.RunE,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to an optional .env file")
	rootCmd.AddCommand(serveCmd, processCmd)

	return rootCmd
}

func runServe(ctx context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Log)

	if err := server.NewServer(cfg, logger).Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	return nil
}

func runProcess(ctx context.Context, envFile string, cmd *cobra.Command) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Log)

	// Ctrl-C stops the workers early; already processed items are still printed
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	items, err := server.NewItemUsecase(cfg, db, logger).ProcessItems(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

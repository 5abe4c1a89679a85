package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basel-ax/materialize/internal/config"
	"github.com/basel-ax/materialize/internal/logging"
	"github.com/basel-ax/materialize/internal/metrics"
	"github.com/basel-ax/materialize/internal/server"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "materialize",
		Short: "Material analysis and re-render API",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
	}

	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the HTTP API",
		RunE:    runServe,
	}
	serveCmd.Flags().String("addr", "", "Listen address (overrides HTTP_ADDR)")
	serveCmd.Flags().Bool("verbose", false, "Enable debug logging")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "materialize %s (%s)\n", Version, GitCommit)
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running server",
		RunE:  runHealthCheck,
	}
	healthCmd.Flags().String("addr", "http://localhost:8000", "Server address")

	rootCmd.AddCommand(serveCmd, versionCmd, healthCmd)
	return rootCmd
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration, missing provider secrets stop the process here
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Starting materialize",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.String("image_edit_provider", cfg.ImageEdit.Provider),
		zap.String("vision_model", cfg.Groq.Model),
	)

	if logging.ParseLevel(cfg.LogLevel) != zap.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create context with cancellation on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector("materialize")
	pipeline, err := buildPipeline(ctx, cfg, collector, logger)
	if err != nil {
		logger.Error("Failed to initialize providers", zap.Error(err))
		return err
	}

	srv := server.New(pipeline, collector, logger, server.OptionsFromConfig(cfg))
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Shut down gracefully")
	return nil
}

func runHealthCheck(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "OK")
	return nil
}

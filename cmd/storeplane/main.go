package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/api"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/cluster"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/config"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/engine"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/helm"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/log"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/oplock"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/provisioner"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/reconciler"
	"github.com/AbhiKunkal/Store-Orchestration-Platform/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "storeplane",
	Short: "Storeplane - e-commerce store control plane for Kubernetes",
	Long: `Storeplane provisions, tracks, and tears down isolated e-commerce
stores on a Kubernetes cluster. Each store is a WordPress + WooCommerce
front-end with its own MySQL database and ingress route, confined to a
per-store namespace and driven to readiness by a crash-safe lifecycle
orchestrator.`,
	Version: Version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control plane API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Storeplane version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(logLevel, logJSON)
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DBPath, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.NewBoltStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store registry: %w", err)
	}
	defer store.Close()

	engines := engine.NewRegistry()
	engines.Register(engine.NewWooCommerce(engine.WooCommerceConfig{
		ChartPath:  cfg.HelmChartPath,
		BaseDomain: cfg.BaseDomain,
		AdminUser:  cfg.WPAdminUser,
		AdminEmail: cfg.WPAdminEmail,
	}))
	engines.Register(engine.NewMedusa())

	inspector, err := cluster.New(cfg.Kubeconfig)
	if err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}

	prov := provisioner.New(store, engines, helm.New(), inspector, oplock.New(), provisioner.Config{
		ProvisionTimeout: cfg.ProvisionTimeout(),
	})

	server := api.NewServer(cfg, store, engines, prov)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Startup recovery runs once, launched alongside the API server; nothing
	// orders it after the listener is bound. It converges records left
	// mid-flight by a previous process but never resumes provisioning.
	go func() {
		if err := reconciler.New(store, engines, inspector).Run(context.Background()); err != nil {
			log.Logger.Error().Err(err).Msg("Startup reconciliation failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Logger.Info().Str("signal", sig.String()).Msg("Shutting down")
		return server.Shutdown(context.Background())
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/thebluefowl/mediastash/internal/config"
	"github.com/thebluefowl/mediastash/internal/logger"
	"github.com/thebluefowl/mediastash/internal/repository"
)

var (
	configPath      string
	verboseFlag     bool
	noCompressFlag  bool
	noEncryptFlag   bool
	containerFlag   string
	metricsTextfile string

	log = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "mediastash",
	Short: "Stash media in cloud object storage with compression and encryption",
	Long: `A CLI tool for uploading media to S3, Backblaze B2, MinIO or Azure Blob Storage.
Files are compressed and encrypted before upload and restored on retrieval.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logger.New(os.Stderr, logger.Level(verboseFlag))
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/mediastash/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&noCompressFlag, "no-compress", false, "disable the compression provider")
	rootCmd.PersistentFlags().BoolVar(&noEncryptFlag, "no-encrypt", false, "disable the encryption provider")
	rootCmd.PersistentFlags().StringVar(&containerFlag, "container", "", "bucket or container to use instead of root_container")
	rootCmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(stashCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(setupCmd)
}

// session is an open repository plus what is needed to tear it down.
type session struct {
	repo     *repository.Repository
	registry *prometheus.Registry
}

func (s *session) Close() error {
	err := s.repo.Close()
	if metricsTextfile != "" {
		err = errors.Join(err, prometheus.WriteToTextfile(metricsTextfile, s.registry))
	}
	return err
}

// loadOrSetupConfig loads existing config or runs setup.
func loadOrSetupConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if errors.Is(err, config.ErrConfigNotFound) {
		return setup()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openSession loads the config and opens the repository. With
// transforms set it builds the provider chain, asking for the password
// when encryption is on; listing needs neither.
func openSession(ctx context.Context, jobs int, transforms bool) (*session, error) {
	cfg, err := loadOrSetupConfig()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if noCompressFlag || !transforms {
		cfg.Compression.Enabled = false
	}
	if noEncryptFlag || !transforms {
		cfg.Encryption.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	var password string
	if cfg.Encryption.Enabled {
		if password, err = masterPassword(); err != nil {
			return nil, fmt.Errorf("failed to get master password: %w", err)
		}
	}
	providers, err := cfg.Providers(password)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	repo, err := repository.Open(ctx, cfg.RepositoryConfig(), cfg.Opener(log),
		repository.WithProviders(providers...),
		repository.WithLogger(log),
		repository.WithMetrics(repository.NewMetrics(registry)),
		repository.WithConcurrency(jobs),
	)
	if err != nil {
		return nil, err
	}
	log.Debug("repository opened", "backend", cfg.Backend, "container", cfg.RootContainer, "providers", len(providers))
	return &session{repo: repo, registry: registry}, nil
}

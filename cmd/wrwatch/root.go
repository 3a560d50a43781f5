package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/wrwatch/internal/adapters/srcom"
	service "github.com/okian/wrwatch/internal/app"
	"github.com/okian/wrwatch/internal/config"
	"github.com/okian/wrwatch/internal/domain/watch"
	"github.com/okian/wrwatch/pkg/logger"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (default $"+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log_level: debug, info, warn, error")
}

var rootCmd = &cobra.Command{
	Use:           "wrwatch",
	Short:         "Find new speedrun world records you have not watched yet",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(cmd.Context(), configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithFormat(cfg.LogFormat)); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		if err := logger.SetLevelString(level); err != nil {
			logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
				logger.String("log_level", level), logger.Error(err))
			_ = logger.SetLevelString("info")
		}
		return nil
	},
}

// newService wires the upstream client and the configured state into a
// Service.
func newService(c *config.Config) (*service.Service, error) {
	states, err := c.WatchStates()
	if err != nil {
		return nil, err
	}
	log := logger.Get()
	client := srcom.NewClient(c.APIBaseURL,
		srcom.WithAPIKey(c.APIKey),
		srcom.WithUserAgent(c.UserAgent),
		srcom.WithTimeout(c.HTTPTimeout()),
		srcom.WithLogger(log.Named("srcom")),
	)
	opts := []service.Option{
		service.WithSource(client),
		service.WithGames(c.Games()),
		service.WithWatchState(watch.NewStore(states)),
		service.WithLogger(log.Named("service")),
	}
	if c.APIKey != "" {
		opts = append(opts, service.WithNotifier(client))
	}
	return service.New(opts...), nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

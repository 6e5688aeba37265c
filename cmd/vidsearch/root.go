package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/config"
	logpkg "github.com/kailas-cloud/vidsearch/internal/logger"
)

// Global flags.
var (
	flagEnv      string
	flagConfig   string
	flagLogLevel string
)

var (
	globalConfig config.Config
	globalLogger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "vidsearch",
	Short: "Semantic search over a video catalog",
	Long: `vidsearch embeds a free-text query and ranks catalog videos by the summed
distance between the query and each video's title and transcript embeddings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		env := flagEnv
		if env == "" {
			env = config.GetEnv()
		}

		var (
			cfg config.Config
			err error
		)
		if flagConfig != "" {
			cfg, err = config.LoadFile(flagConfig)
		} else {
			cfg, err = config.Load(env)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg

		level := cfg.Logging.Level
		if flagLogLevel != "" {
			level = flagLogLevel
		}
		logger, err := logpkg.NewLogger(env, level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		globalLogger = logger
		return nil
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		_ = globalLogger.Sync()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "Environment name: local, dev, docker, prod (default: $ENV or local)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a config file (overrides --env lookup)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level override: debug, info, warn, error")
}

// loggedError marks errors that were already reported through the logger.
type loggedError struct {
	err error
}

func (e *loggedError) Error() string { return e.err.Error() }
func (e *loggedError) Unwrap() error { return e.err }

// fail logs err once and returns it so the process exits non-zero.
func fail(msg string, err error) error {
	globalLogger.Error(msg, zap.Error(err))
	return &loggedError{err: fmt.Errorf("%s: %w", msg, err)}
}

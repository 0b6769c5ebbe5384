// Package cli defines the command-line interface of the gistfav binary.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-gist-favorites/internal/config"
	"github.com/tbourn/go-gist-favorites/internal/sysutil"
)

// defaultEnvFile is loaded when present; a missing default is not an error.
const defaultEnvFile = ".env"

// Options stores global CLI state shared between commands.
type Options struct {
	EnvFile string
	Version string

	// cfg is loaded once in the root pre-run.
	cfg config.Config
}

// Execute builds the root command, runs it with args, and returns any error.
func Execute(args []string, version string) error {
	opts := &Options{
		EnvFile: defaultEnvFile,
		Version: sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev"),
	}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	return cmd.Execute()
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gistfav",
		Short:         "gistfav serves GitHub gists with favorite marks",
		Long:          "gistfav exposes a user's public GitHub gists, single gists and a favorites list over HTTP, joining upstream content with marks kept in a SQL store.",
		Version:       opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(opts.EnvFile, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			opts.cfg = cfg
			sysutil.ConfigureLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
			log.Debug().Str("version", opts.Version).Msg("logger initialized")
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", defaultEnvFile, "Path to a dotenv file with configuration overrides")

	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
	)
	return cmd
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing file is only an error when the
// path was given explicitly.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

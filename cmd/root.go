package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abhisek/aptitude/internal/config"
	"github.com/abhisek/aptitude/internal/logger"
)

// cfg is loaded once by the root PersistentPreRunE.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "aptitude",
	Short: "Terminal aptitude assessment",
	Long: "Aptitude walks you through a short timed assessment, captures how you interact " +
		"with it, and turns the result into an ability profile with career suggestions.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		path, _ := cmd.Flags().GetString("config")
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (overrides APTITUDE_CONFIG env var)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(stagesCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging installs the global logger. The TUI owns the terminal, so
// toFile sends records to the configured log file instead of stderr. The
// returned closer is never nil.
func setupLogging(toFile bool) (io.Closer, error) {
	if !toFile {
		return io.NopCloser(nil), logger.Init(os.Stderr, cfg.Log.Level)
	}
	path := cfg.Log.File
	if path == "" {
		p, err := logger.DefaultLogPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	f, err := logger.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if err := logger.Init(f, cfg.Log.Level); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptitude/internal/doctor"
	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/metrics"
	"github.com/abhisek/aptitude/internal/scoring"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the scoring service and LLM configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		minVersion, _ := cmd.Flags().GetString("min-version")

		logs, err := setupLogging(false)
		if err != nil {
			return err
		}
		defer logs.Close()

		client := scoring.New(cfg.Scoring.BaseURL,
			scoring.WithTimeout(cfg.Scoring.RequestTimeout),
			scoring.WithLogger(logger.Named("scoring")),
			scoring.WithMetrics(metrics.NewManager()),
		)
		checker := doctor.NewChecker(client,
			doctor.WithMinVersion(minVersion),
			doctor.WithTimeout(cfg.Scoring.RequestTimeout),
		)

		llmCfg, configured := cfg.LLMProviderConfig()
		report := checker.Run(cmd.Context(), llmCfg, configured)

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Scoring service: %s\n\n", client.BaseURL())
		for _, c := range report.Checks {
			mark := "✓"
			switch {
			case !c.OK:
				mark = "✗"
			case c.Warn:
				mark = "!"
			}
			fmt.Fprintf(w, "  %s %-20s %s\n", mark, c.Name, c.Detail)
		}

		if !report.OK() {
			return errors.New("some checks failed")
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().String("min-version", doctor.MinServiceVersion, "Minimum supported scoring service version")
}

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptitude/internal/llm"
	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/metrics"
	"github.com/abhisek/aptitude/internal/server"
	"github.com/abhisek/aptitude/internal/store"
	"github.com/abhisek/aptitude/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local scoring and adaptive question service",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		failQuestions, _ := cmd.Flags().GetBool("fail-questions")
		failAnalyze, _ := cmd.Flags().GetBool("fail-analyze")
		if addr == "" {
			addr = cfg.Server.Addr
		}

		logs, err := setupLogging(false)
		if err != nil {
			return err
		}
		defer logs.Close()
		log := logger.Named("serve")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdown, err := tracing.Setup(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName)
		if err != nil {
			return fmt.Errorf("setup tracing: %w", err)
		}
		defer shutdown(ctx)

		opts := []server.Option{
			server.WithLogger(log),
			server.WithMetrics(metrics.Default()),
			server.WithVersion(version),
			server.WithCORSOrigins(cfg.Server.CORSOrigins...),
			server.WithFailures(failQuestions, failAnalyze),
		}

		if llmCfg, ok := cfg.LLMProviderConfig(); ok {
			var repo store.EventRepo
			if cfg.Journal.DSN != "" {
				st, err := store.Open(cfg.Journal.DSN)
				if err != nil {
					log.Warn(ctx, "llm journal disabled", logger.Error(err))
				} else {
					defer st.Close()
					repo = st
				}
			}
			provider, err := llm.NewProvider(ctx, llmCfg, repo, logger.Named("llm"))
			if err != nil {
				return fmt.Errorf("create LLM provider: %w", err)
			}
			log.Info(ctx, "model-backed scoring enabled", logger.String("model", provider.ModelID()))
			opts = append(opts, server.WithProvider(provider))
		} else {
			log.Info(ctx, "no LLM provider configured; using behavioral scoring and static questions")
		}

		return server.New(opts...).Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (defaults to server.addr)")
	serveCmd.Flags().Bool("fail-questions", false, "Answer every generate-question call with 500")
	serveCmd.Flags().Bool("fail-analyze", false, "Answer every analyze call with 500")
}

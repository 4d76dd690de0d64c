package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptitude/internal/app"
	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/screen"
	"github.com/abhisek/aptitude/internal/screens/assessment"
	"github.com/abhisek/aptitude/internal/screens/welcome"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an assessment in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

// runApp builds the client stack, starts the session runner and launches
// the TUI.
func runApp(cmd *cobra.Command) error {
	logs, err := setupLogging(true)
	if err != nil {
		return err
	}
	defer logs.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildClient(ctx, clientOptions{session: sessionConfig()})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := c.runner.Run(runCtx); err != nil {
			c.log.Error(runCtx, "session runner stopped", logger.Error(err))
		}
	}()

	root := welcome.New(func() screen.Screen {
		return assessment.New(c.runner, c.collector)
	})
	appErr := app.Run(ctx, root)

	cancel()
	<-c.runner.Done()
	c.Close(context.Background())

	if appErr != nil {
		return fmt.Errorf("run app: %w", appErr)
	}
	return nil
}

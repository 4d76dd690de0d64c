package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptitude/internal/bank"
	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/metrics"
	"github.com/abhisek/aptitude/internal/results"
	"github.com/abhisek/aptitude/internal/server"
	"github.com/abhisek/aptitude/internal/session"
	"github.com/abhisek/aptitude/internal/simulate"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scripted assessment without a terminal and print the profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		modeName, _ := cmd.Flags().GetString("mode")
		pickName, _ := cmd.Flags().GetString("pick")
		seed, _ := cmd.Flags().GetUint64("seed")
		local, _ := cmd.Flags().GetBool("local")
		fast, _ := cmd.Flags().GetBool("fast")
		asJSON, _ := cmd.Flags().GetBool("json")
		verbose, _ := cmd.Flags().GetBool("verbose")

		mode, err := session.ParseMode(modeName)
		if err != nil {
			return err
		}
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		pick, err := simulate.ParsePicker(pickName, seed)
		if err != nil {
			return err
		}

		logs, err := setupLogging(false)
		if err != nil {
			return err
		}
		defer logs.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := clientOptions{session: sessionConfig()}
		if fast {
			opts.session.FeedbackDelay = time.Millisecond
			opts.session.ModeSelectDelay = time.Millisecond
			opts.session.SettleDelay = time.Millisecond
		}
		if local {
			url, closeSrv, err := startLocalService(ctx)
			if err != nil {
				return err
			}
			defer closeSrv()
			opts.baseURL = url
		}

		c, err := buildClient(ctx, opts)
		if err != nil {
			return err
		}
		runCtx, cancel := context.WithCancel(ctx)
		go func() { _ = c.runner.Run(runCtx) }()

		script := simulate.Script{Mode: mode, Pick: pick}
		if verbose {
			script.OnStep = func(snap session.Snapshot, action string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%-22s %s\n", snap.State, action)
			}
		}
		out, err := simulate.Drive(ctx, c.runner, script)

		cancel()
		<-c.runner.Done()
		c.Close(context.Background())
		if err != nil {
			return fmt.Errorf("simulate: %w", err)
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		printOutcome(cmd, out)
		return nil
	},
}

func init() {
	simulateCmd.Flags().String("mode", "fixed", "Testing mode: fixed or adaptive")
	simulateCmd.Flags().String("pick", "first", "Answer picker: first, random, or a category name")
	simulateCmd.Flags().Uint64("seed", 0, "Seed for the random picker (0 picks one)")
	simulateCmd.Flags().Bool("local", false, "Run against an in-process scoring service")
	simulateCmd.Flags().Bool("fast", false, "Shorten feedback and settle delays")
	simulateCmd.Flags().Bool("json", false, "Print the outcome as JSON")
	simulateCmd.Flags().BoolP("verbose", "v", false, "Print every scripted action")
}

// startLocalService serves the scoring service on a loopback port.
func startLocalService(ctx context.Context) (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{
		Handler: server.New(
			server.WithLogger(logger.Named("serve")),
			server.WithMetrics(metrics.NewManager()),
			server.WithVersion(version),
		).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Named("serve").Warn(ctx, "local service stopped", logger.Error(err))
		}
	}()
	return "http://" + ln.Addr().String(), func() { _ = srv.Close() }, nil
}

func printOutcome(cmd *cobra.Command, out *simulate.Outcome) {
	w := cmd.OutOrStdout()
	p := out.Profile

	fmt.Fprintf(w, "Session:     %s\n", out.SessionID)
	fmt.Fprintf(w, "Mode:        %s", out.Mode)
	if out.Downgraded {
		fmt.Fprint(w, " (downgraded to fixed)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Answered:    %d\n", out.Answered)
	fmt.Fprintf(w, "Elapsed:     %s", out.Elapsed.Round(time.Millisecond))
	if out.TimedOut {
		fmt.Fprint(w, " (time's up)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Profile:     %s, confidence %.0f%%\n", p.Origin, p.Confidence*100)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-12s  %6s\n", "Category", "Score")
	fmt.Fprintln(w, strings.Repeat("─", 20))
	for _, c := range bank.AllCategories() {
		fmt.Fprintf(w, "%-12s  %6.1f\n", c, p.Score(c))
	}

	if len(p.Insights) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Insights")
		for _, in := range p.Insights {
			fmt.Fprintf(w, "  - %s\n", in)
		}
	}

	rec := p.Recommendations
	if rec == nil {
		rec = results.Recommend(p)
	}
	if len(rec.Careers) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Careers:     %s\n", strings.Join(rec.Careers, ", "))
	}
}

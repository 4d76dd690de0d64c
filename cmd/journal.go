package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptitude/internal/store"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the local telemetry and LLM journal",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := openJournal(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		sessions, err := s.Sessions(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("query sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions journaled.")
			return nil
		}

		fmt.Printf("%-36s  %-19s  %-19s  %s\n", "Session", "First seen", "Last seen", "Events")
		fmt.Println(strings.Repeat("─", 90))
		for _, ss := range sessions {
			fmt.Printf("%-36s  %-19s  %-19s  %d\n",
				ss.SessionID,
				ss.FirstSeen.Local().Format("2006-01-02 15:04:05"),
				ss.LastSeen.Local().Format("2006-01-02 15:04:05"),
				ss.Events,
			)
		}
		return nil
	},
}

var journalViewCmd = &cobra.Command{
	Use:   "view <session-id>",
	Short: "Show the events and responses of one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sid := args[0]
		typ, _ := cmd.Flags().GetString("type")

		s, err := openJournal(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		events, err := s.Events(ctx, store.QueryOpts{SessionID: sid})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		responses, err := s.Responses(ctx, sid)
		if err != nil {
			return fmt.Errorf("query responses: %w", err)
		}
		if len(events) == 0 && len(responses) == 0 {
			return fmt.Errorf("session %q not found", sid)
		}

		sep := strings.Repeat("─", 60)
		fmt.Println("EVENTS")
		fmt.Println(sep)
		for _, e := range events {
			if typ != "" && e.Type != typ {
				continue
			}
			data, _ := json.Marshal(e.Data)
			fmt.Printf("%5d  %s  %-18s  %s\n",
				e.LocalSeq, e.CapturedAt.Local().Format("15:04:05.000"), e.Type, data)
		}

		fmt.Println(sep)
		fmt.Println("RESPONSES")
		fmt.Println(sep)
		keys := make([]string, 0, len(responses))
		for k := range responses {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, _ := json.Marshal(responses[k])
			fmt.Printf("%-28s  %s\n", k, v)
		}
		return nil
	},
}

var journalLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect journaled LLM requests",
}

var journalLLMListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		s, err := openJournal(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.LLMRequests(cmd.Context(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query LLM requests: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No LLM requests found.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-18s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Println(strings.Repeat("─", 104))
		for _, e := range events {
			if purpose != "" && e.Purpose != purpose {
				continue
			}
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			model := e.Model
			if len(model) > 28 {
				model = model[:28]
			}
			fmt.Printf("%-5d  %-19s  %-18s  %-28s  %-6d  %-6d  %-7d  %s\n",
				e.Sequence,
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				e.Purpose,
				model,
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

var journalLLMViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View the full request and response of an LLM call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, err := openJournal(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.LLMRequest(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get LLM request: %w", err)
		}
		if e == nil {
			return fmt.Errorf("LLM request %d not found", id)
		}

		sep := strings.Repeat("─", 60)
		fmt.Printf("ID:        %d\n", e.Sequence)
		fmt.Printf("Time:      %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Provider:  %s\n", e.Provider)
		fmt.Printf("Model:     %s\n", e.Model)
		fmt.Printf("Purpose:   %s\n", e.Purpose)
		fmt.Printf("Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
		fmt.Printf("Latency:   %dms\n", e.LatencyMs)
		fmt.Printf("Success:   %v\n", e.Success)
		if e.ErrorMessage != "" {
			fmt.Printf("Error:     %s\n", e.ErrorMessage)
		}

		for _, part := range []struct{ title, body string }{
			{"REQUEST", e.RequestBody},
			{"RESPONSE", e.ResponseBody},
		} {
			fmt.Println()
			fmt.Println(sep)
			fmt.Println(part.title)
			fmt.Println(sep)
			if part.body != "" {
				fmt.Println(part.body)
			} else {
				fmt.Println("(not captured)")
			}
		}
		return nil
	},
}

// openJournal opens the journal at --dsn, falling back to journal.dsn.
func openJournal(cmd *cobra.Command) (*store.Store, error) {
	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		dsn = cfg.Journal.DSN
	}
	if dsn == "" {
		return nil, fmt.Errorf("journal is disabled: set journal.dsn or pass --dsn")
	}
	if strings.Contains(dsn, "mode=memory") {
		fmt.Fprintln(cmd.ErrOrStderr(), "note: the journal DSN is in-memory, so earlier runs are not visible")
	}
	s, err := store.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return s, nil
}

func init() {
	journalCmd.PersistentFlags().String("dsn", "", "Journal DSN (overrides journal.dsn)")

	journalListCmd.Flags().Int("limit", 20, "Maximum number of sessions")
	journalViewCmd.Flags().String("type", "", "Only show events of this type")
	journalLLMListCmd.Flags().Int("limit", 20, "Maximum number of requests")
	journalLLMListCmd.Flags().String("purpose", "", "Only show requests with this purpose")

	journalLLMCmd.AddCommand(journalLLMListCmd)
	journalLLMCmd.AddCommand(journalLLMViewCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalViewCmd)
	journalCmd.AddCommand(journalLLMCmd)
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/aptitude/internal/bank"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List the question bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		b := bank.Default()
		if cfg.Bank.Path != "" {
			loaded, err := bank.Load(cfg.Bank.Path)
			if err != nil {
				return fmt.Errorf("load question bank: %w", err)
			}
			b = loaded
		}
		showChoices, _ := cmd.Flags().GetBool("choices")

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-3s  %-18s  %-28s  %s\n", "#", "ID", "Title", "Answer")
		fmt.Fprintln(w, strings.Repeat("─", 72))

		for i, st := range b.Stages() {
			answer := fmt.Sprintf("%d choices", len(st.Choices))
			if st.FreeText {
				answer = "free text"
			}
			title := st.Title
			if len(title) > 28 {
				title = title[:25] + "..."
			}
			fmt.Fprintf(w, "%-3d  %-18s  %-28s  %s\n", i+1, st.ID, title, answer)
			if showChoices {
				for _, c := range st.Choices {
					fmt.Fprintf(w, "       %-10s %.2f  %s\n", c.Category, c.Weight, c.Text)
				}
			}
		}

		fmt.Fprintf(w, "\n%d fixed stages\n", b.Len())
		fmt.Fprintf(w, "Adaptive stages: %s\n", strings.Join(b.AdaptiveStages(), ", "))
		return nil
	},
}

func init() {
	stagesCmd.Flags().Bool("choices", false, "Show each stage's choices with category and weight")
}

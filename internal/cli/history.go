package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent conversation turns",
	Long: `Show your most recent conversation turns, newest first.

Examples:
  converse history
  converse history -n 50
  converse history -u alice`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max turns to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	result, err := apiClient.History(cmd.Context(), username, historyLimit)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	if len(result.Turns) == 0 {
		fmt.Printf("No conversation history for %s.\n", result.Owner)
		return nil
	}

	hint := defaultTheme.hintStyle()
	status := defaultTheme.statusStyle()

	fmt.Printf("History for %s (%d turns)\n\n", result.Owner, len(result.Turns))
	for _, turn := range result.Turns {
		fmt.Println(hint.Render(turn.CreatedAt.Local().Format(time.RFC822)))
		fmt.Printf("%s %s\n", status.Render(">"), turn.Prompt)
		fmt.Printf("%s\n\n", turn.Response)
	}
	return nil
}

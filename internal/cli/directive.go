package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var directiveCmd = &cobra.Command{
	Use:   "directive <instruction>",
	Short: "Seed a persistent behavior instruction",
	Long: `Store a behavior instruction the model should follow in future
conversations with you. The directive is persisted as a system turn and
surfaces through retrieval like any other prior turn.

Examples:
  converse directive "Always answer in German"
  converse directive -u alice "Keep answers under three sentences"`,
	Args: cobra.ExactArgs(1),
	RunE: runDirective,
}

func runDirective(cmd *cobra.Command, args []string) error {
	response, err := runWithSpinner("Storing directive...", func() (string, error) {
		return apiClient.SendDirective(cmd.Context(), username, args[0])
	})
	if err != nil {
		return fmt.Errorf("send directive: %w", err)
	}

	fmt.Println(response)
	return nil
}

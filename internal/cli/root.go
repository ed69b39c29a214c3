// Package cli provides the command-line interface for converse.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/converse-go/internal/client"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	username  string

	// Global API client
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "converse",
	Short: "Context-augmented chat client",
	Long: `Converse is a chat client whose server remembers past conversations.

Every message is answered with relevant prior turns retrieved from a vector
index, summarized, and folded into the model prompt. Directives let you seed
persistent behavior instructions per user.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		apiClient = client.New(serverURL)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default CONVERSE_SERVER_URL or http://localhost:8383)")
	rootCmd.PersistentFlags().StringVarP(&username, "user", "u", defaultUsername(), "username the conversation belongs to")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(directiveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
}

func defaultUsername() string {
	if u := os.Getenv("CONVERSE_USER"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "default"
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatStream bool

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message or start an interactive session",
	Long: `Send a single message and print the response, or start an interactive
session when no message is given.

The server augments every response with relevant turns from your past
conversations.

Examples:
  converse chat "What did we discuss about the auth service?"
  converse chat -u alice "Remind me of my travel plans"
  converse chat`,
	Args: cobra.ArbitraryArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatStream, "stream", true, "stream response tokens as they arrive")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if len(args) > 0 {
		return sendOne(ctx, strings.Join(args, " "))
	}
	return runInteractive(ctx)
}

func sendOne(ctx context.Context, message string) error {
	if chatStream {
		_, err := apiClient.SendMessageStream(ctx, username, message, func(token string) error {
			fmt.Print(token)
			return nil
		})
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}
		fmt.Println()
		return nil
	}

	response, err := runWithSpinner("Thinking...", func() (string, error) {
		return apiClient.SendMessage(ctx, username, message)
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	fmt.Println(response)
	return nil
}

func runInteractive(ctx context.Context) error {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Printf("Chatting as %s. Type a message, or /quit to exit.\n\n", username)
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}

		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "/quit" || message == "/exit" {
			break
		}

		if err := sendOne(ctx, message); err != nil {
			// Keep the session alive on transient server errors.
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if interactive {
			fmt.Println()
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

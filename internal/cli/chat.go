package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tourrag/internal/app"
	"tourrag/internal/domain"
	"tourrag/internal/usecase"
)

var chatShowSources bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive attraction assistant",
	Long: `Start an interactive session. Each question is answered with retrieved context and
the answer streams to the terminal. Previous turns are sent along as history.

Type /reset to clear the history and /exit (or Ctrl-D) to quit.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatShowSources, "sources", false, "print the sources used after every answer")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := app.New(ctx, GetConfig(), GetRootDir(), logger)
	if err != nil {
		return err
	}
	chat, err := a.NewChat(ctx)
	if err != nil {
		return err
	}

	return chatLoop(ctx, chat, os.Stdin, cmd.OutOrStdout())
}

// chatLoop reads one question per line from in until EOF or /exit.
func chatLoop(ctx context.Context, chat *usecase.ChatUseCase, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	var history []domain.Message

	fmt.Fprintln(out, "Ask about attractions. /reset clears history, /exit quits.")
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			history = nil
			fmt.Fprintln(out, "History cleared.")
			continue
		}

		var answer strings.Builder
		result, err := chat.Stream(ctx, usecase.ChatRequest{Message: line, History: history}, func(chunk string) error {
			answer.WriteString(chunk)
			_, err := fmt.Fprint(out, chunk)
			return err
		})
		fmt.Fprintln(out)

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}

		if chatShowSources {
			printSources(out, result)
		}

		history = append(history,
			domain.Message{Role: domain.RoleUser, Content: line},
			domain.Message{Role: domain.RoleAssistant, Content: answer.String()},
		)
	}
}

func printSources(out io.Writer, result *domain.RetrievalResult) {
	if result.Empty() {
		fmt.Fprintln(out, "[no sources]")
		return
	}
	fmt.Fprintf(out, "[%s", result.Tier)
	if result.LowConfidence {
		fmt.Fprint(out, ", low confidence")
	}
	fmt.Fprintln(out, "]")
	for i, h := range result.Hits {
		fmt.Fprintf(out, "  %d. %s (%.3f)\n", i+1, h.Payload.Title, h.Score)
	}
}

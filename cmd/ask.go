package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bizassist/bizassist/internal/llm"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Send a single question to the chat model",
	Long:  `Sends one question, with an optional system prompt, straight to the configured provider. No document or history is involved.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().String("system", "", "system prompt")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	system, _ := cmd.Flags().GetString("system")
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}

	answer, err := llm.Ask(context.Background(), provider, system, question)
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

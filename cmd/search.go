package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bizassist/bizassist/internal/vectordb"
)

var searchCmd = &cobra.Command{
	Use:   "search [query] [documents...]",
	Short: "Show the passages most relevant to a query",
	Long:  `Indexes the given documents and prints the top passages for the query. The chat model is not called.`,
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntP("limit", "k", 0, "number of passages (default from config)")
	searchCmd.Flags().String("strategy", "", "retrieval strategy: vector or lexical")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	k, _ := cmd.Flags().GetInt("limit")
	strategy, _ := cmd.Flags().GetString("strategy")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := newApp(appOptions{strategy: strategy, topK: k})
	if err != nil {
		return err
	}
	defer a.close()

	sess, err := a.openSession(ctx, "search", args[1:])
	if err != nil {
		return err
	}
	results, err := a.orch.Search(ctx, sess, args[0], k)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		return printSearchResultsJSON(results)
	}
	fmt.Print(vectordb.FormatResults(results))
	return nil
}

type searchResultJSON struct {
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
	Ordinal int     `json:"ordinal"`
	Page    int     `json:"page"`
	Text    string  `json:"text"`
}

func printSearchResultsJSON(results []vectordb.Result) error {
	out := make([]searchResultJSON, 0, len(results))
	for i, r := range results {
		out = append(out, searchResultJSON{
			Rank:    i + 1,
			Score:   float64(r.Score),
			Ordinal: r.Passage.Ordinal,
			Page:    r.Passage.Page + 1,
			Text:    r.Passage.Text,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/bizassist/bizassist/internal/analyst"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyse sales or supply-chain CSV exports",
	Long: `Aggregates a CSV export, prints the key figures and asks the chat model for
the five most important insights. With --chat, follow-up questions about
the data are answered with a short conversation memory.`,
}

var analyzeSalesCmd = &cobra.Command{
	Use:   "sales [csv]",
	Short: "Analyse a sales export (date, region, product, units_sold, revenue, target)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeSales,
}

var analyzeSupplyCmd = &cobra.Command{
	Use:   "supply [csv]",
	Short: "Analyse a supplier export (date, supplier, category, lead_time_days, delivery_rate, stockouts, order_value)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyzeSupply,
}

func init() {
	for _, c := range []*cobra.Command{analyzeSalesCmd, analyzeSupplyCmd} {
		c.Flags().Bool("no-llm", false, "print the aggregates only")
		c.Flags().Bool("chat", false, "ask follow-up questions about the data")
	}
	analyzeSalesCmd.Flags().StringSlice("region", nil, "only these regions")
	analyzeSalesCmd.Flags().StringSlice("product", nil, "only these products")
	analyzeSalesCmd.Flags().StringSlice("month", nil, "only these months (YYYY-MM)")
	analyzeSupplyCmd.Flags().StringSlice("supplier", nil, "only these suppliers")
	analyzeSupplyCmd.Flags().StringSlice("category", nil, "only these categories")

	analyzeCmd.AddCommand(analyzeSalesCmd, analyzeSupplyCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyzeSales(cmd *cobra.Command, args []string) error {
	sales, err := analyst.LoadSales(args[0])
	if err != nil {
		return err
	}
	regions, _ := cmd.Flags().GetStringSlice("region")
	products, _ := cmd.Flags().GetStringSlice("product")
	months, _ := cmd.Flags().GetStringSlice("month")
	sales = sales.Filter(analyst.SalesFilter{Regions: regions, Products: products, Months: months})

	fmt.Println(sales.Summary())
	fmt.Println("\nBy region:")
	fmt.Println(sales.RegionTable())
	fmt.Println("\nBy region and product:")
	fmt.Println(sales.RegionProductTable())

	return analyzeDataset(cmd, sales)
}

func runAnalyzeSupply(cmd *cobra.Command, args []string) error {
	supply, err := analyst.LoadSupply(args[0])
	if err != nil {
		return err
	}
	suppliers, _ := cmd.Flags().GetStringSlice("supplier")
	categories, _ := cmd.Flags().GetStringSlice("category")
	supply = supply.Filter(analyst.SupplyFilter{Suppliers: suppliers, Categories: categories})

	k := supply.KPIs()
	fmt.Println("Supply Chain Summary:")
	fmt.Printf("- Avg Delivery Rate: %.1f%%\n", k.AvgDeliveryRate)
	fmt.Printf("- Avg Lead Time: %.1f days\n", k.AvgLeadTime)
	fmt.Printf("- Total Stockouts: %d\n", k.Stockouts)
	fmt.Printf("- Total Order Value: €%.0f\n", k.OrderValue)
	fmt.Println("\nBy supplier:")
	fmt.Println(supply.SupplierTable())
	fmt.Printf("\nCritical incidents (delivery rate below %.0f%%):\n", analyst.CriticalDeliveryRate)
	fmt.Println(supply.IncidentTable())

	return analyzeDataset(cmd, supply)
}

// analyzeDataset runs the LLM analysis and the optional follow-up chat.
func analyzeDataset(cmd *cobra.Command, ds analyst.Dataset) error {
	noLLM, _ := cmd.Flags().GetBool("no-llm")
	chat, _ := cmd.Flags().GetBool("chat")
	if noLLM {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}
	store, closeStore, err := createHistoryStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	a := analyst.New(provider, store,
		analyst.WithHistoryWindow(cfg.Retrieval.HistoryWindow),
		analyst.WithModel(cfg.LLM.Model),
		analyst.WithLogger(logger),
	)

	ctx := context.Background()
	insights, err := a.Analyze(ctx, ds)
	if err != nil {
		return err
	}
	fmt.Printf("\nAI insights:\n%s\n", insights)

	if !chat {
		return nil
	}
	sessionID := ds.Name() + "-" + uuid.New().String()
	for {
		p := promptui.Prompt{Label: "Ask about the data"}
		line, err := p.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		answer, err := a.Ask(ctx, sessionID, ds, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", answer)
	}
}

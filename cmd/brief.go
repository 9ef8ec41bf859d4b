package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bizassist/bizassist/internal/render"
)

var briefCmd = &cobra.Command{
	Use:   "brief [documents...]",
	Short: "Prepare a meeting brief from a report",
	Long:  `Generates the key questions to raise and a short summary of the most important takeaways from the opening of the document.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBrief,
}

func init() {
	briefCmd.Flags().String("html", "", "also write the brief as an HTML page to this path")
	rootCmd.AddCommand(briefCmd)
}

func runBrief(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	htmlPath, _ := cmd.Flags().GetString("html")

	a, err := newApp(appOptions{progress: true})
	if err != nil {
		return err
	}
	defer a.close()

	sess, err := a.openSession(ctx, "brief", args)
	if err != nil {
		return err
	}
	brief, err := a.orch.Brief(ctx, sess)
	if err != nil {
		return err
	}
	printBrief(brief)

	if htmlPath != "" {
		err := writeTranscript(htmlPath, render.Transcript{
			Title:     "Meeting brief",
			Document:  sess.Info().Document,
			Summary:   brief.Summary,
			Questions: brief.Questions,
			Generated: time.Now(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Brief written to %s\n", htmlPath)
	}
	return nil
}

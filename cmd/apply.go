package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bizassist/bizassist/internal/document"
	"github.com/bizassist/bizassist/internal/jobs"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Draft application material from a CV and a job description",
	Long: `Compares a CV with a job description and produces a match analysis, an ATS
check, a rewritten CV, likely interview questions and a cold email. The
CV may be a PDF, text or markdown file. With --track the application is
recorded in the tracker.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().String("cv", "", "CV file (pdf, txt, md)")
	applyCmd.Flags().String("jd", "", "job description file (pdf, txt, md)")
	applyCmd.Flags().Bool("track", false, "record the application in the tracker")
	applyCmd.Flags().String("company", "", "company name for the tracker")
	applyCmd.Flags().String("title", "", "job title for the tracker")
	applyCmd.Flags().String("url", "", "job posting URL for the tracker")
	applyCmd.Flags().String("out", "", "directory to write each section as a markdown file")
	applyCmd.Flags().Int("concurrency", 1, "parallel requests to the provider")
	applyCmd.MarkFlagRequired("cv")
	applyCmd.MarkFlagRequired("jd")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cvPath, _ := cmd.Flags().GetString("cv")
	jdPath, _ := cmd.Flags().GetString("jd")
	track, _ := cmd.Flags().GetBool("track")
	outDir, _ := cmd.Flags().GetString("out")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

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

	cv, err := document.Load(ctx, cvPath)
	if err != nil {
		return fmt.Errorf("reading CV: %w", err)
	}
	jd, err := document.Load(ctx, jdPath)
	if err != nil {
		return fmt.Errorf("reading job description: %w", err)
	}

	helper := jobs.NewHelper(provider,
		jobs.WithModel(cfg.LLM.Model),
		jobs.WithConcurrency(concurrency),
		jobs.WithLogger(logger),
	)
	pkg, err := helper.Generate(ctx, cv.Text(), jd.Text())
	if err != nil {
		return err
	}

	sections := applySections(pkg)
	for _, s := range sections {
		fmt.Printf("\n## %s\n\n%s\n", s.title, s.body)
	}

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
		for _, s := range sections {
			path := filepath.Join(outDir, s.file)
			if err := os.WriteFile(path, []byte("# "+s.title+"\n\n"+s.body+"\n"), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
		}
		fmt.Fprintf(os.Stderr, "Sections written to %s\n", outDir)
	}

	if !track {
		return nil
	}
	company, _ := cmd.Flags().GetString("company")
	title, _ := cmd.Flags().GetString("title")
	url, _ := cmd.Flags().GetString("url")
	app, err := jobs.NewTracker(cfg.TrackerPath()).Append(jobs.Application{
		Company:     company,
		Title:       title,
		URL:         url,
		MatchScore:  max(pkg.MatchScore, 0),
		ColdEmail:   pkg.ColdEmail,
		RewrittenCV: pkg.Rewrite,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Tracked application %s\n", app.ID)
	return nil
}

type applySection struct {
	title string
	file  string
	body  string
}

func applySections(pkg *jobs.Package) []applySection {
	analysis := pkg.Analysis
	if pkg.MatchScore >= 0 {
		analysis = fmt.Sprintf("Match score: %d/100\n\n%s", pkg.MatchScore, strings.TrimSpace(analysis))
	}
	return []applySection{
		{"Match Analysis", "analysis.md", analysis},
		{"ATS Check", "ats.md", pkg.ATS},
		{"Rewritten CV", "cv.md", pkg.Rewrite},
		{"Interview Questions", "questions.md", pkg.Questions},
		{"Cold Email", "cold_email.md", pkg.ColdEmail},
	}
}

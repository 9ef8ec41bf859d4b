// Package jobs prepares job application material from a CV and a job
// description and keeps a file-backed log of applications.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bizassist/bizassist/internal/llm"
	"github.com/bizassist/bizassist/internal/logging"
	"github.com/bizassist/bizassist/internal/rag"
)

// Package is the full set of generated application material.
type Package struct {
	Analysis   string `json:"analysis"`
	ATS        string `json:"ats"`
	Rewrite    string `json:"rewrite"`
	Questions  string `json:"questions"`
	ColdEmail  string `json:"cold_email"`
	MatchScore int    `json:"match_score"` // -1 when the analysis carries none
	ATSScore   int    `json:"ats_score"`   // -1 when the ATS check carries none
}

// Helper generates application packages.
type Helper struct {
	provider    llm.Provider
	model       string
	concurrency int
	logger      *slog.Logger
}

// Option configures a Helper.
type Option func(*Helper)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(h *Helper) { h.model = model }
}

// WithConcurrency sets how many of the five requests run at once.
func WithConcurrency(n int) Option {
	return func(h *Helper) { h.concurrency = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Helper) { h.logger = l }
}

// NewHelper returns a Helper that sends one request at a time.
func NewHelper(provider llm.Provider, opts ...Option) *Helper {
	h := &Helper{provider: provider, concurrency: 1}
	for _, opt := range opts {
		opt(h)
	}
	if h.concurrency < 1 {
		h.concurrency = 1
	}
	h.logger = logging.OrDiscard(h.logger)
	return h
}

// Generate runs the match analysis, ATS check, CV rewrite, interview
// questions and cold email requests. The first failure cancels the rest.
func (h *Helper) Generate(ctx context.Context, cv, jd string) (*Package, error) {
	if strings.TrimSpace(cv) == "" || strings.TrimSpace(jd) == "" {
		return nil, rag.Invalid("both the CV and the job description are required")
	}

	var pkg Package
	tasks := []struct {
		name   string
		system string
		user   string
		out    *string
	}{
		{"analysis", RecruiterSystem, analysisPrompt(cv, jd), &pkg.Analysis},
		{"ats", RecruiterSystem, atsPrompt(cv, jd), &pkg.ATS},
		{"rewrite", RecruiterSystem, rewritePrompt(cv, jd), &pkg.Rewrite},
		{"questions", RecruiterSystem, questionsPrompt(cv, jd), &pkg.Questions},
		{"cold_email", ColdEmailSystem, coldEmailPrompt(cv, jd), &pkg.ColdEmail},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)
	for _, task := range tasks {
		g.Go(func() error {
			resp, err := h.provider.Complete(gctx, llm.CompletionRequest{
				Model: h.model,
				Messages: []llm.Message{
					{Role: llm.RoleSystem, Content: task.system},
					{Role: llm.RoleUser, Content: task.user},
				},
			})
			if err != nil {
				h.logger.Warn("generation step failed", "step", task.name, "error", err)
				if errors.Is(err, rag.ErrAdapterFailure) {
					return err
				}
				return &rag.AdapterError{Provider: h.provider.Name(), Err: err}
			}
			*task.out = resp.Content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pkg.MatchScore = ExtractScore(pkg.Analysis, "match")
	pkg.ATSScore = ExtractScore(pkg.ATS, "ats")
	return &pkg, nil
}

var scaleHint = regexp.MustCompile(`\(\s*0\s*-\s*100\s*\)`)

// ExtractScore finds the first "<label> score ... N" in text, with N in
// 0..100. A "(0-100)" scale hint is ignored. It returns -1 when no score
// is present.
func ExtractScore(text, label string) int {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(label) + `\s+score[^0-9]{0,20}?(\d{1,3})`)
	if err != nil {
		return -1
	}
	m := re.FindStringSubmatch(scaleHint.ReplaceAllString(text, ""))
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > 100 {
		return -1
	}
	return n
}

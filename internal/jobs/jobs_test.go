package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizassist/bizassist/internal/llm"
	"github.com/bizassist/bizassist/internal/rag"
)

// scriptedProvider answers by matching the user prompt's opening words.
type scriptedProvider struct {
	mu      sync.Mutex
	calls   []llm.CompletionRequest
	replies map[string]string
	failOn  string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	user := req.Messages[len(req.Messages)-1].Content
	if p.failOn != "" && strings.HasPrefix(user, p.failOn) {
		return nil, errors.New("quota exceeded")
	}
	for prefix, reply := range p.replies {
		if strings.HasPrefix(user, prefix) {
			return &llm.CompletionResponse{Content: reply}, nil
		}
	}
	return &llm.CompletionResponse{Content: "ok"}, nil
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "jobs", name))
	require.NoError(t, err)
	return string(data)
}

func TestGenerate(t *testing.T) {
	p := &scriptedProvider{replies: map[string]string{
		"Analyse this CV":   "1. MATCH SCORE: 78/100, strong analytics background\n2. TOP 3 STRENGTHS",
		"You are an ATS":    "1. ATS SCORE (0-100): 64",
		"Write a cold email": "Subject: Your Q3 pricing launch",
	}}
	cv, jd := readFixture(t, "cv.txt"), readFixture(t, "jd.txt")

	pkg, err := NewHelper(p, WithConcurrency(5)).Generate(context.Background(), cv, jd)
	require.NoError(t, err)
	assert.Equal(t, 78, pkg.MatchScore)
	assert.Equal(t, 64, pkg.ATSScore)
	assert.Equal(t, "Subject: Your Q3 pricing launch", pkg.ColdEmail)
	assert.Equal(t, "ok", pkg.Rewrite)
	assert.Equal(t, "ok", pkg.Questions)

	require.Len(t, p.calls, 5)
	systems := map[string]int{}
	for _, c := range p.calls {
		require.Len(t, c.Messages, 2)
		systems[c.Messages[0].Content]++
		assert.Contains(t, c.Messages[1].Content, "CV: "+cv)
		assert.Contains(t, c.Messages[1].Content, "Job Description: "+jd)
	}
	assert.Equal(t, 4, systems[RecruiterSystem])
	assert.Equal(t, 1, systems[ColdEmailSystem])
}

func TestGenerate_RequiresBothInputs(t *testing.T) {
	p := &scriptedProvider{}
	h := NewHelper(p)
	_, err := h.Generate(context.Background(), "", "jd")
	assert.ErrorIs(t, err, rag.ErrInvalidInput)
	_, err = h.Generate(context.Background(), "cv", "  ")
	assert.ErrorIs(t, err, rag.ErrInvalidInput)
	assert.Empty(t, p.calls)
}

func TestGenerate_FailureIsAdapterError(t *testing.T) {
	p := &scriptedProvider{failOn: "Rewrite"}
	_, err := NewHelper(p).Generate(context.Background(), "cv", "jd")
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrAdapterFailure)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestExtractScore(t *testing.T) {
	tests := []struct {
		text  string
		label string
		want  int
	}{
		{"1. MATCH SCORE (0-100): 82 - good fit", "match", 82},
		{"**Match Score:** 91/100", "match", 91},
		{"Match score\n\n45", "match", 45},
		{"ATS SCORE: 100", "ats", 100},
		{"No numbers here", "match", -1},
		{"MATCH SCORE: 450", "match", -1},
		{"ATS score: 70", "match", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractScore(tt.text, tt.label), tt.text)
	}
}

func TestTracker_MissingFileIsEmpty(t *testing.T) {
	tr := NewTracker(filepath.Join(t.TempDir(), "applications.json"))
	apps, err := tr.List()
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestTracker_AppendAndUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "applications.json")
	tr := NewTracker(path)
	tr.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

	a, err := tr.Append(Application{Company: "Acme", Title: "BI Analyst", MatchScore: 78})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "2026-03-02", a.Date)
	assert.Equal(t, StatusApplied, a.Status)

	_, err = tr.Append(Application{Company: "Globex", Title: "Data Lead", Status: StatusInterview})
	require.NoError(t, err)

	updated, err := tr.Update(a.ID, func(app *Application) {
		app.Status = StatusOffer
		app.Notes = "second round done"
		app.ID = "ignored"
	})
	require.NoError(t, err)
	assert.Equal(t, a.ID, updated.ID)
	assert.Equal(t, StatusOffer, updated.Status)

	apps, err := NewTracker(path).List()
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "Acme", apps[0].Company)
	assert.Equal(t, StatusOffer, apps[0].Status)
	assert.Equal(t, "Globex", apps[1].Company)

	_, err = tr.Update("nope", func(*Application) {})
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestTracker_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "applications.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := NewTracker(path).List()
	assert.Error(t, err)
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusApplied, StatusInterview, StatusOffer, StatusRejected} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("ghosted"))
	assert.False(t, ValidStatus(""))
}

package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &LineReporter{Out: &buf, Label: "Indexing report.pdf"}
	r.Start(2)
	r.Update(1, "embedding")
	r.Update(2, "indexing")
	r.Finish()

	assert.Equal(t, "Indexing report.pdf: 2 passages\n[1/2] embedding\n[2/2] indexing\nIndexing report.pdf: done\n", buf.String())
}

func TestNewReporter_CI(t *testing.T) {
	t.Setenv("CI", "true")
	_, ok := NewReporter("x").(*LineReporter)
	assert.True(t, ok)
}

func TestNewReporter_Terminal(t *testing.T) {
	t.Setenv("CI", "")
	t.Setenv("GITHUB_ACTIONS", "")
	r := NewReporter("Indexing")
	assert.IsType(t, &TerminalReporter{}, r)
}

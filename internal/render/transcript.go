package render

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/bizassist/bizassist/internal/conversation"
)

// Transcript is a conversation export.
type Transcript struct {
	Title     string
	Document  string
	Summary   string // meeting brief takeaways, markdown
	Questions string // meeting brief questions, markdown
	Turns     []conversation.Turn
	Generated time.Time
}

type transcriptTurn struct {
	Role string
	Time string
	Body template.HTML
}

type transcriptView struct {
	Title     string
	Document  string
	Summary   template.HTML
	Questions template.HTML
	Turns     []transcriptTurn
	Generated string
}

var transcriptTmpl = template.Must(template.New("transcript").Parse(transcriptHTML))

// WriteTranscript writes t as a standalone HTML page.
func (r *Renderer) WriteTranscript(w io.Writer, t Transcript) error {
	if t.Generated.IsZero() {
		t.Generated = time.Now()
	}
	view := transcriptView{
		Title:     t.Title,
		Document:  t.Document,
		Generated: t.Generated.Format("2006-01-02 15:04"),
	}
	if t.Summary != "" {
		view.Summary = r.Safe(t.Summary)
	}
	if t.Questions != "" {
		view.Questions = r.Safe(t.Questions)
	}
	for _, turn := range t.Turns {
		tt := transcriptTurn{Role: string(turn.Role), Body: r.Safe(turn.Text)}
		if !turn.CreatedAt.IsZero() {
			tt.Time = turn.CreatedAt.Format("15:04")
		}
		view.Turns = append(view.Turns, tt)
	}
	if err := transcriptTmpl.Execute(w, view); err != nil {
		return fmt.Errorf("rendering transcript: %w", err)
	}
	return nil
}

const transcriptHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; color: #1f2328; }
    header { border-bottom: 1px solid #d0d7de; margin-bottom: 1.5rem; }
    .meta { color: #656d76; font-size: 0.85rem; }
    .brief { display: grid; grid-template-columns: 1fr 1fr; gap: 1rem; margin-bottom: 2rem; }
    .brief section { background: #f6f8fa; border-radius: 6px; padding: 0 1rem; }
    .turn { border-radius: 6px; padding: 0.25rem 1rem; margin: 0.75rem 0; }
    .turn.user { background: #ddf4ff; }
    .turn.assistant { background: #f6f8fa; }
    .role { font-weight: 600; text-transform: capitalize; }
    pre { overflow-x: auto; padding: 0.75rem; border-radius: 6px; }
    table { border-collapse: collapse; }
    th, td { border: 1px solid #d0d7de; padding: 0.25rem 0.5rem; }
  </style>
</head>
<body>
  <header>
    <h1>{{.Title}}</h1>
    <p class="meta">{{if .Document}}Document: {{.Document}} · {{end}}Exported {{.Generated}}</p>
  </header>
  {{if or .Summary .Questions}}
  <div class="brief">
    <section><h3>Key Takeaways</h3>{{.Summary}}</section>
    <section><h3>Questions to Ask</h3>{{.Questions}}</section>
  </div>
  {{end}}
  {{range .Turns}}
  <div class="turn {{.Role}}">
    <p class="role">{{.Role}}{{if .Time}} <span class="meta">{{.Time}}</span>{{end}}</p>
    {{.Body}}
  </div>
  {{else}}
  <p class="meta">No messages yet.</p>
  {{end}}
</body>
</html>
`

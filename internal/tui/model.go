package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bizassist/bizassist/internal/session"
)

// ChatPort is the TUI-facing subset of a chat session.
type ChatPort interface {
	Submit(ctx context.Context, query string) (*session.Reply, error)
	Clear(ctx context.Context) error
}

// SessionPort binds an orchestrator to one session.
type SessionPort struct {
	Orchestrator *session.Orchestrator
	Session      *session.Session
}

func (p SessionPort) Submit(ctx context.Context, query string) (*session.Reply, error) {
	return p.Orchestrator.SubmitQuery(ctx, p.Session, query)
}

func (p SessionPort) Clear(ctx context.Context) error {
	return p.Orchestrator.ClearSession(ctx, p.Session)
}

type entry struct {
	user bool
	text string
}

// replyMsg carries a finished completion back into Update.
type replyMsg struct {
	reply *session.Reply
	err   error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	chat     ChatPort
	title    string
	input    textinput.Model
	viewport viewport.Model
	entries  []entry
	status   string
	waiting  bool
	ready    bool
}

// New creates a chat screen for the named document.
func New(chat ChatPort, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the document, /clear to reset, /quit to leave"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{chat: chat, title: title, input: ti, viewport: vp, status: "Document loaded. Ask a question."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and reply events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil
	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.entries = append(m.entries, entry{text: msg.reply.Text})
			m.status = fmt.Sprintf("Answered from %d passage(s).", len(msg.reply.Sources))
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	q := strings.TrimSpace(m.input.Value())
	if q == "" || m.waiting {
		return m, nil
	}
	m.input.SetValue("")

	switch q {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/clear":
		if err := m.chat.Clear(context.Background()); err != nil {
			m.status = "Error: " + err.Error()
		} else {
			m.entries = nil
			m.status = "Conversation cleared."
		}
		m.refresh()
		return m, nil
	}

	m.entries = append(m.entries, entry{user: true, text: q})
	m.waiting = true
	m.status = "Thinking..."
	m.refresh()
	chat := m.chat
	return m, func() tea.Msg {
		reply, err := chat.Submit(context.Background(), q)
		return replyMsg{reply: reply, err: err}
	}
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("bizassist: " + m.title)
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.entries) == 0 {
		return "No messages yet."
	}
	width := max(20, m.viewport.Width-4)
	parts := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		label, style := assistantLabel, assistantStyle
		if e.user {
			label, style = userLabel, userStyle
		}
		parts = append(parts, label.Render(labelText(e.user))+"\n"+style.Width(width).Render(e.text))
	}
	return strings.Join(parts, "\n\n")
}

func labelText(user bool) string {
	if user {
		return "You"
	}
	return "Assistant"
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userLabel          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantLabel     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	userStyle          = lipgloss.NewStyle()
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/bizassist/bizassist/internal/render"
	"github.com/bizassist/bizassist/internal/session"
	"github.com/bizassist/bizassist/internal/tui"
	"github.com/bizassist/bizassist/internal/vectordb"
)

var chatCmd = &cobra.Command{
	Use:   "chat [documents...]",
	Short: "Chat about one or more documents",
	Long: `Loads the given PDF, text or markdown files (directories are walked) into a
new session and starts an interactive chat. Inside the chat:

  /brief    generate a meeting brief
  /clear    forget the conversation, keep the document
  /sources  show the passages behind the last answer
  /quit     leave`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().Bool("tui", false, "use the full-screen terminal UI")
	chatCmd.Flags().String("session", "", "session ID (reuses stored history with the sqlite store)")
	chatCmd.Flags().String("strategy", "", "retrieval strategy: vector or lexical")
	chatCmd.Flags().String("export", "", "write an HTML transcript to this path on exit")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	useTUI, _ := cmd.Flags().GetBool("tui")
	sessionID, _ := cmd.Flags().GetString("session")
	strategy, _ := cmd.Flags().GetString("strategy")
	exportPath, _ := cmd.Flags().GetString("export")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	a, err := newApp(appOptions{strategy: strategy, progress: true})
	if err != nil {
		return err
	}
	defer a.close()

	sess, err := a.openSession(ctx, sessionID, args)
	if err != nil {
		return err
	}
	info := sess.Info()
	fmt.Fprintf(os.Stderr, "Loaded %s (%d passages). Session %s\n", info.Document, info.Passages, sess.ID())

	if useTUI {
		model := tui.New(tui.SessionPort{Orchestrator: a.orch, Session: sess}, displayName(args))
		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			return err
		}
	} else if err := chatLoop(ctx, a, sess); err != nil {
		return err
	}

	if exportPath != "" {
		if err := exportTranscript(ctx, a, sess, exportPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Transcript written to %s\n", exportPath)
	}
	return nil
}

// chatLoop reads questions with promptui until the user quits.
func chatLoop(ctx context.Context, a *app, sess *session.Session) error {
	var lastSources []vectordb.Result
	for {
		p := promptui.Prompt{Label: "You"}
		line, err := p.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			if err := a.orch.ClearSession(ctx, sess); err != nil {
				return err
			}
			lastSources = nil
			fmt.Println("Conversation cleared.")
			continue
		case "/sources":
			fmt.Println(vectordb.FormatResults(lastSources))
			continue
		case "/brief":
			brief, err := a.orch.Brief(ctx, sess)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			printBrief(brief)
			continue
		}

		reply, err := a.orch.SubmitQuery(ctx, sess, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		lastSources = reply.Sources
		fmt.Printf("\nAssistant: %s\n\n", reply.Text)
	}
}

func printBrief(b *session.Brief) {
	fmt.Println("\n## Key Questions")
	fmt.Println(b.Questions)
	fmt.Println("\n## Summary")
	fmt.Println(b.Summary)
	fmt.Println()
}

// exportTranscript renders the session history, and the last brief if any,
// to an HTML file.
func exportTranscript(ctx context.Context, a *app, sess *session.Session, path string) error {
	turns, err := a.orch.History(ctx, sess)
	if err != nil {
		return err
	}
	t := render.Transcript{
		Title:     "bizassist chat",
		Document:  sess.Info().Document,
		Turns:     turns,
		Generated: time.Now(),
	}
	if b := sess.LastBrief(); b != nil {
		t.Summary = b.Summary
		t.Questions = b.Questions
	}
	return writeTranscript(path, t)
}

func writeTranscript(path string, t render.Transcript) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating transcript: %w", err)
	}
	if err := render.New().WriteTranscript(f, t); err != nil {
		f.Close()
		return fmt.Errorf("writing transcript: %w", err)
	}
	return f.Close()
}

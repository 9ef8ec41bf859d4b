// Package document loads report files into page text ready for chunking.
package document

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bizassist/bizassist/internal/chunker"
	"github.com/bizassist/bizassist/internal/walker"
)

var (
	// ErrUnsupportedFormat is returned for files whose extension has no loader.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrPDFToolNotFound is returned when pdftotext is not on PATH.
	ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler-utils to read PDF files")
)

// Document is the page text of one report.
type Document struct {
	Name  string   `json:"name"`
	Path  string   `json:"path,omitempty"`
	Hash  string   `json:"hash"`
	Pages []string `json:"pages"`
}

// FromText builds an in-memory document from already extracted pages.
func FromText(name string, pages ...string) *Document {
	return &Document{Name: name, Hash: Hash(pages), Pages: pages}
}

// Hash returns the SHA-256 of the pages as the chunker joins them.
func Hash(pages []string) string {
	sum := sha256.Sum256([]byte(strings.Join(pages, chunker.PageSeparator)))
	return hex.EncodeToString(sum[:])
}

// Text returns the pages joined the way the chunker sees them.
func (d *Document) Text() string {
	return strings.Join(d.Pages, chunker.PageSeparator)
}

// CommandRunner executes an external program and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Loader reads documents from disk.
type Loader struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// NewLoader returns a Loader that extracts PDFs with pdftotext.
func NewLoader() *Loader {
	return &Loader{runner: execRunner{}, lookPath: exec.LookPath}
}

// NewLoaderWithRunner returns a Loader that runs pdftotext through r.
func NewLoaderWithRunner(r CommandRunner) *Loader {
	return &Loader{runner: r, lookPath: func(string) (string, error) { return "pdftotext", nil }}
}

// Load reads the document at path with the default loader.
func Load(ctx context.Context, path string) (*Document, error) {
	return NewLoader().Load(ctx, path)
}

// Load reads path. Text and markdown files become a single page; PDFs are
// split into pages on form feeds.
func (l *Loader) Load(ctx context.Context, path string) (*Document, error) {
	var (
		pages []string
		err   error
	)
	switch walker.DetectKind(path) {
	case walker.KindText, walker.KindMarkdown:
		pages, err = readText(path)
	case walker.KindPDF:
		pages, err = l.readPDF(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	abs, _ := filepath.Abs(path)
	return &Document{
		Name:  filepath.Base(path),
		Path:  abs,
		Hash:  Hash(pages),
		Pages: pages,
	}, nil
}

func readText(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return []string{string(data)}, nil
}

func (l *Loader) readPDF(ctx context.Context, path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	tool, err := l.lookPath("pdftotext")
	if err != nil {
		return nil, ErrPDFToolNotFound
	}
	out, err := l.runner.Run(ctx, tool, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", path, err)
	}
	return SplitPages(string(out)), nil
}

// SplitPages splits pdftotext output on form feeds. The empty remainder
// after the final form feed is dropped.
func SplitPages(text string) []string {
	pages := strings.Split(text, "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}

// Walk discovers loadable documents under root, filtered by doublestar
// include and exclude globs.
func Walk(root string, include, exclude []string) ([]walker.FileInfo, error) {
	return walker.Walk(walker.Config{
		RootDir: root,
		Include: include,
		Exclude: exclude,
		Kinds:   []walker.Kind{walker.KindPDF, walker.KindText, walker.KindMarkdown},
	})
}

// LoadAll loads every document Walk finds under root. Files whose bytes
// match an earlier file are skipped, so copies are indexed once.
func (l *Loader) LoadAll(ctx context.Context, root string, include, exclude []string) ([]*Document, error) {
	files, err := Walk(root, include, exclude)
	if err != nil {
		return nil, err
	}
	docs := make([]*Document, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if seen[f.ContentHash] {
			continue
		}
		seen[f.ContentHash] = true
		d, err := l.Load(ctx, f.Path)
		if err != nil {
			return nil, err
		}
		d.Name = f.RelPath
		docs = append(docs, d)
	}
	return docs, nil
}

// Merge concatenates documents into one, in order. Each document
// contributes its pages unchanged.
func Merge(name string, docs ...*Document) *Document {
	var pages []string
	for _, d := range docs {
		pages = append(pages, d.Pages...)
	}
	return FromText(name, pages...)
}

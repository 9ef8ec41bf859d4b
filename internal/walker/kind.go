package walker

import (
	"path/filepath"
	"strings"
)

// Kind classifies a file by how its text is extracted.
type Kind string

const (
	KindPDF      Kind = "pdf"
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindCSV      Kind = "csv"
	KindUnknown  Kind = ""
)

var extensionToKind = map[string]Kind{
	".pdf":      KindPDF,
	".txt":      KindText,
	".text":     KindText,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".csv":      KindCSV,
}

// DetectKind returns the Kind for a file name or path.
func DetectKind(path string) Kind {
	return extensionToKind[strings.ToLower(filepath.Ext(path))]
}

// Binary reports whether files of this kind are expected to contain
// non-text bytes.
func (k Kind) Binary() bool { return k == KindPDF }

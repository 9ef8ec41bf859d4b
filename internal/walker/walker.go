package walker

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// DefaultMaxFileSize is the maximum file size to load (32 MB).
const DefaultMaxFileSize int64 = 32 << 20

// sniffLen is how much of a text file is checked for NUL bytes.
const sniffLen = 512

// FileInfo holds metadata about a single document discovered during traversal.
type FileInfo struct {
	Path        string // Absolute path on disk.
	RelPath     string // Slash-separated path relative to the root.
	Size        int64
	Kind        Kind
	ContentHash string // SHA-256 hex digest of the file content.
}

// Config controls the behaviour of the Walk function.
type Config struct {
	RootDir     string
	Include     []string // doublestar globs; empty includes everything
	Exclude     []string // doublestar globs
	Kinds       []Kind   // accepted kinds; empty accepts every known kind
	MaxFileSize int64    // 0 uses DefaultMaxFileSize
}

// Walk returns every document under config.RootDir of an accepted kind
// that passes filtering, in lexical path order. Text files containing NUL
// bytes are skipped, and .gitignore patterns at the root are honoured.
func Walk(config Config) ([]FileInfo, error) {
	root, err := filepath.Abs(config.RootDir)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}

	v := &visitor{
		root:    root,
		cfg:     config,
		maxSize: config.MaxFileSize,
		ignore:  loadGitignore(filepath.Join(root, ".gitignore")),
	}
	if v.maxSize <= 0 {
		v.maxSize = DefaultMaxFileSize
	}

	if err := filepath.WalkDir(root, v.visit); err != nil {
		return nil, fmt.Errorf("walker: traversal: %w", err)
	}
	return v.files, nil
}

type visitor struct {
	root    string
	cfg     Config
	maxSize int64
	ignore  gitignore
	files   []FileInfo
}

// visit is the fs.WalkDirFunc. Unreadable entries are skipped rather than
// aborting the walk.
func (v *visitor) visit(path string, d fs.DirEntry, walkErr error) error {
	if walkErr != nil {
		return nil
	}
	if d.IsDir() {
		if path != v.root && shouldExcludeDir(d.Name()) {
			return filepath.SkipDir
		}
		return nil
	}
	if !d.Type().IsRegular() {
		return nil
	}

	kind := DetectKind(d.Name())
	if kind == KindUnknown || (len(v.cfg.Kinds) > 0 && !slices.Contains(v.cfg.Kinds, kind)) {
		return nil
	}

	rel, err := filepath.Rel(v.root, path)
	if err != nil {
		return nil
	}
	rel = filepath.ToSlash(rel)
	if v.ignore.matches(rel) || !MatchesInclude(rel, v.cfg.Include) || MatchesExclude(rel, v.cfg.Exclude) {
		return nil
	}

	info, err := d.Info()
	if err != nil || info.Size() > v.maxSize {
		return nil
	}
	if !kind.Binary() && hasNUL(path) {
		return nil
	}
	hash, err := HashFile(path)
	if err != nil {
		return nil
	}

	v.files = append(v.files, FileInfo{
		Path:        path,
		RelPath:     rel,
		Size:        info.Size(),
		Kind:        kind,
		ContentHash: hash,
	})
	return nil
}

// hasNUL reports whether the head of the file contains a NUL byte.
// Unreadable files count as binary.
func hasNUL(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return true
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

// HashFile computes the SHA-256 digest of the given file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Update for an unknown application ID.
var ErrNotFound = errors.New("application not found")

// Application statuses.
const (
	StatusApplied   = "applied"
	StatusInterview = "interview"
	StatusOffer     = "offer"
	StatusRejected  = "rejected"
)

// ValidStatus reports whether s is one of the application statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusApplied, StatusInterview, StatusOffer, StatusRejected:
		return true
	}
	return false
}

// Application is one tracked job application.
type Application struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Company     string `json:"company"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Status      string `json:"status"`
	MatchScore  int    `json:"match_score"`
	Notes       string `json:"notes"`
	ColdEmail   string `json:"cold_email"`
	CoverLetter string `json:"cover_letter"`
	RewrittenCV string `json:"rewritten_cv"`
}

// Tracker stores applications as a JSON array in one file. A missing file
// is an empty list.
type Tracker struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewTracker returns a Tracker backed by path.
func NewTracker(path string) *Tracker {
	return &Tracker{path: path, now: time.Now}
}

// Path returns the backing file.
func (t *Tracker) Path() string { return t.path }

// List returns all applications in insertion order.
func (t *Tracker) List() ([]Application, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.read()
}

// Append adds app, filling in the ID, the date (today) and the status
// (applied) when empty. It returns the stored record.
func (t *Tracker) Append(app Application) (Application, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	apps, err := t.read()
	if err != nil {
		return Application{}, err
	}
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.Date == "" {
		app.Date = t.now().Format(time.DateOnly)
	}
	if app.Status == "" {
		app.Status = StatusApplied
	}
	apps = append(apps, app)
	if err := t.write(apps); err != nil {
		return Application{}, err
	}
	return app, nil
}

// Update applies fn to the application with id and saves the result.
func (t *Tracker) Update(id string, fn func(*Application)) (Application, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	apps, err := t.read()
	if err != nil {
		return Application{}, err
	}
	for i := range apps {
		if apps[i].ID == id {
			fn(&apps[i])
			apps[i].ID = id
			if err := t.write(apps); err != nil {
				return Application{}, err
			}
			return apps[i], nil
		}
	}
	return Application{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (t *Tracker) read() ([]Application, error) {
	data, err := os.ReadFile(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Application{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading tracker: %w", err)
	}
	var apps []Application
	if len(data) == 0 {
		return []Application{}, nil
	}
	if err := json.Unmarshal(data, &apps); err != nil {
		return nil, fmt.Errorf("parsing tracker %s: %w", t.path, err)
	}
	return apps, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (t *Tracker) write(apps []Application) error {
	data, err := json.MarshalIndent(apps, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tracker: %w", err)
	}
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating tracker dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tracker-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing tracker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing tracker: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("replacing tracker: %w", err)
	}
	return nil
}

// Package artifact persists and loads run artifacts as JSON files in a
// results directory. Artifacts are written atomically under an advisory lock
// so independently executing runs can share one directory; readers never
// observe partial writes and never mutate stored runs.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrison/docproof/internal/filelock"
	"github.com/harrison/docproof/internal/models"
)

// Store reads and writes run artifacts under Dir.
type Store struct {
	Dir string
}

// NewStore creates a store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory %s: %w", dir, err)
	}
	return &Store{Dir: dir}, nil
}

// fileName derives a stable artifact name from the run key and ID.
func fileName(run *models.Run) string {
	sanitize := func(s string) string {
		s = strings.ToLower(s)
		s = strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
				return r
			default:
				return '-'
			}
		}, s)
		return strings.Trim(s, "-")
	}
	return fmt.Sprintf("run-%s-%s-%s-%s.json",
		sanitize(run.Platform), sanitize(run.RuntimeVersion), sanitize(run.Scenario), run.ID)
}

// Save writes the run artifact atomically under the directory lock.
func (s *Store) Save(run *models.Run) (string, error) {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run %s: %w", run.ID, err)
	}
	path := filepath.Join(s.Dir, fileName(run))
	if err := filelock.LockAndWrite(path, data); err != nil {
		return "", fmt.Errorf("failed to persist run artifact: %w", err)
	}
	return path, nil
}

// Load reads a single run artifact.
func (s *Store) Load(path string) (*models.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run artifact %s: %w", path, err)
	}
	var run models.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse run artifact %s: %w", path, err)
	}
	return &run, nil
}

// LoadAll reads every run artifact in the results directory, sorted by file
// name for deterministic downstream ordering. Unreadable or non-run files
// are skipped with an aggregated error list so one corrupt artifact does not
// hide the rest.
func (s *Store) LoadAll() ([]*models.Run, []error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to read results directory %s: %w", s.Dir, err)}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "run-") || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var runs []*models.Run
	var errs []error
	for _, name := range names {
		run, err := s.Load(filepath.Join(s.Dir, name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, errs
}

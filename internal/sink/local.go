package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kingrea/roadmap-survey/internal/survey"
)

// Local writes each response as {dir}/{name}_response.csv, replacing any
// earlier file with the same name.
type Local struct {
	dir string
}

// NewLocal returns a sink rooted at dir.
func NewLocal(dir string) *Local {
	if dir == "" {
		dir = "."
	}
	return &Local{dir: dir}
}

// Name implements survey.Sink.
func (l *Local) Name() string { return "local" }

// Persist implements survey.Sink.
func (l *Local) Persist(_ context.Context, sub survey.Submission) (survey.Receipt, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return survey.Receipt{}, fmt.Errorf("sink: ensure %s: %w", l.dir, err)
	}
	path := filepath.Join(l.dir, sub.FileName)
	if err := os.WriteFile(path, sub.CSV, 0o644); err != nil {
		return survey.Receipt{}, fmt.Errorf("sink: write %s: %w", path, err)
	}
	return survey.Receipt{Sink: l.Name(), Location: path}, nil
}

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/lfarias/zoomrank/internal/models"
)

// ArchivedRun couples a run's metadata with its ranked products for the
// file-based archive.
type ArchivedRun struct {
	Run      *Run              `json:"run"`
	Products []*models.Product `json:"products"`
}

// RunArchive keeps completed runs in a local JSON file. It is the DB-free
// persistence path: every CLI run is appended here regardless of whether
// Postgres is configured.
type RunArchive struct {
	mu       sync.RWMutex
	runs     map[string]*ArchivedRun
	filename string
}

func NewRunArchive(filename string) (*RunArchive, error) {
	a := &RunArchive{
		runs:     make(map[string]*ArchivedRun),
		filename: filename,
	}

	if err := a.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return a, nil
}

func (a *RunArchive) Add(run *Run, products []*models.Product) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if run.ID == uuid.Nil {
		return fmt.Errorf("run ID is required")
	}

	a.runs[run.ID.String()] = &ArchivedRun{Run: run, Products: products}
	return a.save()
}

func (a *RunArchive) Get(id uuid.UUID) (*ArchivedRun, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	run, ok := a.runs[id.String()]
	return run, ok
}

// Latest returns the most recently created archived run, or false when the
// archive is empty.
func (a *RunArchive) Latest() (*ArchivedRun, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var latest *ArchivedRun
	for _, run := range a.runs {
		if latest == nil || run.Run.CreatedAt.After(latest.Run.CreatedAt) {
			latest = run
		}
	}
	return latest, latest != nil
}

func (a *RunArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.runs)
}

func (a *RunArchive) save() error {
	data, err := json.MarshalIndent(a.runs, "", "  ")
	if err != nil {
		return err
	}

	// Write to a temp file first so a crash never corrupts the archive.
	tmpFile := a.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpFile, a.filename)
}

func (a *RunArchive) load() error {
	data, err := os.ReadFile(a.filename)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &a.runs)
}

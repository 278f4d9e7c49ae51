package populator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

// ManifestFile is the name of the manifest written next to the CSV files
const ManifestFile = "manifest.json"

// Manifest describes one run: enough to regenerate the same files
type Manifest struct {
	mu sync.Mutex

	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Seed        int64           `json:"seed"`
	AsOf        string          `json:"as_of"`
	Tables      []ManifestTable `json:"tables"`
	Errors      []string        `json:"errors,omitempty"`
}

// ManifestTable describes one written file
type ManifestTable struct {
	Name    string   `json:"name"`
	File    string   `json:"file"`
	Rows    int64    `json:"rows"`
	Columns []string `json:"columns"`
}

// NewManifest starts a manifest for a run with a fresh run id
func NewManifest(seed int64, asOf models.Date) *Manifest {
	return &Manifest{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Seed:        seed,
		AsOf:        asOf.String(),
	}
}

// AddTable records a written table
func (m *Manifest) AddTable(info models.TableInfo, file string, rows int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tables = append(m.Tables, ManifestTable{
		Name:    info.Name,
		File:    file,
		Rows:    rows,
		Columns: info.ColumnNames(),
	})
}

// AddError records a stage or sink failure
func (m *Manifest) AddError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, err.Error())
}

// Write stores the manifest as JSON in dir
func (m *Manifest) Write(dir string) error {
	m.mu.Lock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

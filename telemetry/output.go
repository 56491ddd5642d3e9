package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/arbor/config"
	"github.com/pthm-cable/arbor/plant"
)

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir       string
	stepsFile *os.File

	stepsHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the output
// directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "steps.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating steps.csv: %w", err)
	}

	return &OutputManager{dir: dir, stepsFile: f}, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteStats writes a window stats record to steps.csv.
func (om *OutputManager) WriteStats(stats WindowStats) error {
	if om == nil {
		return nil
	}

	records := []WindowStats{stats}

	if !om.stepsHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.stepsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		om.stepsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.stepsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
	}

	return nil
}

// WriteSnapshot saves a tree snapshot as JSON under the output directory.
// Returns the filepath where it was saved.
func (om *OutputManager) WriteSnapshot(snap plant.Snapshot, tick int64) (string, error) {
	if om == nil {
		return "", nil
	}
	path := filepath.Join(om.dir, fmt.Sprintf("snapshot_%d.json", tick))
	if err := SaveSnapshot(snap, path); err != nil {
		return "", err
	}
	return path, nil
}

// Close flushes and closes the underlying files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	return om.stepsFile.Close()
}

// SaveSnapshot writes a tree snapshot to disk as indented JSON.
func SaveSnapshot(snap plant.Snapshot, path string) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a tree snapshot from disk.
func LoadSnapshot(path string) (plant.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return plant.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap plant.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return plant.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

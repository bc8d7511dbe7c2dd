// Package storage persists runs on disk and exports trajectories.
//
// A run lives in its own directory under the store root:
//
//	<root>/<id>/metadata.json
//	<root>/<id>/states.csv
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/linkage/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

// ErrRunNotFound is returned when a run id has no metadata on disk.
var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes how a run was produced.
type RunMetadata struct {
	ID         string             `json:"id"`
	Preset     string             `json:"preset"`
	Timestamp  time.Time          `json:"timestamp"`
	Integrator string             `json:"integrator"`
	Lengths    []float64          `json:"lengths"`
	Masses     []float64          `json:"masses"`
	Inertias   []float64          `json:"inertias,omitempty"`
	Gravity    float64            `json:"gravity"`
	Torque     float64            `json:"torque"`
	CrankDeg   float64            `json:"crank_deg"`
	Duration   float64            `json:"duration"`
	RTol       float64            `json:"rtol"`
	ATol       float64            `json:"atol"`
	SampleDt   float64            `json:"sample_dt"`
	Closure    float64            `json:"closure_residual"`
	Steps      int                `json:"steps"`
	Rejected   int                `json:"rejected"`
	Samples    int                `json:"samples"`
	Metrics    map[string]float64 `json:"metrics"`
	Failure    string             `json:"failure,omitempty"`
}

// Save writes result under a fresh id and returns it. Fields of meta that
// describe the result itself are filled in from result.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result) (string, error) {
	name := meta.Preset
	if name == "" {
		name = "run"
	}
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", name, now.UnixNano())
	meta.Timestamp = now
	meta.Steps = result.StepsTaken
	meta.Rejected = result.Rejected
	meta.Samples = len(result.Times)
	meta.Metrics = finite(result.Metrics)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result); err != nil {
		return "", err
	}
	return meta.ID, csvFile.Close()
}

// List returns the metadata of every run, newest first. Directories
// without readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadResult reads the samples of a run back. Metrics and counters come
// from the metadata.
func (s *Store) LoadResult(runID string) (*dynamo.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	result, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	result.Metrics = meta.Metrics
	result.StepsTaken = meta.Steps
	result.Rejected = meta.Rejected
	return result, nil
}

// finite drops values JSON cannot carry.
func finite(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/scarakin/internal/env"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo describes how an episode was produced.
type RunInfo struct {
	Preset     string   `json:"preset"`
	Policy     string   `json:"policy"`
	Seed       int64    `json:"seed"`
	Dt         float64  `json:"dt"`
	Horizon    int      `json:"horizon"`
	Integrator string   `json:"integrator"`
	Joints     []string `json:"joints"`
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Steps     int                `json:"steps"`
	Done      bool               `json:"done"`
	Elapsed   time.Duration      `json:"elapsed_ns"`
	Metrics   map[string]float64 `json:"metrics"`
	RunInfo
}

func (s *Store) Save(info RunInfo, ep *env.Episode) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%s", info.Preset, now.Format("20060102T150405.000000"))
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Timestamp: now,
		Steps:     ep.Steps,
		Done:      ep.Done,
		Elapsed:   ep.Elapsed,
		Metrics:   ep.Metrics,
		RunInfo:   info,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, ep); err != nil {
		return "", err
	}
	return runID, nil
}

// WriteCSV writes one row per step: time, distance, reward, state, action.
func WriteCSV(out io.Writer, ep *env.Episode) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	if len(ep.States) == 0 {
		return nil
	}

	header := []string{"time", "distance", "reward"}
	for i := range ep.States[0] {
		header = append(header, fmt.Sprintf("s%d", i))
	}
	numActions := 0
	if len(ep.Actions) > 0 {
		numActions = len(ep.Actions[0])
		for i := 0; i < numActions; i++ {
			header = append(header, fmt.Sprintf("a%d", i))
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for i := range ep.States {
		row := []string{format(ep.Times[i]), format(ep.Distances[i]), format(ep.Rewards[i])}
		for _, val := range ep.States[i] {
			row = append(row, format(val))
		}
		if i < len(ep.Actions) {
			for _, val := range ep.Actions[i] {
				row = append(row, format(val))
			}
		} else {
			for j := 0; j < numActions; j++ {
				row = append(row, "0")
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every stored run, oldest first.
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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Table is the parsed states.csv of a run.
type Table struct {
	Header []string
	Rows   [][]float64
}

// Column returns the named column.
func (t *Table) Column(name string) ([]float64, error) {
	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("storage: no column %q (have %v)", name, t.Header)
	}
	col := make([]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		if idx < len(r) {
			col = append(col, r[idx])
		}
	}
	return col, nil
}

func (s *Store) LoadTable(runID string) (*Table, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	t := &Table{Rows: [][]float64{}}
	if len(records) == 0 {
		return t, nil
	}
	t.Header = records[0]

	for _, record := range records[1:] {
		row := make([]float64, 0, len(record))
		for _, field := range record {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: %s: bad value %q: %w", runID, field, err)
			}
			row = append(row, val)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// LoadStates returns the state columns and the time column of a run.
func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	t, err := s.LoadTable(runID)
	if err != nil {
		return nil, nil, err
	}
	var cols []int
	for i, h := range t.Header {
		if len(h) > 1 && h[0] == 's' {
			if _, err := strconv.Atoi(h[1:]); err == nil {
				cols = append(cols, i)
			}
		}
	}

	times := make([]float64, 0, len(t.Rows))
	states := make([][]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		times = append(times, r[0])
		st := make([]float64, 0, len(cols))
		for _, c := range cols {
			st = append(st, r[c])
		}
		states = append(states, st)
	}
	return states, times, nil
}

// StatesPath returns the states.csv of an existing run.
func (s *Store) StatesPath(runID string) (string, error) {
	path := filepath.Join(s.baseDir, runID, "states.csv")
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/aquasim/internal/report"
)

// Store keeps one directory per run under baseDir: metadata.json next
// to a trace.csv (kinetic) or iterations.csv (dosing).
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"` // "dose" or "kinetic"
	Timestamp time.Time `json:"timestamp"`

	// Dosing runs.
	Reagent   string  `json:"reagent,omitempty"`
	Parameter string  `json:"parameter,omitempty"`
	Target    float64 `json:"target,omitempty"`
	Dose      float64 `json:"dose_mmol,omitempty"`
	Status    string  `json:"status,omitempty"`
	Converged bool    `json:"converged,omitempty"`

	// Kinetic runs.
	Minerals []string `json:"minerals,omitempty"`
	Degraded bool     `json:"degraded,omitempty"`
}

func newRunID(mode string) string {
	return fmt.Sprintf("%s_%s", mode, uuid.NewString()[:8])
}

// SaveDose persists a dosing report and returns the run ID.
func (s *Store) SaveDose(reagent, parameter string, target float64, rep report.DosingReport) (string, error) {
	runID := newRunID("dose")
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Mode:      "dose",
		Timestamp: time.Now(),
		Reagent:   reagent,
		Parameter: parameter,
		Target:    target,
		Dose:      rep.AchievedDose,
		Status:    rep.ConvergenceStatus,
		Converged: rep.Converged,
	}
	if err := writeMetadata(runDir, meta); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, "iterations.csv"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"iter", "dose_mmol", "value", "residual", "oracle_failed", "note"}); err != nil {
		return "", err
	}
	for _, it := range rep.Iterations {
		row := []string{
			strconv.Itoa(it.Index),
			strconv.FormatFloat(it.Dose, 'g', -1, 64),
			strconv.FormatFloat(it.Value, 'g', -1, 64),
			strconv.FormatFloat(it.Residual, 'g', -1, 64),
			strconv.FormatBool(it.OracleFailed),
			it.Note,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	return runID, nil
}

// SaveKinetic persists a kinetic report and returns the run ID. The
// trace CSV carries time, pH and one moles/rate column pair per
// mineral.
func (s *Store) SaveKinetic(rep report.KineticReport) (string, error) {
	runID := newRunID("kinetic")
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	names := make([]string, 0, len(rep.Profiles))
	degraded := false
	for _, p := range rep.Profiles {
		names = append(names, p.Mineral)
	}
	for _, d := range rep.Diagnostics {
		if d.Degraded {
			degraded = true
		}
	}

	meta := RunMetadata{
		ID:        runID,
		Mode:      "kinetic",
		Timestamp: time.Now(),
		Minerals:  names,
		Degraded:  degraded,
	}
	if err := writeMetadata(runDir, meta); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, "trace.csv"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"time_s", "ph"}
	for _, name := range names {
		header = append(header, name+"_mmol", name+"_rate")
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for i, pt := range rep.Series {
		row := []string{
			strconv.FormatFloat(pt.TimeSeconds, 'f', 6, 64),
			strconv.FormatFloat(pt.PH, 'f', 6, 64),
		}
		for _, p := range rep.Profiles {
			if i < len(p.AmountPrecipitated) {
				row = append(row,
					strconv.FormatFloat(p.AmountPrecipitated[i], 'g', -1, 64),
					strconv.FormatFloat(p.Rate[i], 'g', -1, 64))
			} else {
				row = append(row, "0", "0")
			}
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func writeMetadata(runDir string, meta RunMetadata) error {
	f, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

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

// LoadTrace reads a run's CSV back as column names plus numeric rows.
// Non-numeric cells (dosing notes, flags) are skipped, so a row can be
// shorter than the header.
func (s *Store) LoadTrace(runID string) ([]string, [][]float64, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	name := "trace.csv"
	if meta.Mode == "dose" {
		name = "iterations.csv"
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 1 {
		return nil, nil, fmt.Errorf("run %s: empty %s", runID, name)
	}

	header := records[0]
	rows := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		row := make([]float64, 0, len(record))
		for _, cell := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				continue
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

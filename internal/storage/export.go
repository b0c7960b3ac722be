package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/aquasim/internal/report"
)

// ExportMetadataJSON writes run metadata as indented JSON.
func ExportMetadataJSON(w io.Writer, meta *RunMetadata) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// ExportKineticJSON writes a kinetic report as indented JSON.
func ExportKineticJSON(w io.Writer, rep report.KineticReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// ExportDosingJSON writes a dosing report as indented JSON.
func ExportDosingJSON(w io.Writer, rep report.DosingReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// ExportKineticFile writes a kinetic report to path.
func ExportKineticFile(path string, rep report.KineticReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ExportKineticJSON(f, rep)
}

// ExportDosingFile writes a dosing report to path.
func ExportDosingFile(path string, rep report.DosingReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ExportDosingJSON(f, rep)
}

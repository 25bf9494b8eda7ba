// Package file persists pipeline artifacts as JSON documents on the local
// filesystem.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/couchcryptid/team-map-service/internal/domain"
)

// Store reads and writes the pipeline's JSON artifacts at fixed paths.
type Store struct {
	RawPath       string
	ReportPath    string
	DatasetPath   string
	ApplicantPath string
}

// LoadRecords reads the raw team export.
func (s *Store) LoadRecords() ([]domain.RawTeamRecord, error) {
	var records []domain.RawTeamRecord
	if err := readJSON(s.RawPath, &records); err != nil {
		return nil, fmt.Errorf("load raw records: %w", err)
	}
	return records, nil
}

// LoadReport reads the geocode checkpoint. A missing file returns (nil, nil) so
// that a first run starts from scratch.
func (s *Store) LoadReport() (*domain.GeocodeReport, error) {
	var report domain.GeocodeReport
	if err := readJSON(s.ReportPath, &report); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load geocode report: %w", err)
	}
	if report.Results == nil {
		report.Results = map[string]domain.GeocodeResult{}
	}
	return &report, nil
}

// SaveReport writes the geocode checkpoint.
func (s *Store) SaveReport(report *domain.GeocodeReport) error {
	if err := writeJSON(s.ReportPath, report); err != nil {
		return fmt.Errorf("save geocode report: %w", err)
	}
	return nil
}

// LoadDataset reads the generated team dataset.
func (s *Store) LoadDataset() (*domain.Dataset, error) {
	var ds domain.Dataset
	if err := readJSON(s.DatasetPath, &ds); err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return &ds, nil
}

// SaveDataset writes the generated team dataset.
func (s *Store) SaveDataset(ds *domain.Dataset) error {
	if err := writeJSON(s.DatasetPath, ds); err != nil {
		return fmt.Errorf("save dataset: %w", err)
	}
	return nil
}

// LoadProfile reads the hand-authored applicant profile.
func (s *Store) LoadProfile() (*domain.ApplicantProfile, error) {
	var p domain.ApplicantProfile
	if err := readJSON(s.ApplicantPath, &p); err != nil {
		return nil, fmt.Errorf("load applicant profile: %w", err)
	}
	return &p, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrMalformedInput, path, err)
	}
	return nil
}

// writeJSON replaces path atomically so readers never see a partial document.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"os"
	"sync"

	"emailanalyser/internal/model"
	"emailanalyser/internal/report"
)

// CSVStore keeps results in the CSV output file.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) Path() string {
	return s.path
}

// Replace overwrites the file with results.
func (s *CSVStore) Replace(ctx context.Context, results []*model.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return report.SaveCSV(s.path, results)
}

// SaveResults upserts results by message key, appending new ones.
func (s *CSVStore) SaveResults(ctx context.Context, runID string, results []*model.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return err
	}

	pos := make(map[string]int, len(existing))
	for i, r := range existing {
		pos[r.MessageKey] = i
	}
	for _, r := range results {
		if i, ok := pos[r.MessageKey]; ok && r.MessageKey != "" {
			existing[i] = r
			continue
		}
		pos[r.MessageKey] = len(existing)
		existing = append(existing, r)
	}
	return report.SaveCSV(s.path, existing)
}

func (s *CSVStore) ListResults(ctx context.Context, limit int) ([]*model.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.load()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// load 文件不存在时返回空结果
func (s *CSVStore) load() ([]*model.AnalysisResult, error) {
	results, err := report.LoadCSV(s.path)
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, report.ErrMissingHeader) {
		return []*model.AnalysisResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []*model.AnalysisResult{}
	}
	return results, nil
}

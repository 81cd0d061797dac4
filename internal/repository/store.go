package repository

import (
	"context"

	"emailanalyser/internal/model"
)

// ResultStore persists analysis results. SaveResults upserts by message key.
type ResultStore interface {
	SaveResults(ctx context.Context, runID string, results []*model.AnalysisResult) error
	// ListResults returns stored results in insertion order; limit <= 0 means all.
	ListResults(ctx context.Context, limit int) ([]*model.AnalysisResult, error)
}

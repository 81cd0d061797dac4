package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"emailanalyser/internal/model"
	"emailanalyser/internal/repository"
	"emailanalyser/pkg/logger"
	"emailanalyser/pkg/metrics"
)

var (
	ErrRunInProgress  = errors.New("an analysis run is already in progress")
	ErrInvalidMessage = errors.New("invalid email message")
)

// Run triggers, used as metric labels.
const (
	TriggerCLI     = "cli"
	TriggerHTTP    = "http"
	TriggerCron    = "cron"
	TriggerStartup = "startup"
)

// Pipeline runs analyses and persists their results to the CSV file and,
// when configured, the database.
type Pipeline struct {
	analyzer *Analyzer
	csv      *repository.CSVStore
	db       repository.ResultStore
	inputDir string
	logger   *zap.Logger

	running sync.Mutex
}

// NewPipeline creates a pipeline. csv or db may be nil but not both.
func NewPipeline(analyzer *Analyzer, csv *repository.CSVStore, db repository.ResultStore, inputDir string, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		analyzer: analyzer,
		csv:      csv,
		db:       db,
		inputDir: inputDir,
		logger:   logger,
	}
}

func (p *Pipeline) Analyzer() *Analyzer {
	return p.analyzer
}

// RunDirectory analyses the input directory and replaces the stored CSV.
// Only one run executes at a time.
func (p *Pipeline) RunDirectory(ctx context.Context, trigger string) (*Batch, []*model.Email, error) {
	if !p.running.TryLock() {
		return nil, nil, ErrRunInProgress
	}
	defer p.running.Unlock()

	batch, emails, err := p.runDirectory(ctx)
	status := "success"
	if err != nil {
		status = "failed"
	}
	metrics.IncrementAnalysisRun(trigger, status)
	return batch, emails, err
}

func (p *Pipeline) runDirectory(ctx context.Context) (*Batch, []*model.Email, error) {
	batch, emails, err := p.analyzer.AnalyzeDirectory(ctx, p.inputDir)
	if err != nil {
		return nil, nil, err
	}

	if p.csv != nil {
		if err := p.csv.Replace(ctx, batch.Results); err != nil {
			return nil, nil, fmt.Errorf("failed to save results to %s: %w", p.csv.Path(), err)
		}
		p.logger.Info("Results saved successfully", zap.String("path", p.csv.Path()), zap.Int("rows", len(batch.Results)))
	}
	if p.db != nil {
		if err := p.db.SaveResults(ctx, batch.RunID, batch.Results); err != nil {
			return nil, nil, fmt.Errorf("failed to store results: %w", err)
		}
	}
	return batch, emails, nil
}

// AnalyzeRaw parses and analyses a single raw message and appends the
// result to the stores.
func (p *Pipeline) AnalyzeRaw(ctx context.Context, raw []byte, source string) (*model.AnalysisResult, error) {
	e, err := p.analyzer.Parser().ParseBytes(raw, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	res, err := p.analyzer.AnalyzeEmail(ctx, e, nil)
	if err != nil {
		metrics.IncrementEmailProcessed("failed")
		return nil, err
	}
	res.RunID = uuid.NewString()
	metrics.IncrementEmailProcessed("success")

	if err := p.Save(ctx, res.RunID, []*model.AnalysisResult{res}); err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, p.logger).Info("Email analyzed",
		zap.String("run_id", res.RunID),
		zap.String("message_key", res.MessageKey),
		zap.String("email_type", res.EmailType),
	)
	return res, nil
}

// Save upserts results into every configured store.
func (p *Pipeline) Save(ctx context.Context, runID string, results []*model.AnalysisResult) error {
	if p.csv != nil {
		if err := p.csv.SaveResults(ctx, runID, results); err != nil {
			return fmt.Errorf("failed to append results to %s: %w", p.csv.Path(), err)
		}
	}
	if p.db != nil {
		if err := p.db.SaveResults(ctx, runID, results); err != nil {
			return fmt.Errorf("failed to store results: %w", err)
		}
	}
	return nil
}

// Results reads stored results, preferring the database.
func (p *Pipeline) Results(ctx context.Context, limit int) ([]*model.AnalysisResult, error) {
	if p.db != nil {
		return p.db.ListResults(ctx, limit)
	}
	if p.csv != nil {
		return p.csv.ListResults(ctx, limit)
	}
	return []*model.AnalysisResult{}, nil
}

// Timeline builds the usage timeline over stored results.
func (p *Pipeline) Timeline(ctx context.Context) (model.Timeline, error) {
	results, err := p.Results(ctx, 0)
	if err != nil {
		return model.Timeline{}, err
	}
	return p.analyzer.TimelineFromResults(results), nil
}

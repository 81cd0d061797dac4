package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mqcontracts "emailanalyser/contracts/mq"
	"emailanalyser/internal/model"
	"emailanalyser/pkg/mq"
	"emailanalyser/pkg/otel"
	"emailanalyser/pkg/outbox"
	"emailanalyser/pkg/trace"
)

//go:embed schema.sql
var schemaSQL string

const aggregateEmailAnalysis = "email_analysis"

type ResultRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
}

func NewResultRepository(db *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{db: db, outbox: outbox.NewRepository(db)}
}

// Migrate creates the tables when they do not exist.
func (r *ResultRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *ResultRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// SaveResults upserts results and queues one email.analyzed event per row,
// all in one transaction.
func (r *ResultRepository) SaveResults(ctx context.Context, runID string, results []*model.AnalysisResult) error {
	if len(results) == 0 {
		return nil
	}

	return otel.WithDBSpan(ctx, "save_results", upsertAnalysisSQL, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx, `
			INSERT INTO analysis_runs (id, email_count)
			VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET email_count = analysis_runs.email_count + EXCLUDED.email_count
		`, runID, len(results))
		if err != nil {
			return fmt.Errorf("failed to record run %s: %w", runID, err)
		}

		traceID := trace.FromContext(ctx)
		for _, res := range results {
			if err := r.upsert(ctx, tx, runID, res); err != nil {
				return err
			}
			if err := outbox.InsertEventInTx(ctx, tx, r.outbox,
				aggregateEmailAnalysis, res.MessageKey, mq.RoutingKeyEmailAnalyzed,
				analyzedEvent(runID, res, traceID),
			); err != nil {
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit results: %w", err)
		}
		return nil
	})
}

const upsertAnalysisSQL = `
	INSERT INTO email_analyses (
		message_key, run_id, email_id, subject, sender, email_date,
		email_type, primary_language, overall_sentiment, result, analyzed_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (message_key) DO UPDATE SET
		run_id = EXCLUDED.run_id,
		email_id = EXCLUDED.email_id,
		subject = EXCLUDED.subject,
		sender = EXCLUDED.sender,
		email_date = EXCLUDED.email_date,
		email_type = EXCLUDED.email_type,
		primary_language = EXCLUDED.primary_language,
		overall_sentiment = EXCLUDED.overall_sentiment,
		result = EXCLUDED.result,
		analyzed_at = EXCLUDED.analyzed_at
`

func (r *ResultRepository) upsert(ctx context.Context, tx pgx.Tx, runID string, res *model.AnalysisResult) error {
	doc, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode result %s: %w", res.MessageKey, err)
	}
	_, err = tx.Exec(ctx, upsertAnalysisSQL,
		res.MessageKey,
		runID,
		res.EmailID,
		res.Subject,
		res.From,
		res.Date,
		res.EmailType,
		res.PrimaryLanguage(),
		res.Sentiment.OverallScore,
		doc,
		res.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert result %s: %w", res.MessageKey, err)
	}
	return nil
}

func analyzedEvent(runID string, res *model.AnalysisResult, traceID string) mqcontracts.EmailAnalyzedPayload {
	return mqcontracts.EmailAnalyzedPayload{
		RunID:      runID,
		MessageKey: res.MessageKey,
		EmailID:    res.EmailID,
		Subject:    res.Subject,
		From:       res.From,
		EmailType:  res.EmailType,
		Language:   res.PrimaryLanguage(),
		Sentiment:  res.Sentiment.OverallScore,
		TraceID:    traceID,
		AnalyzedAt: res.Timestamp,
	}
}

// ListResults returns stored results ordered by analysis time.
func (r *ResultRepository) ListResults(ctx context.Context, limit int) ([]*model.AnalysisResult, error) {
	query := `
		SELECT result
		FROM email_analyses
		ORDER BY analyzed_at ASC, message_key ASC
		LIMIT $1
	`
	// LIMIT NULL 表示不限制
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	var out []*model.AnalysisResult
	err := otel.WithDBSpan(ctx, "list_results", query, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, lim)
		if err != nil {
			return fmt.Errorf("failed to query results: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var doc []byte
			if err := rows.Scan(&doc); err != nil {
				return fmt.Errorf("failed to scan result: %w", err)
			}
			var res model.AnalysisResult
			if err := json.Unmarshal(doc, &res); err != nil {
				return fmt.Errorf("failed to decode result: %w", err)
			}
			out = append(out, &res)
		}
		return rows.Err()
	})
	return out, err
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"emailanalyser/internal/extractor"
	"emailanalyser/internal/model"
	"emailanalyser/internal/parser"
	"emailanalyser/pkg/logger"
	"emailanalyser/pkg/metrics"
	"emailanalyser/pkg/otel"
)

var ErrEmptyDirectory = errors.New("no emails found in input directory")

// Deps are the pluggable backends of the analyzer.
type Deps struct {
	NLP      extractor.NLP
	Scorer   extractor.Scorer
	Language *extractor.LanguageDetector
	// Geo may be nil, which disables IP based location lookups.
	Geo extractor.GeoLocator
}

// Analyzer runs every extractor over parsed emails.
type Analyzer struct {
	parser    *parser.Parser
	basic     *extractor.BasicExtractor
	contact   *extractor.ContactExtractor
	language  *extractor.LanguageDetector
	sentiment *extractor.SentimentAnalyzer
	topics    *extractor.TopicAnalyzer
	location  *extractor.LocationExtractor
	job       *extractor.JobCompanyExtractor
	timeline  *extractor.TimelineAnalyzer

	workers int
	logger  *zap.Logger
	now     func() time.Time
}

func NewAnalyzer(deps Deps, workers int, logger *zap.Logger) *Analyzer {
	if workers <= 0 {
		workers = 1
	}
	return &Analyzer{
		parser:    parser.NewParser(logger),
		basic:     extractor.NewBasicExtractor(logger),
		contact:   extractor.NewContactExtractor(deps.NLP),
		language:  deps.Language,
		sentiment: extractor.NewSentimentAnalyzer(deps.Scorer),
		topics:    extractor.NewTopicAnalyzer(deps.NLP, logger),
		location:  extractor.NewLocationExtractor(deps.NLP, deps.Geo, logger),
		job:       extractor.NewJobCompanyExtractor(deps.NLP),
		timeline:  extractor.NewTimelineAnalyzer(logger),
		workers:   workers,
		logger:    logger,
		now:       time.Now,
	}
}

// NewDefaultAnalyzer wires the prose, VADER and lingua backends.
func NewDefaultAnalyzer(languages []string, workers int, geo extractor.GeoLocator, logger *zap.Logger) (*Analyzer, error) {
	detector, err := extractor.NewLanguageDetector(languages, logger)
	if err != nil {
		return nil, err
	}
	return NewAnalyzer(Deps{
		NLP:      extractor.NewProseNLP(),
		Scorer:   extractor.NewVaderScorer(),
		Language: detector,
		Geo:      geo,
	}, workers, logger), nil
}

func (a *Analyzer) Parser() *parser.Parser {
	return a.parser
}

// Batch is the outcome of one analysis run.
type Batch struct {
	RunID      string
	Results    []*model.AnalysisResult
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// AnalyzeEmail extracts every feature of e. topicModel may be nil, in which
// case key phrases fall back to term frequency.
func (a *Analyzer) AnalyzeEmail(ctx context.Context, e *model.Email, topicModel *extractor.TopicModel) (result *model.AnalysisResult, err error) {
	if e == nil {
		return nil, fmt.Errorf("nil email")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	// 单个提取器 panic 只影响这一封邮件
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("analyze %s: panic: %v", e.Source, r)
		}
		metrics.RecordEmailAnalysis(time.Since(start))
	}()

	ctx, span := otel.StartSpan(ctx, "analyzer.email")
	defer span.End()

	fullName := a.contact.ExtractName(e)
	result = &model.AnalysisResult{
		Timestamp:  a.now().UTC(),
		EmailID:    e.MessageID,
		MessageKey: e.Key(),
		Subject:    e.Subject,
		Date:       e.Date,
		From:       e.From,
		To:         e.To,
		FullName:   fullName,
		Gender:     a.contact.PredictGender(fullName),
		Phone:      a.contact.ExtractPhone(e.Body),
		Address:    a.contact.ExtractAddress(e.Body),
		Location:   a.location.Extract(ctx, e),
		Job:        a.job.Extract(e),
		EmailType:  a.basic.EmailType(e),
		Activity:   a.basic.TimeCharacteristics(e.Date),
		Languages:  a.language.DetectLanguages(e.Body),
		Sentiment:  a.sentiment.Analyze(e),
		Topics:     a.topics.ExtractTopics(e.Body, topicModel),
	}
	return result, nil
}

// FitTopics fits the topic model over the email bodies. It returns nil when
// the corpus is too small, which selects the frequency fallback.
func (a *Analyzer) FitTopics(emails []*model.Email) *extractor.TopicModel {
	docs := make([]string, len(emails))
	for i, e := range emails {
		docs[i] = e.Body
	}
	m, err := a.topics.Fit(docs)
	if err != nil {
		a.logger.Info("Topic model not fitted, using term frequency phrases",
			zap.Int("documents", len(docs)),
			zap.Error(err),
		)
		return nil
	}
	return m
}

// AnalyzeBatch analyses emails concurrently, keeping input order. Emails
// that fail are logged and left out.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, emails []*model.Email) (*Batch, error) {
	batch := &Batch{
		RunID:     uuid.NewString(),
		StartedAt: a.now().UTC(),
	}
	log := logger.WithTrace(ctx, a.logger).With(zap.String("run_id", batch.RunID))
	log.Info("Starting analysis run", zap.Int("emails", len(emails)), zap.Int("workers", a.workers))

	topicModel := a.FitTopics(emails)

	slots := make([]*model.AnalysisResult, len(emails))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i, e := range emails {
		i, e := i, e
		g.Go(func() error {
			res, err := a.AnalyzeEmail(gctx, e, topicModel)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Error("Error analyzing email",
					zap.String("source", e.Source),
					zap.String("message_id", e.MessageID),
					zap.Error(err),
				)
				metrics.IncrementEmailProcessed("failed")
				return nil
			}
			res.RunID = batch.RunID
			slots[i] = res
			metrics.IncrementEmailProcessed("success")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis run %s aborted: %w", batch.RunID, err)
	}

	batch.Results = make([]*model.AnalysisResult, 0, len(slots))
	for _, r := range slots {
		if r == nil {
			batch.Failed++
			continue
		}
		batch.Results = append(batch.Results, r)
	}
	batch.FinishedAt = a.now().UTC()

	log.Info("Analysis run finished",
		zap.Int("analyzed", len(batch.Results)),
		zap.Int("failed", batch.Failed),
		zap.Duration("elapsed", batch.FinishedAt.Sub(batch.StartedAt)),
	)
	return batch, nil
}

// AnalyzeDirectory parses every .eml file in dir and analyses the batch.
// The parsed emails are returned for the timeline view.
func (a *Analyzer) AnalyzeDirectory(ctx context.Context, dir string) (*Batch, []*model.Email, error) {
	emails, err := a.parser.ParseDirectory(dir)
	if err != nil {
		return nil, nil, err
	}
	if len(emails) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", dir, ErrEmptyDirectory)
	}
	batch, err := a.AnalyzeBatch(ctx, emails)
	if err != nil {
		return nil, nil, err
	}
	return batch, emails, nil
}

// Timeline builds the usage timeline of emails.
func (a *Analyzer) Timeline(emails []*model.Email) model.Timeline {
	return a.timeline.Analyze(extractor.EmailDates(emails))
}

// TimelineFromResults builds the usage timeline from stored result dates.
func (a *Analyzer) TimelineFromResults(results []*model.AnalysisResult) model.Timeline {
	dates := make([]string, 0, len(results))
	for _, r := range results {
		if r.Date != "" {
			dates = append(dates, r.Date)
		}
	}
	return a.timeline.Analyze(dates)
}

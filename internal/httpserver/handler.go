package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mqcontracts "emailanalyser/contracts/mq"
	"emailanalyser/internal/model"
	"emailanalyser/internal/report"
	"emailanalyser/internal/service"
	"emailanalyser/pkg/logger"
	"emailanalyser/pkg/mq"
	"emailanalyser/pkg/outbox"
	"emailanalyser/pkg/trace"
)

// maxUploadBytes caps a single uploaded .eml file.
const maxUploadBytes = 10 << 20

const exportFilename = "email_analysis.csv"

// Pipeline is the part of service.Pipeline the dashboard needs.
type Pipeline interface {
	Results(ctx context.Context, limit int) ([]*model.AnalysisResult, error)
	AnalyzeRaw(ctx context.Context, raw []byte, source string) (*model.AnalysisResult, error)
	RunDirectory(ctx context.Context, trigger string) (*service.Batch, []*model.Email, error)
	Timeline(ctx context.Context) (model.Timeline, error)
}

// EventPublisher queues uploads for the worker instead of analysing inline.
type EventPublisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// MessageParser validates uploads before they are queued.
type MessageParser interface {
	ParseBytes(raw []byte, source string) (*model.Email, error)
}

type Replayer interface {
	ReplayEvent(ctx context.Context, eventID int64) error
	ReplayFailedEvents(ctx context.Context, limit int) (int, error)
}

type Handler struct {
	pipeline  Pipeline
	parser    MessageParser
	publisher EventPublisher
	replayer  Replayer
	logger    *zap.Logger

	// showData renders metrics into the HTML page; off when the API needs a token.
	showData bool
}

func NewHandler(pipeline Pipeline, parser MessageParser, logger *zap.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		parser:   parser,
		logger:   logger,
		showData: true,
	}
}

// WithPublisher makes uploads asynchronous: they are published as
// email.ingested events and analysed by the worker.
func (h *Handler) WithPublisher(publisher EventPublisher) *Handler {
	h.publisher = publisher
	return h
}

func (h *Handler) WithReplayer(replayer Replayer) *Handler {
	h.replayer = replayer
	return h
}

type indexData struct {
	Empty     bool
	Dashboard *report.Dashboard
}

// Index 渲染仪表盘页面
// GET /
func (h *Handler) Index(c *gin.Context) {
	if !h.showData {
		c.HTML(http.StatusOK, "index.html", indexData{})
		return
	}

	results, err := h.pipeline.Results(c.Request.Context(), 0)
	if err != nil {
		h.log(c).Error("Failed to load results", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "index.html", indexData{Empty: true})
		return
	}
	if len(results) == 0 {
		c.HTML(http.StatusOK, "index.html", indexData{Empty: true})
		return
	}

	dashboard := report.BuildDashboard(results)
	c.HTML(http.StatusOK, "index.html", indexData{Dashboard: &dashboard})
}

// Summary 返回仪表盘聚合数据
// GET /api/summary
func (h *Handler) Summary(c *gin.Context) {
	results, ok := h.loadResults(c, 0)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report.BuildDashboard(results))
}

// ListEmails 返回分析结果
// GET /api/emails?limit=50
func (h *Handler) ListEmails(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
		return
	}

	results, ok := h.loadResults(c, limit)
	if !ok {
		return
	}
	if results == nil {
		results = []*model.AnalysisResult{}
	}
	c.JSON(http.StatusOK, gin.H{
		"emails": results,
		"count":  len(results),
	})
}

// GET /api/network
func (h *Handler) Network(c *gin.Context) {
	results, ok := h.loadResults(c, 0)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report.BuildNetwork(results))
}

// GET /api/timeline
func (h *Handler) Timeline(c *gin.Context) {
	timeline, err := h.pipeline.Timeline(c.Request.Context())
	if err != nil {
		h.log(c).Error("Failed to build timeline", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build timeline"})
		return
	}
	c.JSON(http.StatusOK, timeline)
}

// ExportCSV 下载全部结果
// GET /export.csv
func (h *Handler) ExportCSV(c *gin.Context) {
	results, ok := h.loadResults(c, 0)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	c.Status(http.StatusOK)
	if err := report.WriteCSV(c.Writer, results); err != nil {
		h.log(c).Error("Failed to write csv export", zap.Error(err))
	}
}

// UploadEmail 上传单封原始邮件（请求体为 .eml 内容）
// POST /api/emails?filename=foo.eml
func (h *Handler) UploadEmail(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "message too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	if len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message"})
		return
	}

	source := c.DefaultQuery("filename", "upload.eml")
	ctx := c.Request.Context()

	if h.publisher != nil {
		email, err := h.parser.ParseBytes(raw, source)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email message", "details": err.Error()})
			return
		}

		payload := mqcontracts.NewEmailIngestedPayload(email.MessageID, source, raw, trace.FromContext(ctx))
		if err := h.publisher.PublishWithContext(ctx, mq.RoutingKeyEmailIngested, payload); err != nil {
			h.log(c).Error("Failed to publish email.ingested", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to queue message"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status":     "queued",
			"message_id": email.MessageID,
		})
		return
	}

	result, err := h.pipeline.AnalyzeRaw(ctx, raw, source)
	if err != nil {
		if errors.Is(err, service.ErrInvalidMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email message", "details": err.Error()})
			return
		}
		h.log(c).Error("Failed to analyze upload", zap.String("source", source), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to analyze message"})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// RunAnalysis 重新分析输入目录
// POST /api/analyze
func (h *Handler) RunAnalysis(c *gin.Context) {
	batch, _, err := h.pipeline.RunDirectory(c.Request.Context(), service.TriggerHTTP)
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrEmptyDirectory):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.log(c).Error("Analysis run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis run failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "completed",
		"run_id":   batch.RunID,
		"analyzed": len(batch.Results),
		"failed":   batch.Failed,
		"duration": batch.FinishedAt.Sub(batch.StartedAt).String(),
	})
}

// ReplayOutboxEvent 重放指定的 Outbox 事件
// POST /admin/outbox/replay?id=xxx
func (h *Handler) ReplayOutboxEvent(c *gin.Context) {
	if h.replayer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "outbox is not enabled"})
		return
	}

	eventID, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id parameter"})
		return
	}

	if err := h.replayer.ReplayEvent(c.Request.Context(), eventID); err != nil {
		switch {
		case errors.Is(err, outbox.ErrEventNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		case errors.Is(err, outbox.ErrAlreadySent):
			c.JSON(http.StatusConflict, gin.H{"error": "event already sent"})
			return
		}
		h.log(c).Error("Failed to replay event", zap.Int64("event_id", eventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to replay event",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "replayed", "event_id": eventID})
}

// POST /admin/outbox/replay-failed?limit=100
func (h *Handler) ReplayFailedEvents(c *gin.Context) {
	if h.replayer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "outbox is not enabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	count, err := h.replayer.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		h.log(c).Error("Failed to replay failed events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to replay failed events",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed", "success_count": count, "limit": limit})
}

func (h *Handler) loadResults(c *gin.Context, limit int) ([]*model.AnalysisResult, bool) {
	results, err := h.pipeline.Results(c.Request.Context(), limit)
	if err != nil {
		h.log(c).Error("Failed to load results", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load results"})
		return nil, false
	}
	return results, true
}

func (h *Handler) log(c *gin.Context) *zap.Logger {
	return logger.WithTrace(c.Request.Context(), h.logger)
}

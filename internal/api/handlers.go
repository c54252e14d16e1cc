package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/serpinsight/analyzer/internal/domain"
	"github.com/serpinsight/analyzer/internal/engine"
)

// ErrScopeNotFound reports an analyze request for a scope with no records.
var ErrScopeNotFound = errors.New("no records for scope")

// RecordsStore loads and replaces performance records for a scope.
type RecordsStore interface {
	ListByScope(ctx context.Context, scope domain.Scope) ([]domain.PerformanceRecord, error)
	ReplaceRecords(ctx context.Context, projectID string, records []domain.PerformanceRecord) error
}

// ResultsStore persists and reads back analysis outputs.
type ResultsStore interface {
	ReplaceScope(ctx context.Context, result *domain.AnalysisResult) error
	ListPages(ctx context.Context, projectID string) ([]domain.PageAggregate, error)
	ListQueryClusters(ctx context.Context, projectID string) ([]domain.QueryCluster, error)
	ListTopicClusters(ctx context.Context, projectID string) ([]domain.TopicCluster, error)
}

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Metrics counts run outcomes per trigger. A nil Metrics disables
// recording.
type Metrics interface {
	RecordAnalysisCompleted(ctx context.Context, trigger string)
	RecordAnalysisFailure(ctx context.Context, trigger, errorCode string)
}

// Analysis run triggers and failure codes.
const (
	triggerAPI     = "api"
	triggerPreview = "preview"

	errCodeLoadRecords = "load_records"
	errCodeAnalysis    = "analysis"
	errCodePersist     = "persist"
)

// Handler handles HTTP requests for the analyzer API
type Handler struct {
	engine    *engine.Engine
	records   RecordsStore
	results   ResultsStore
	reporting ReportingThresholds
	metrics   Metrics
	logger    Logger
}

// NewHandler creates a new API handler
func NewHandler(eng *engine.Engine, records RecordsStore, results ResultsStore, reporting ReportingThresholds, metrics Metrics, logger Logger) *Handler {
	return &Handler{
		engine:    eng,
		records:   records,
		results:   results,
		reporting: reporting,
		metrics:   metrics,
		logger:    logger,
	}
}

func (h *Handler) recordCompleted(ctx context.Context, trigger string) {
	if h.metrics != nil {
		h.metrics.RecordAnalysisCompleted(ctx, trigger)
	}
}

func (h *Handler) recordFailure(ctx context.Context, trigger, errorCode string) {
	if h.metrics != nil {
		h.metrics.RecordAnalysisFailure(ctx, trigger, errorCode)
	}
}

// Analyze handles POST /api/v1/analyze
func (h *Handler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid analyze request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	scope := req.Scope()

	records, err := h.records.ListByScope(ctx, scope)
	if err != nil {
		h.logger.Error("Failed to load records", "project_id", scope.ProjectID, "error", err)
		h.recordFailure(ctx, triggerAPI, errCodeLoadRecords)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load records"})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrScopeNotFound.Error()})
		return
	}

	result, err := h.engine.Analyze(ctx, scope, records)
	if err != nil {
		h.logger.Error("Analysis failed", "project_id", scope.ProjectID, "error", err)
		h.recordFailure(ctx, triggerAPI, errCodeAnalysis)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	if err = h.results.ReplaceScope(ctx, result); err != nil {
		h.logger.Error("Failed to persist results", "project_id", scope.ProjectID, "error", err)
		h.recordFailure(ctx, triggerAPI, errCodePersist)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist results"})
		return
	}

	h.recordCompleted(ctx, triggerAPI)

	h.logger.Info("Scope analyzed",
		"project_id", scope.ProjectID,
		"records", result.RecordCount,
		"query_clusters", len(result.QueryClusters),
		"topic_clusters", len(result.TopicClusters),
	)

	c.JSON(http.StatusOK, toAnalyzeResponse(result))
}

// AnalyzePreview handles POST /api/v1/analyze/preview. It runs the engine
// over inline records and returns the full result without persisting.
func (h *Handler) AnalyzePreview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid preview request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.Analyze(c.Request.Context(), domain.Scope{ProjectID: req.ProjectID}, req.Records)
	if err != nil {
		h.logger.Error("Preview analysis failed", "project_id", req.ProjectID, "error", err)
		h.recordFailure(c.Request.Context(), triggerPreview, errCodeAnalysis)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	h.recordCompleted(c.Request.Context(), triggerPreview)
	c.JSON(http.StatusOK, result)
}

// SyncRecords handles PUT /api/v1/scopes/:project/records. The ingest
// adapter delivers full snapshots; the previous record set is replaced
// atomically and the scheduler picks up the change on its next poll.
func (h *Handler) SyncRecords(c *gin.Context) {
	projectID := c.Param("project")

	var req SyncRecordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid sync request", "project_id", projectID, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.records.ReplaceRecords(c.Request.Context(), projectID, req.Records); err != nil {
		h.logger.Error("Failed to replace records", "project_id", projectID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to replace records"})
		return
	}

	h.logger.Info("Records synced", "project_id", projectID, "records", len(req.Records))

	c.JSON(http.StatusOK, gin.H{"project_id": projectID, "records": len(req.Records)})
}

// GetPages handles GET /api/v1/scopes/:project/pages
func (h *Handler) GetPages(c *gin.Context) {
	projectID := c.Param("project")

	pages, err := h.results.ListPages(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Error("Failed to list pages", "project_id", projectID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list pages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pages": pages, "total": len(pages)})
}

// GetQueryClusters handles GET /api/v1/scopes/:project/clusters
func (h *Handler) GetQueryClusters(c *gin.Context) {
	projectID := c.Param("project")

	clusters, err := h.results.ListQueryClusters(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Error("Failed to list query clusters", "project_id", projectID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list query clusters"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"clusters": clusters, "total": len(clusters)})
}

// GetTopicClusters handles GET /api/v1/scopes/:project/topics
func (h *Handler) GetTopicClusters(c *gin.Context) {
	projectID := c.Param("project")

	clusters, err := h.results.ListTopicClusters(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Error("Failed to list topic clusters", "project_id", projectID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list topic clusters"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"topics": clusters, "total": len(clusters)})
}

// ContentQuality handles POST /api/v1/content/quality
func (h *Handler) ContentQuality(c *gin.Context) {
	var req QualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid quality request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report := h.engine.AnalyzeContent(req.Content)
	c.JSON(http.StatusOK, report)
}

// ClassifyIntent handles POST /api/v1/intent
func (h *Handler) ClassifyIntent(c *gin.Context) {
	var req IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid intent request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	intents := h.engine.ClassifyIntents(req.Keywords)
	c.JSON(http.StatusOK, IntentResponse{Intents: intents, Total: len(intents)})
}

// GetReportingThresholds handles GET /api/v1/reporting/thresholds
func (h *Handler) GetReportingThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, h.reporting)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// ReadyCheck handles GET /ready
func (h *Handler) ReadyCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

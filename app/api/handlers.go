package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/workflow-digest/app/database"
	"github.com/lysyi3m/workflow-digest/app/tasks"
)

const reportsFeedLimit = 20

func NewHandler(store WorkflowStore, reportRepo database.ReportRepository,
	itemRepo database.ItemRepository, generator GeneratorInterface, sources SourceCounter,
	scheduler tasks.TaskSchedulerInterface, newDigest tasks.TaskFactory) *Handler {
	return &Handler{
		store:      store,
		reportRepo: reportRepo,
		itemRepo:   itemRepo,
		generator:  generator,
		sources:    sources,
		scheduler:  scheduler,
		newDigest:  newDigest,
	}
}

func (h *Handler) GetReportsFeed(c *gin.Context) {
	reports, err := h.reportRepo.GetLatestReports(reportsFeedLimit)
	if err != nil {
		slog.Error("Database error", "operation", "get_latest_reports", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(reports)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(reports)))
	if len(reports) > 0 {
		c.Header("X-Last-Updated", reports[0].GeneratedAt.Format(time.RFC3339))
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"workflows": h.store.Count(),
	}

	if h.sources != nil {
		health["loaded_configurations"] = h.sources.GetConfigCount()
	}

	if h.itemRepo != nil {
		if reported, err := h.itemRepo.GetReportedCount(); err == nil {
			health["reported_items"] = reported
		}
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListWorkflows(c *gin.Context) {
	limit, ok := queryLimit(c, 5)
	if !ok {
		return
	}

	workflows := h.store.BestWorkflows(limit, c.Query("category"))

	c.JSON(http.StatusOK, gin.H{
		"workflows": workflows,
		"total":     len(workflows),
	})
}

func (h *Handler) APIUnfeaturedWorkflows(c *gin.Context) {
	limit, ok := queryLimit(c, 3)
	if !ok {
		return
	}

	workflows := h.store.Unfeatured(limit)

	c.JSON(http.StatusOK, gin.H{
		"workflows": workflows,
		"total":     len(workflows),
	})
}

func (h *Handler) APISearchWorkflows(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing search query parameter 'q'"})
		return
	}

	workflows := h.store.Search(query)

	c.JSON(http.StatusOK, gin.H{
		"query":     query,
		"workflows": workflows,
		"total":     len(workflows),
	})
}

func (h *Handler) APIWorkflowStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats())
}

func (h *Handler) APIAddWorkflow(c *gin.Context) {
	var req AddWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid workflow",
			"details": err.Error(),
		})
		return
	}

	record, err := h.store.Add(req.record())
	if err != nil {
		slog.Error("Failed to add workflow", "title", req.Title, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save workflow",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *Handler) APIFeatureWorkflow(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid workflow id"})
		return
	}

	found, err := h.store.MarkFeatured(id)
	if err != nil {
		slog.Error("Failed to mark workflow featured", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save workflow",
			"details": err.Error(),
		})
		return
	}

	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Workflow not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      id,
	})
}

func (h *Handler) APIStartRun(c *gin.Context) {
	if h.scheduler == nil || h.newDigest == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not running"})
		return
	}

	task := h.newDigest()
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing digest task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue digest task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Digest run enqueued",
		"task": gin.H{
			"id":   task.GetID(),
			"type": task.GetType(),
		},
	})
}

func queryLimit(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return 0, false
	}
	return limit, true
}

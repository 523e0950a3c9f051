package delivery

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"statuspulse-backend/internal/report/domain"
	"statuspulse-backend/internal/report/usecase"
)

// manualLockTimeout is the acquire bound for interactive triggers; the
// scheduler path uses a much shorter one.
const manualLockTimeout = 30 * time.Second

// ReportHandler handles report-related HTTP requests
type ReportHandler struct {
	reportUsecase usecase.ReportUsecase
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportUsecase usecase.ReportUsecase) *ReportHandler {
	return &ReportHandler{
		reportUsecase: reportUsecase,
	}
}

// GenerateReport triggers one generation attempt for the project
// POST /api/projects/:id/report/generate?window=24&force=false
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	projectID := c.Param("id")

	window, err := strconv.Atoi(c.DefaultQuery("window", "24"))
	if err != nil || (window != 24 && window != 48) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window must be 24 or 48"})
		return
	}
	force := c.DefaultQuery("force", "false") == "true"

	result, err := h.reportUsecase.Generate(c.Request.Context(), projectID, usecase.GenerateOptions{
		WindowHours: window,
		Force:       force,
		LockTimeout: manualLockTimeout,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	switch result.Outcome {
	case domain.OutcomeDelivered:
		c.JSON(http.StatusOK, result)
	case domain.OutcomeSuppressed:
		c.Header("X-Content-Hash", result.PayloadHash)
		c.Status(http.StatusNotModified)
	case domain.OutcomeLockBusy:
		c.JSON(http.StatusConflict, gin.H{"error": "report generation already in progress"})
	case domain.OutcomeSkippedNonBusinessDay:
		c.Status(http.StatusNoContent)
	case domain.OutcomeDeliveryFailed:
		c.JSON(http.StatusBadGateway, gin.H{
			"error":        result.DeliveryErr,
			"payload_hash": result.PayloadHash,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown outcome"})
	}
}

// PreviewReport composes the report without locking, delivering or persisting
// GET /api/projects/:id/report/preview?window=24
func (h *ReportHandler) PreviewReport(c *gin.Context) {
	projectID := c.Param("id")

	window, err := strconv.Atoi(c.DefaultQuery("window", "24"))
	if err != nil || (window != 24 && window != 48) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window must be 24 or 48"})
		return
	}

	preview, err := h.reportUsecase.Preview(c.Request.Context(), projectID, window)
	if err != nil {
		if errors.Is(err, usecase.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, preview)
}

// LastReport returns the project's most recent delivery record
// GET /api/projects/:id/report/last
func (h *ReportHandler) LastReport(c *gin.Context) {
	projectID := c.Param("id")

	record, err := h.reportUsecase.LastDelivery(projectID)
	if err != nil {
		if errors.Is(err, usecase.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No report delivered yet"})
		return
	}

	c.JSON(http.StatusOK, record)
}

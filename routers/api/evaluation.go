package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"CoachingAgent-server/models"
)

// CreateEvaluation queues a new evaluation for an uploaded video. Only
// one non-failed evaluation may exist per video; deleting a failed run
// and creating a new one is the retry path.
func (h *Handler) CreateEvaluation(c *gin.Context) {
	var req struct {
		VideoID string `json:"video_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	video, err := models.GetVideoByID(h.DB, req.VideoID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	existing, err := models.GetActiveEvaluationByVideoID(h.DB, video.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":         fmt.Sprintf("Video already has an evaluation with status %q", existing.Status),
			"evaluation_id": existing.ID,
		})
		return
	}

	evaluation := models.Evaluation{
		ID:           uuid.NewString(),
		VideoID:      video.ID,
		InstructorID: video.InstructorID,
		Status:       models.EvaluationStatusQueued,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := h.DB.Create(&evaluation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create evaluation failed: " + err.Error()})
		return
	}

	if err := h.Queue.EnqueueEvaluationRun(evaluation.ID); err != nil {
		h.Log.WithError(err).WithField("evaluation_id", evaluation.ID).Error("cannot enqueue evaluation run")
	}

	c.JSON(http.StatusCreated, evaluation)
}

// GetEvaluation is the polling endpoint: status plus derived readiness
// flags, without the report body.
func (h *Handler) GetEvaluation(c *gin.Context) {
	e, err := models.GetEvaluationByID(h.DB, c.Param("evaluation_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Evaluation not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                      e.ID,
		"video_id":                e.VideoID,
		"instructor_id":           e.InstructorID,
		"status":                  e.Status,
		"has_transcript":          e.HasTranscript(),
		"has_report":              e.HasReport(),
		"metrics":                 e.Metrics,
		"processing_started_at":   e.ProcessingStartedAt,
		"processing_completed_at": e.ProcessingCompletedAt,
		"created_at":              e.CreatedAt,
		"updated_at":              e.UpdatedAt,
	})
}

func (h *Handler) GetEvaluationTranscript(c *gin.Context) {
	e, err := models.GetEvaluationByID(h.DB, c.Param("evaluation_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Evaluation not found"})
		return
	}
	if !e.HasTranscript() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Transcript not ready (status: %s)", e.Status)})
		return
	}

	var transcript *models.Transcript
	if e.TranscriptID != "" {
		transcript, err = models.GetTranscriptByID(h.DB, e.TranscriptID)
	} else {
		transcript, err = models.GetTranscriptByVideoID(h.DB, e.VideoID)
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transcript not found"})
		return
	}

	c.JSON(http.StatusOK, transcript)
}

func (h *Handler) GetEvaluationReport(c *gin.Context) {
	e, err := models.GetEvaluationByID(h.DB, c.Param("evaluation_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Evaluation not found"})
		return
	}
	if !e.HasReport() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Report not ready (status: %s)", e.Status)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                   e.ID,
		"video_id":             e.VideoID,
		"report_markdown":      e.ReportMarkdown,
		"metrics":              e.Metrics,
		"strengths":            e.Strengths,
		"growth_opportunities": e.GrowthOpportunities,
	})
}

func (h *Handler) DeleteEvaluation(c *gin.Context) {
	e, err := models.GetEvaluationByID(h.DB, c.Param("evaluation_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Evaluation not found"})
		return
	}
	if err := h.DB.Delete(e).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete evaluation failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": e.ID})
}

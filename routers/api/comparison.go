package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"CoachingAgent-server/models"
)

type createComparisonRequest struct {
	Title                string   `json:"title" binding:"required"`
	ComparisonType       string   `json:"comparison_type" binding:"required"`
	EvaluationIDs        []string `json:"evaluation_ids" binding:"required"`
	Labels               []string `json:"labels"`
	OrganizationID       string   `json:"organization_id"`
	CreatedByID          string   `json:"created_by_id"`
	ClassTag             string   `json:"class_tag"`
	AnonymizeInstructors bool     `json:"anonymize_instructors"`
	StartImmediately     *bool    `json:"start_immediately"`
}

// CreateComparison validates the evaluation set up front, creates the
// row with its ordered links and optionally queues the analysis. The
// pipeline re-validates before it runs; evaluations can be deleted
// between the two checks.
func (h *Handler) CreateComparison(c *gin.Context) {
	var req createComparisonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidComparisonType(req.ComparisonType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown comparison type %q", req.ComparisonType)})
		return
	}
	if len(req.EvaluationIDs) < models.ComparisonMinEvaluations || len(req.EvaluationIDs) > models.ComparisonMaxEvaluations {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("comparison requires %d to %d evaluations, got %d",
			models.ComparisonMinEvaluations, models.ComparisonMaxEvaluations, len(req.EvaluationIDs))})
		return
	}

	seen := make(map[string]bool, len(req.EvaluationIDs))
	for _, id := range req.EvaluationIDs {
		if seen[id] {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("duplicate evaluation %s", id)})
			return
		}
		seen[id] = true

		e, err := models.GetEvaluationByID(h.DB, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Evaluation %s not found", id)})
			return
		}
		if e.Status != models.EvaluationStatusCompleted {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Evaluation %s is not completed (status: %s)", e.ID, e.Status)})
			return
		}
		if e.ReportMarkdown == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Evaluation %s has no report", e.ID)})
			return
		}
	}

	start := true
	if req.StartImmediately != nil {
		start = *req.StartImmediately
	}
	status := models.ComparisonStatusDraft
	if start {
		status = models.ComparisonStatusQueued
	}

	comparison := models.Comparison{
		ID:                   uuid.NewString(),
		Title:                req.Title,
		ComparisonType:       req.ComparisonType,
		Status:               status,
		OrganizationID:       req.OrganizationID,
		CreatedByID:          req.CreatedByID,
		ClassTag:             req.ClassTag,
		AnonymizeInstructors: req.AnonymizeInstructors,
		CreatedAt:            time.Now().UTC(),
		UpdatedAt:            time.Now().UTC(),
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comparison).Error; err != nil {
			return err
		}
		for i, evaluationID := range req.EvaluationIDs {
			label := ""
			if i < len(req.Labels) {
				label = req.Labels[i]
			}
			link := models.ComparisonEvaluation{
				ID:           uuid.NewString(),
				ComparisonID: comparison.ID,
				EvaluationID: evaluationID,
				DisplayOrder: i,
				Label:        label,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create comparison failed: " + err.Error()})
		return
	}

	if start {
		if err := h.Queue.EnqueueComparisonRun(comparison.ID); err != nil {
			h.Log.WithError(err).WithField("comparison_id", comparison.ID).Error("cannot enqueue comparison run")
		}
	}

	c.JSON(http.StatusCreated, comparison)
}

func (h *Handler) ListComparisons(c *gin.Context) {
	offset, limit := pagination(c)
	comparisons, total, err := models.ListComparisons(h.DB, c.Query("type"), c.Query("status"), offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comparisons": comparisons, "total": total, "offset": offset, "limit": limit})
}

func (h *Handler) GetComparison(c *gin.Context) {
	comparison, err := models.GetComparisonByID(h.DB, c.Param("comparison_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comparison not found"})
		return
	}
	links, err := models.GetComparisonLinks(h.DB, comparison.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comparison": comparison, "evaluations": links})
}

// StartComparison queues a draft comparison. Any other status is a 400;
// the transition table rejects restarts of queued or terminal rows.
func (h *Handler) StartComparison(c *gin.Context) {
	comparison, err := models.GetComparisonByID(h.DB, c.Param("comparison_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comparison not found"})
		return
	}
	if err := comparison.Transition(h.DB, models.ComparisonStatusQueued, nil); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Queue.EnqueueComparisonRun(comparison.ID); err != nil {
		h.Log.WithError(err).WithField("comparison_id", comparison.ID).Error("cannot enqueue comparison run")
	}
	c.JSON(http.StatusOK, comparison)
}

func (h *Handler) GetComparisonReport(c *gin.Context) {
	comparison, err := models.GetComparisonByID(h.DB, c.Param("comparison_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comparison not found"})
		return
	}
	if comparison.Status != models.ComparisonStatusCompleted || comparison.ReportMarkdown == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Report not ready (status: %s)", comparison.Status)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                   comparison.ID,
		"title":                comparison.Title,
		"comparison_type":      comparison.ComparisonType,
		"report_markdown":      comparison.ReportMarkdown,
		"metrics":              comparison.Metrics,
		"strengths":            comparison.Strengths,
		"growth_opportunities": comparison.GrowthOpportunities,
	})
}

// DeleteComparison removes the comparison and its links. The linked
// evaluations are never touched.
func (h *Handler) DeleteComparison(c *gin.Context) {
	comparison, err := models.GetComparisonByID(h.DB, c.Param("comparison_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comparison not found"})
		return
	}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ComparisonEvaluation{}, "comparison_id = ?", comparison.ID).Error; err != nil {
			return err
		}
		return tx.Delete(comparison).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete comparison failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": comparison.ID})
}

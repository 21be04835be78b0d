package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"CoachingAgent-server/models"
)

func (h *Handler) ListInstructorEvaluations(c *gin.Context) {
	instructorID := c.Param("instructor_id")
	if _, err := models.GetInstructorByID(h.DB, instructorID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Instructor not found"})
		return
	}

	offset, limit := pagination(c)
	evaluations, total, err := models.ListEvaluationsByInstructor(h.DB, instructorID, c.Query("status"), offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluations": evaluations, "total": total, "offset": offset, "limit": limit})
}

// InstructorDashboard summarizes an instructor's completed evaluations:
// totals, per-metric average and latest value, and the strength and
// growth titles that recur across sessions.
func (h *Handler) InstructorDashboard(c *gin.Context) {
	instructorID := c.Param("instructor_id")
	instructor, err := models.GetInstructorByID(h.DB, instructorID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Instructor not found"})
		return
	}

	var evaluations []models.Evaluation
	err = h.DB.Where("instructor_id = ? AND status = ?", instructorID, models.EvaluationStatusCompleted).
		Order("created_at ASC").Find(&evaluations).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var totalAll int64
	if err := h.DB.Model(&models.Evaluation{}).Where("instructor_id = ?", instructorID).Count(&totalAll).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	metricSummary := map[string]gin.H{}
	for _, key := range models.TrackedMetrics() {
		var values []float64
		for _, e := range evaluations {
			if v, ok := e.Metrics.Float(string(key)); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		metricSummary[string(key)] = gin.H{
			"average":  sum / float64(len(values)),
			"latest":   values[len(values)-1],
			"sessions": len(values),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"instructor":            instructor,
		"total_evaluations":     totalAll,
		"completed_evaluations": len(evaluations),
		"metrics":               metricSummary,
		"recurring_strengths":   recurringTitles(evaluations, func(e models.Evaluation) models.ThemeList { return e.Strengths }),
		"recurring_growth":      recurringTitles(evaluations, func(e models.Evaluation) models.ThemeList { return e.GrowthOpportunities }),
	})
}

// recurringTitles returns theme titles that appear in more than one
// evaluation, most frequent first.
func recurringTitles(evaluations []models.Evaluation, pick func(models.Evaluation) models.ThemeList) []gin.H {
	counts := map[string]int{}
	for _, e := range evaluations {
		seen := map[string]bool{}
		for _, theme := range pick(e) {
			if theme.Title == "" || seen[theme.Title] {
				continue
			}
			seen[theme.Title] = true
			counts[theme.Title]++
		}
	}

	out := make([]gin.H, 0, len(counts))
	for title, n := range counts {
		if n > 1 {
			out = append(out, gin.H{"title": title, "sessions": n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := out[i]["sessions"].(int), out[j]["sessions"].(int)
		if ni != nj {
			return ni > nj
		}
		return out[i]["title"].(string) < out[j]["title"].(string)
	})
	return out
}

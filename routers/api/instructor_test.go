package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"CoachingAgent-server/models"
)

func instructorRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.GET("/instructors/:instructor_id/dashboard", h.InstructorDashboard)
	r.GET("/instructors/:instructor_id/evaluations", h.ListInstructorEvaluations)
	return r
}

func seedInstructorHistory(t *testing.T, h *Handler) {
	t.Helper()
	if err := h.DB.Create(&models.Instructor{ID: "inst-1", DisplayName: "Dana Reeves"}).Error; err != nil {
		t.Fatal(err)
	}
	evaluations := []models.Evaluation{
		{
			ID: "e1", InstructorID: "inst-1", Status: models.EvaluationStatusCompleted,
			Metrics:   models.MetricSet{"wpm": 140.0},
			Strengths: models.ThemeList{{Title: "Clear explanations"}},
			CreatedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: "e2", InstructorID: "inst-1", Status: models.EvaluationStatusCompleted,
			Metrics:   models.MetricSet{"wpm": 150.0},
			Strengths: models.ThemeList{{Title: "Clear explanations"}, {Title: "Good pacing"}},
			CreatedAt: time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: "e3", InstructorID: "inst-1", Status: models.EvaluationStatusFailed,
			CreatedAt: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		},
	}
	for i := range evaluations {
		if err := h.DB.Create(&evaluations[i]).Error; err != nil {
			t.Fatal(err)
		}
	}
}

func TestInstructorDashboard(t *testing.T) {
	h, _ := newTestHandler(t)
	r := instructorRouter(h)
	seedInstructorHistory(t, h)

	w := doJSON(t, r, http.MethodGet, "/instructors/inst-1/dashboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		TotalEvaluations     int `json:"total_evaluations"`
		CompletedEvaluations int `json:"completed_evaluations"`
		Metrics              map[string]struct {
			Average  float64 `json:"average"`
			Latest   float64 `json:"latest"`
			Sessions int     `json:"sessions"`
		} `json:"metrics"`
		RecurringStrengths []struct {
			Title    string `json:"title"`
			Sessions int    `json:"sessions"`
		} `json:"recurring_strengths"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if resp.TotalEvaluations != 3 || resp.CompletedEvaluations != 2 {
		t.Errorf("totals = %d/%d", resp.TotalEvaluations, resp.CompletedEvaluations)
	}
	wpm, ok := resp.Metrics["wpm"]
	if !ok {
		t.Fatalf("wpm summary missing: %v", resp.Metrics)
	}
	if wpm.Average != 145.0 || wpm.Latest != 150.0 || wpm.Sessions != 2 {
		t.Errorf("wpm = %+v", wpm)
	}
	if len(resp.RecurringStrengths) != 1 || resp.RecurringStrengths[0].Title != "Clear explanations" {
		t.Errorf("recurring = %+v", resp.RecurringStrengths)
	}
	if len(resp.RecurringStrengths) == 1 && resp.RecurringStrengths[0].Sessions != 2 {
		t.Errorf("recurring sessions = %d", resp.RecurringStrengths[0].Sessions)
	}
}

func TestInstructorDashboardUnknownInstructor(t *testing.T) {
	h, _ := newTestHandler(t)
	r := instructorRouter(h)

	w := doJSON(t, r, http.MethodGet, "/instructors/nobody/dashboard", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestListInstructorEvaluationsFilterByStatus(t *testing.T) {
	h, _ := newTestHandler(t)
	r := instructorRouter(h)
	seedInstructorHistory(t, h)

	w := doJSON(t, r, http.MethodGet, "/instructors/inst-1/evaluations?status=failed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Evaluations []models.Evaluation `json:"evaluations"`
		Total       int                 `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Evaluations) != 1 || resp.Evaluations[0].ID != "e3" {
		t.Errorf("resp = %+v", resp)
	}
}

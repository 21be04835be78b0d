package models

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestEvaluationCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{EvaluationStatusQueued, EvaluationStatusTranscribing, true},
		{EvaluationStatusTranscribing, EvaluationStatusAnalyzing, true},
		{EvaluationStatusAnalyzing, EvaluationStatusCompleted, true},
		{EvaluationStatusQueued, EvaluationStatusFailed, true},
		{EvaluationStatusTranscribing, EvaluationStatusFailed, true},
		{EvaluationStatusAnalyzing, EvaluationStatusFailed, true},

		{EvaluationStatusQueued, EvaluationStatusAnalyzing, false},
		{EvaluationStatusQueued, EvaluationStatusCompleted, false},
		{EvaluationStatusAnalyzing, EvaluationStatusTranscribing, false},
		{EvaluationStatusCompleted, EvaluationStatusFailed, false},
		{EvaluationStatusCompleted, EvaluationStatusAnalyzing, false},
		{EvaluationStatusFailed, EvaluationStatusQueued, false},
		{EvaluationStatusFailed, EvaluationStatusFailed, false},
	}
	for _, tc := range cases {
		if got := EvaluationCanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestEvaluationTransitionPersists(t *testing.T) {
	db := openTestDB(t)
	e := &Evaluation{ID: "e1", VideoID: "v1", Status: EvaluationStatusQueued, CreatedAt: time.Now().UTC()}
	if err := db.Create(e).Error; err != nil {
		t.Fatal(err)
	}

	started := time.Now().UTC()
	if err := e.Transition(db, EvaluationStatusTranscribing, map[string]interface{}{
		"processing_started_at": started,
	}); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if e.Status != EvaluationStatusTranscribing {
		t.Errorf("in-memory status = %s", e.Status)
	}

	stored, err := GetEvaluationByID(db, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != EvaluationStatusTranscribing {
		t.Errorf("stored status = %s", stored.Status)
	}
	if stored.ProcessingStartedAt == nil {
		t.Error("processing_started_at not persisted")
	}
}

func TestEvaluationTransitionRejected(t *testing.T) {
	db := openTestDB(t)
	e := &Evaluation{ID: "e1", Status: EvaluationStatusQueued}
	if err := db.Create(e).Error; err != nil {
		t.Fatal(err)
	}
	if err := e.Transition(db, EvaluationStatusCompleted, nil); err == nil {
		t.Fatal("queued -> completed accepted")
	}
	stored, _ := GetEvaluationByID(db, "e1")
	if stored.Status != EvaluationStatusQueued {
		t.Errorf("status changed to %s on rejected transition", stored.Status)
	}
}

func TestEvaluationFailIdempotent(t *testing.T) {
	db := openTestDB(t)
	e := &Evaluation{ID: "e1", Status: EvaluationStatusTranscribing}
	if err := db.Create(e).Error; err != nil {
		t.Fatal(err)
	}

	if err := e.Fail(db, "Transcription failed: boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := e.Fail(db, "Transcription failed: again"); err != nil {
		t.Fatalf("second fail: %v", err)
	}

	stored, err := GetEvaluationByID(db, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != EvaluationStatusFailed {
		t.Errorf("status = %s", stored.Status)
	}
	if msg, _ := stored.Metrics["error"].(string); msg != "Transcription failed: again" {
		t.Errorf("error message = %q, want last message", msg)
	}
	if stored.ProcessingCompletedAt == nil {
		t.Error("processing_completed_at not set")
	}
}

func TestGetActiveEvaluationByVideoID(t *testing.T) {
	db := openTestDB(t)
	if err := db.Create(&Evaluation{ID: "failed", VideoID: "v1", Status: EvaluationStatusFailed}).Error; err != nil {
		t.Fatal(err)
	}

	got, err := GetActiveEvaluationByVideoID(db, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("failed evaluation counted as active: %+v", got)
	}

	if err := db.Create(&Evaluation{ID: "active", VideoID: "v1", Status: EvaluationStatusQueued}).Error; err != nil {
		t.Fatal(err)
	}
	got, err = GetActiveEvaluationByVideoID(db, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != "active" {
		t.Fatalf("got %+v, want active evaluation", got)
	}
}

func TestHasTranscriptAndReport(t *testing.T) {
	e := Evaluation{Status: EvaluationStatusQueued}
	if e.HasTranscript() || e.HasReport() {
		t.Error("queued evaluation reports readiness")
	}
	e = Evaluation{Status: EvaluationStatusAnalyzing}
	if !e.HasTranscript() {
		t.Error("analyzing evaluation must have a transcript")
	}
	e = Evaluation{Status: EvaluationStatusCompleted, ReportMarkdown: "# R"}
	if !e.HasReport() {
		t.Error("completed evaluation with report body must have a report")
	}
}

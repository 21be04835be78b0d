package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"CoachingAgent-server/logger"
	"CoachingAgent-server/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeStore struct {
	url string
	err error
}

func (f *fakeStore) ResolveURL(ctx context.Context, key string) (string, error) {
	return f.url, f.err
}

type fakeTranscriber struct {
	result *TranscriptionResult
	err    error
	calls  int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, mediaURL string) (*TranscriptionResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeAnalyzer struct {
	result          *AnalysisResult
	err             error
	calls           int
	comparisonCalls int
	lastUnits       []ComparisonUnit
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, transcript, instructorName string) (*AnalysisResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeAnalyzer) AnalyzeComparison(ctx context.Context, units []ComparisonUnit, comparisonType, classTag string) (*AnalysisResult, error) {
	f.comparisonCalls++
	f.lastUnits = units
	return f.result, f.err
}

func newTestPipeline(db *gorm.DB, transcriber TranscriptionGateway, analyzer AnalysisGateway) *Pipeline {
	return NewPipeline(db, &fakeStore{url: "https://store.local/v.mp4"}, transcriber, analyzer, logger.New())
}

func seedVideo(t *testing.T, db *gorm.DB) *models.Video {
	t.Helper()
	v := &models.Video{
		ID:           "video-1",
		InstructorID: "inst-1",
		Filename:     "session.mp4",
		StorageKey:   "videos/inst-1/video-1.mp4",
		Format:       "mp4",
		UploadStatus: models.VideoStatusUploaded,
		UploadedAt:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	if err := db.Create(v).Error; err != nil {
		t.Fatal(err)
	}
	return v
}

func seedEvaluation(t *testing.T, db *gorm.DB, id, videoID, status string) *models.Evaluation {
	t.Helper()
	e := &models.Evaluation{
		ID:           id,
		VideoID:      videoID,
		InstructorID: "inst-1",
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.Create(e).Error; err != nil {
		t.Fatal(err)
	}
	return e
}

func TestRunEvaluationHappyPath(t *testing.T) {
	db := openTestDB(t)
	seedVideo(t, db)
	seedEvaluation(t, db, "eval-1", "video-1", models.EvaluationStatusQueued)

	transcriber := &fakeTranscriber{result: &TranscriptionResult{
		TranscriptText:       "[00:00:01] Speaker A: welcome everyone",
		WordCount:            3,
		SpeakerCount:         1,
		DurationSeconds:      1800,
		ProviderTranscriptID: "prov-1",
	}}
	analyzer := &fakeAnalyzer{result: &AnalysisResult{
		ReportMarkdown: sampleReport,
		InputTokens:    1200,
		OutputTokens:   900,
		Model:          "claude-sonnet-4-20250514",
	}}

	p := newTestPipeline(db, transcriber, analyzer)
	p.RunEvaluation(context.Background(), "eval-1")

	e, err := models.GetEvaluationByID(db, "eval-1")
	if err != nil {
		t.Fatal(err)
	}
	if e.Status != models.EvaluationStatusCompleted {
		t.Fatalf("status = %s, metrics = %v", e.Status, e.Metrics)
	}
	if e.TranscriptID == "" {
		t.Error("transcript not linked")
	}
	if e.ReportMarkdown != sampleReport {
		t.Error("report not persisted")
	}
	if v, ok := e.Metrics.Float("wpm"); !ok || v != 145.0 {
		t.Errorf("wpm = %v (%v)", v, ok)
	}
	if v, ok := e.Metrics.Float("analysis_input_tokens"); !ok || v != 1200 {
		t.Errorf("analysis_input_tokens = %v (%v)", v, ok)
	}
	if model, _ := e.Metrics["analysis_model"].(string); model != "claude-sonnet-4-20250514" {
		t.Errorf("analysis_model = %v", e.Metrics["analysis_model"])
	}
	if len(e.Strengths) != 2 || len(e.GrowthOpportunities) != 1 {
		t.Errorf("themes = %d strengths, %d growth", len(e.Strengths), len(e.GrowthOpportunities))
	}
	if e.ProcessingStartedAt == nil || e.ProcessingCompletedAt == nil {
		t.Fatal("processing timestamps not set")
	}
	if !e.ProcessingStartedAt.Before(*e.ProcessingCompletedAt) && !e.ProcessingStartedAt.Equal(*e.ProcessingCompletedAt) {
		t.Error("started after completed")
	}

	transcript, err := models.GetTranscriptByID(db, e.TranscriptID)
	if err != nil {
		t.Fatal(err)
	}
	if transcript.VideoID != "video-1" || transcript.WordCount != 3 {
		t.Errorf("transcript = %+v", transcript)
	}

	video, _ := models.GetVideoByID(db, "video-1")
	if video.UploadStatus != models.VideoStatusTranscribed || video.DurationSeconds != 1800 {
		t.Errorf("video = %s/%d", video.UploadStatus, video.DurationSeconds)
	}
}

func TestRunEvaluationVideoMissing(t *testing.T) {
	db := openTestDB(t)
	seedEvaluation(t, db, "eval-1", "nope", models.EvaluationStatusQueued)

	transcriber := &fakeTranscriber{}
	p := newTestPipeline(db, transcriber, &fakeAnalyzer{})
	p.RunEvaluation(context.Background(), "eval-1")

	e, _ := models.GetEvaluationByID(db, "eval-1")
	if e.Status != models.EvaluationStatusFailed {
		t.Fatalf("status = %s", e.Status)
	}
	if msg, _ := e.Metrics["error"].(string); msg != "Video not found" {
		t.Errorf("error = %q", msg)
	}
	if transcriber.calls != 0 {
		t.Error("transcriber called for missing video")
	}
}

func TestRunEvaluationTranscriptionFailure(t *testing.T) {
	db := openTestDB(t)
	seedVideo(t, db)
	seedEvaluation(t, db, "eval-1", "video-1", models.EvaluationStatusQueued)

	analyzer := &fakeAnalyzer{}
	p := newTestPipeline(db, &fakeTranscriber{err: errors.New("provider down")}, analyzer)
	p.RunEvaluation(context.Background(), "eval-1")

	e, _ := models.GetEvaluationByID(db, "eval-1")
	if e.Status != models.EvaluationStatusFailed {
		t.Fatalf("status = %s", e.Status)
	}
	msg, _ := e.Metrics["error"].(string)
	if !strings.HasPrefix(msg, "Transcription failed: ") {
		t.Errorf("error = %q", msg)
	}
	if analyzer.calls != 0 {
		t.Error("analyzer called after transcription failure")
	}
}

func TestRunEvaluationAnalysisFailure(t *testing.T) {
	db := openTestDB(t)
	seedVideo(t, db)
	seedEvaluation(t, db, "eval-1", "video-1", models.EvaluationStatusQueued)

	transcriber := &fakeTranscriber{result: &TranscriptionResult{
		TranscriptText: "[00:00:00] Speaker A: hi", WordCount: 1, SpeakerCount: 1, DurationSeconds: 60,
	}}
	p := newTestPipeline(db, transcriber, &fakeAnalyzer{err: errors.New("model overloaded")})
	p.RunEvaluation(context.Background(), "eval-1")

	e, _ := models.GetEvaluationByID(db, "eval-1")
	if e.Status != models.EvaluationStatusFailed {
		t.Fatalf("status = %s", e.Status)
	}
	msg, _ := e.Metrics["error"].(string)
	if !strings.HasPrefix(msg, "Analysis failed: ") {
		t.Errorf("error = %q", msg)
	}
	// The transcript from the committed stage survives the failure.
	if e.TranscriptID == "" {
		t.Error("transcript link lost on analysis failure")
	}
	if _, err := models.GetTranscriptByVideoID(db, "video-1"); err != nil {
		t.Errorf("transcript row missing: %v", err)
	}
}

type panickingAnalyzer struct {
	fakeAnalyzer
}

func (p *panickingAnalyzer) Analyze(ctx context.Context, transcript, instructorName string) (*AnalysisResult, error) {
	panic("nil report template")
}

func TestRunEvaluationPanicRecorded(t *testing.T) {
	db := openTestDB(t)
	seedVideo(t, db)
	seedEvaluation(t, db, "eval-1", "video-1", models.EvaluationStatusQueued)

	transcriber := &fakeTranscriber{result: &TranscriptionResult{
		TranscriptText: "[00:00:00] Speaker A: hi", WordCount: 1, SpeakerCount: 1, DurationSeconds: 60,
	}}
	p := newTestPipeline(db, transcriber, &panickingAnalyzer{})
	p.RunEvaluation(context.Background(), "eval-1")

	e, _ := models.GetEvaluationByID(db, "eval-1")
	if e.Status != models.EvaluationStatusFailed {
		t.Fatalf("status = %s", e.Status)
	}
	// A panic message is stored as-is, without a stage prefix.
	if msg, _ := e.Metrics["error"].(string); msg != "nil report template" {
		t.Errorf("error = %q", msg)
	}
}

func TestRunEvaluationUnknownID(t *testing.T) {
	db := openTestDB(t)
	transcriber := &fakeTranscriber{}
	p := newTestPipeline(db, transcriber, &fakeAnalyzer{})

	// Must not panic and must not touch the gateways.
	p.RunEvaluation(context.Background(), "missing")
	if transcriber.calls != 0 {
		t.Error("transcriber called for unknown evaluation")
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"CoachingAgent-server/logger"
	"CoachingAgent-server/models"
)

// Pipeline runs the background stages for evaluations and comparisons.
// Stage failures are recorded on the row and never returned to the task
// handler; a failed row is the error report.
type Pipeline struct {
	db          *gorm.DB
	store       AssetStore
	transcriber TranscriptionGateway
	analyzer    AnalysisGateway
	log         *logger.Logger
}

func NewPipeline(db *gorm.DB, store AssetStore, transcriber TranscriptionGateway, analyzer AnalysisGateway, log *logger.Logger) *Pipeline {
	return &Pipeline{
		db:          db,
		store:       store,
		transcriber: transcriber,
		analyzer:    analyzer,
		log:         log.WithModule("pipeline"),
	}
}

// RunEvaluation executes the transcription and analysis stages for one
// evaluation. The row is committed at every stage boundary so pollers
// always see the current stage.
func (p *Pipeline) RunEvaluation(ctx context.Context, evaluationID string) {
	log := p.log.WithField("evaluation_id", evaluationID)

	e, err := models.GetEvaluationByID(p.db, evaluationID)
	if err != nil {
		log.WithError(err).Error("evaluation not found, dropping task")
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("evaluation pipeline panic: %v", r)
			p.failEvaluation(e, log, fmt.Sprintf("%v", r))
		}
	}()

	video, err := models.GetVideoByID(p.db, e.VideoID)
	if err != nil {
		p.failEvaluation(e, log, "Video not found")
		return
	}

	now := time.Now().UTC()
	if err := e.Transition(p.db, models.EvaluationStatusTranscribing, map[string]interface{}{
		"processing_started_at": now,
	}); err != nil {
		log.WithError(err).Error("cannot start evaluation")
		return
	}
	e.ProcessingStartedAt = &now

	transcript, err := p.transcribe(ctx, e, video)
	if err != nil {
		p.failEvaluation(e, log, fmt.Sprintf("Transcription failed: %v", err))
		return
	}
	log.WithField("transcript_id", transcript.ID).Info("transcription stage complete")

	if err := e.Transition(p.db, models.EvaluationStatusAnalyzing, nil); err != nil {
		log.WithError(err).Error("cannot advance to analyzing")
		return
	}

	if err := p.analyze(ctx, e, transcript); err != nil {
		p.failEvaluation(e, log, fmt.Sprintf("Analysis failed: %v", err))
		return
	}

	completed := time.Now().UTC()
	if err := e.Transition(p.db, models.EvaluationStatusCompleted, map[string]interface{}{
		"processing_completed_at": completed,
	}); err != nil {
		log.WithError(err).Error("cannot complete evaluation")
		return
	}
	log.Info("evaluation completed")
}

// transcribe resolves the video URL, calls the transcription gateway and
// commits the transcript, the video duration and the evaluation link in
// one transaction.
func (p *Pipeline) transcribe(ctx context.Context, e *models.Evaluation, video *models.Video) (*models.Transcript, error) {
	mediaURL, err := p.store.ResolveURL(ctx, video.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("resolve media url: %w", err)
	}

	result, err := p.transcriber.Transcribe(ctx, mediaURL)
	if err != nil {
		return nil, err
	}
	if result.TranscriptText == "" {
		return nil, errors.New("empty transcript")
	}

	transcript := &models.Transcript{
		ID:                    uuid.NewString(),
		VideoID:               video.ID,
		TranscriptText:        result.TranscriptText,
		WordCount:             result.WordCount,
		SpeakerCount:          result.SpeakerCount,
		ProcessingTimeSeconds: result.ProcessingTimeSeconds,
		ProviderTranscriptID:  result.ProviderTranscriptID,
		Status:                "completed",
		CreatedAt:             time.Now().UTC(),
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transcript).Error; err != nil {
			return err
		}
		if err := video.MarkTranscribed(tx, result.DurationSeconds); err != nil {
			return err
		}
		return tx.Model(e).Update("transcript_id", transcript.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("persist transcript: %w", err)
	}
	e.TranscriptID = transcript.ID
	return transcript, nil
}

// analyze calls the analysis gateway, parses the returned report and
// persists the report, metrics and themes on the evaluation.
func (p *Pipeline) analyze(ctx context.Context, e *models.Evaluation, transcript *models.Transcript) error {
	instructorName := "the instructor"
	if instructor, err := models.GetInstructorByID(p.db, e.InstructorID); err == nil && instructor.DisplayName != "" {
		instructorName = instructor.DisplayName
	}

	result, err := p.analyzer.Analyze(ctx, transcript.TranscriptText, instructorName)
	if err != nil {
		return err
	}
	if result.ReportMarkdown == "" {
		return errors.New("empty report")
	}

	metrics := models.MetricSet{}
	for key, value := range ExtractMetrics(result.ReportMarkdown) {
		metrics[string(key)] = value
	}
	metrics["analysis_input_tokens"] = result.InputTokens
	metrics["analysis_output_tokens"] = result.OutputTokens
	metrics["analysis_processing_seconds"] = result.ProcessingTimeSeconds
	metrics["analysis_model"] = result.Model

	strengths := ExtractSections(result.ReportMarkdown, "Strengths to Build On")
	growth := ExtractSections(result.ReportMarkdown, "Growth Opportunities")

	return p.db.Model(e).Updates(map[string]interface{}{
		"report_markdown":      result.ReportMarkdown,
		"metrics":              metrics,
		"strengths":            strengths,
		"growth_opportunities": growth,
		"updated_at":           time.Now().UTC(),
	}).Error
}

// failEvaluation records the failure on the row. A failure while
// recording the failure only gets logged; the row keeps its last state.
func (p *Pipeline) failEvaluation(e *models.Evaluation, log *logrus.Entry, message string) {
	log.WithField("reason", message).Warn("evaluation failed")
	if err := e.Fail(p.db, message); err != nil {
		log.WithError(err).Error("cannot record evaluation failure")
	}
}

package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Evaluation statuses. Progression is strictly forward:
// queued → transcribing → analyzing → completed, with failed reachable
// from any non-terminal state. completed and failed are terminal.
const (
	EvaluationStatusQueued       = "queued"
	EvaluationStatusTranscribing = "transcribing"
	EvaluationStatusAnalyzing    = "analyzing"
	EvaluationStatusCompleted    = "completed"
	EvaluationStatusFailed       = "failed"
)

type Evaluation struct {
	ID                    string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	VideoID               string     `gorm:"type:varchar(64);index" json:"videoId"`
	InstructorID          string     `gorm:"type:varchar(64);index" json:"instructorId"`
	TranscriptID          string     `gorm:"type:varchar(64)" json:"transcriptId,omitempty"`
	Status                string     `gorm:"type:varchar(32)" json:"status"`
	ReportMarkdown        string     `gorm:"type:longtext" json:"reportMarkdown,omitempty"`
	Metrics               MetricSet  `gorm:"type:json" json:"metrics,omitempty"`
	Strengths             ThemeList  `gorm:"type:json" json:"strengths,omitempty"`
	GrowthOpportunities   ThemeList  `gorm:"type:json" json:"growthOpportunities,omitempty"`
	ProcessingStartedAt   *time.Time `json:"processingStartedAt,omitempty"`
	ProcessingCompletedAt *time.Time `json:"processingCompletedAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

func (Evaluation) TableName() string {
	return "evaluation"
}

// EvaluationCanTransition reports whether a status write from → to is
// legal. Regressions and skipped stages are never legal.
func EvaluationCanTransition(from, to string) bool {
	if from == EvaluationStatusCompleted || from == EvaluationStatusFailed {
		return false
	}
	switch to {
	case EvaluationStatusFailed:
		return true
	case EvaluationStatusTranscribing:
		return from == EvaluationStatusQueued
	case EvaluationStatusAnalyzing:
		return from == EvaluationStatusTranscribing
	case EvaluationStatusCompleted:
		return from == EvaluationStatusAnalyzing
	}
	return false
}

// Transition validates the status change, writes it together with any
// extra column updates, and mirrors the change on the receiver.
func (e *Evaluation) Transition(db *gorm.DB, status string, extra map[string]interface{}) error {
	if !EvaluationCanTransition(e.Status, status) {
		return fmt.Errorf("invalid evaluation transition: %s -> %s", e.Status, status)
	}
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	if err := db.Model(e).Updates(updates).Error; err != nil {
		return err
	}
	e.Status = status
	return nil
}

// Fail marks the evaluation failed and stores the error message in the
// metrics column. It is deliberately not guarded by the transition table:
// calling it twice must leave the row failed with the last message and
// never return a transition error.
func (e *Evaluation) Fail(db *gorm.DB, message string) error {
	now := time.Now().UTC()
	metrics := MetricSet{"error": message}
	err := db.Model(e).Updates(map[string]interface{}{
		"status":                  EvaluationStatusFailed,
		"metrics":                 metrics,
		"processing_completed_at": now,
		"updated_at":              now,
	}).Error
	if err != nil {
		return err
	}
	e.Status = EvaluationStatusFailed
	e.Metrics = metrics
	e.ProcessingCompletedAt = &now
	return nil
}

// HasTranscript is derived: true once the transcript link is set or the
// status has advanced past transcribing.
func (e *Evaluation) HasTranscript() bool {
	return e.TranscriptID != "" ||
		e.Status == EvaluationStatusAnalyzing ||
		e.Status == EvaluationStatusCompleted
}

func (e *Evaluation) HasReport() bool {
	return e.ReportMarkdown != ""
}

func GetEvaluationByID(db *gorm.DB, evaluationID string) (*Evaluation, error) {
	var e Evaluation
	if err := db.First(&e, "id = ?", evaluationID).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// GetActiveEvaluationByVideoID returns the non-failed evaluation for a
// video, if one exists. At most one may exist at a time; the create
// endpoint enforces this before inserting.
func GetActiveEvaluationByVideoID(db *gorm.DB, videoID string) (*Evaluation, error) {
	var e Evaluation
	err := db.First(&e, "video_id = ? AND status <> ?", videoID, EvaluationStatusFailed).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func ListEvaluationsByInstructor(db *gorm.DB, instructorID, status string, offset, limit int) ([]Evaluation, int64, error) {
	query := db.Model(&Evaluation{}).Where("instructor_id = ?", instructorID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Evaluation
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

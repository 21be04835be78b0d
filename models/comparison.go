package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Comparison statuses. draft → queued happens only through the explicit
// start action; the pipeline drives queued → analyzing → completed.
const (
	ComparisonStatusDraft     = "draft"
	ComparisonStatusQueued    = "queued"
	ComparisonStatusAnalyzing = "analyzing"
	ComparisonStatusCompleted = "completed"
	ComparisonStatusFailed    = "failed"
)

const (
	ComparisonTypePersonalPerformance = "personal_performance"
	ComparisonTypeClassDelivery       = "class_delivery"
	ComparisonTypeProgramEvaluation   = "program_evaluation"
)

// A comparison links between 2 and 10 completed evaluations.
const (
	ComparisonMinEvaluations = 2
	ComparisonMaxEvaluations = 10
)

func ValidComparisonType(t string) bool {
	switch t {
	case ComparisonTypePersonalPerformance, ComparisonTypeClassDelivery, ComparisonTypeProgramEvaluation:
		return true
	}
	return false
}

type Comparison struct {
	ID                    string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title                 string     `json:"title"`
	ComparisonType        string     `gorm:"type:varchar(32)" json:"comparisonType"`
	Status                string     `gorm:"type:varchar(32)" json:"status"`
	OrganizationID        string     `gorm:"type:varchar(64);index" json:"organizationId"`
	CreatedByID           string     `gorm:"type:varchar(64)" json:"createdById"`
	ClassTag              string     `gorm:"type:varchar(128)" json:"classTag,omitempty"`
	AnonymizeInstructors  bool       `json:"anonymizeInstructors"`
	ReportMarkdown        string     `gorm:"type:longtext" json:"reportMarkdown,omitempty"`
	Metrics               MetricSet  `gorm:"type:json" json:"metrics,omitempty"`
	Strengths             ThemeList  `gorm:"type:json" json:"strengths,omitempty"`
	GrowthOpportunities   ThemeList  `gorm:"type:json" json:"growthOpportunities,omitempty"`
	ProcessingStartedAt   *time.Time `json:"processingStartedAt,omitempty"`
	ProcessingCompletedAt *time.Time `json:"processingCompletedAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

func (Comparison) TableName() string {
	return "comparison"
}

// ComparisonEvaluation orders and labels the evaluations included in one
// comparison. display_order is 0-based and defines both presentation and
// analysis order.
type ComparisonEvaluation struct {
	ID           string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ComparisonID string `gorm:"type:varchar(64);index" json:"comparisonId"`
	EvaluationID string `gorm:"type:varchar(64);index" json:"evaluationId"`
	DisplayOrder int    `json:"displayOrder"`
	Label        string `json:"label,omitempty"`
}

func (ComparisonEvaluation) TableName() string {
	return "comparison_evaluation"
}

func ComparisonCanTransition(from, to string) bool {
	if from == ComparisonStatusCompleted || from == ComparisonStatusFailed {
		return false
	}
	switch to {
	case ComparisonStatusFailed:
		return true
	case ComparisonStatusQueued:
		return from == ComparisonStatusDraft
	case ComparisonStatusAnalyzing:
		return from == ComparisonStatusQueued
	case ComparisonStatusCompleted:
		return from == ComparisonStatusAnalyzing
	}
	return false
}

func (c *Comparison) Transition(db *gorm.DB, status string, extra map[string]interface{}) error {
	if !ComparisonCanTransition(c.Status, status) {
		return fmt.Errorf("invalid comparison transition: %s -> %s", c.Status, status)
	}
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	if err := db.Model(c).Updates(updates).Error; err != nil {
		return err
	}
	c.Status = status
	return nil
}

// Fail mirrors Evaluation.Fail: unguarded, idempotent, last message wins.
func (c *Comparison) Fail(db *gorm.DB, message string) error {
	now := time.Now().UTC()
	metrics := MetricSet{"error": message}
	err := db.Model(c).Updates(map[string]interface{}{
		"status":                  ComparisonStatusFailed,
		"metrics":                 metrics,
		"processing_completed_at": now,
		"updated_at":              now,
	}).Error
	if err != nil {
		return err
	}
	c.Status = ComparisonStatusFailed
	c.Metrics = metrics
	c.ProcessingCompletedAt = &now
	return nil
}

func GetComparisonByID(db *gorm.DB, comparisonID string) (*Comparison, error) {
	var c Comparison
	if err := db.First(&c, "id = ?", comparisonID).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetComparisonLinks returns the join rows ordered by display_order.
func GetComparisonLinks(db *gorm.DB, comparisonID string) ([]ComparisonEvaluation, error) {
	var links []ComparisonEvaluation
	err := db.Where("comparison_id = ?", comparisonID).
		Order("display_order ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func ListComparisons(db *gorm.DB, comparisonType, status string, offset, limit int) ([]Comparison, int64, error) {
	query := db.Model(&Comparison{})
	if comparisonType != "" {
		query = query.Where("comparison_type = ?", comparisonType)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Comparison
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

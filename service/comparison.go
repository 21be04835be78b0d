package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"CoachingAgent-server/models"
)

// RunComparison executes the analysis stage for one comparison. All
// linked evaluations are validated before the row leaves queued, so a
// validation failure never strands a half-processed comparison.
func (p *Pipeline) RunComparison(ctx context.Context, comparisonID string) {
	log := p.log.WithField("comparison_id", comparisonID)

	c, err := models.GetComparisonByID(p.db, comparisonID)
	if err != nil {
		log.WithError(err).Error("comparison not found, dropping task")
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("comparison pipeline panic: %v", r)
			p.failComparison(c, log, fmt.Sprintf("%v", r))
		}
	}()

	units, err := p.assembleUnits(c)
	if err != nil {
		p.failComparison(c, log, err.Error())
		return
	}

	now := time.Now().UTC()
	if err := c.Transition(p.db, models.ComparisonStatusAnalyzing, map[string]interface{}{
		"processing_started_at": now,
	}); err != nil {
		log.WithError(err).Error("cannot start comparison")
		return
	}
	c.ProcessingStartedAt = &now

	result, err := p.analyzer.AnalyzeComparison(ctx, units, c.ComparisonType, c.ClassTag)
	if err != nil {
		p.failComparison(c, log, fmt.Sprintf("Analysis failed: %v", err))
		return
	}
	if result.ReportMarkdown == "" {
		p.failComparison(c, log, "Analysis failed: empty report")
		return
	}

	metrics := AggregateComparisonMetrics(units)
	metrics["analysis_input_tokens"] = result.InputTokens
	metrics["analysis_output_tokens"] = result.OutputTokens
	metrics["analysis_processing_seconds"] = result.ProcessingTimeSeconds
	metrics["analysis_model"] = result.Model

	strengths := ExtractSectionsFirstOf(result.ReportMarkdown,
		"Cross-Session Strengths", "Strengths Across the Program", "Best Practices to Share")
	growth := ExtractSectionsFirstOf(result.ReportMarkdown,
		"Cross-Session Growth Opportunities", "Areas for Improvement", "Common Delivery Gaps")

	if err := p.db.Model(c).Updates(map[string]interface{}{
		"report_markdown":      result.ReportMarkdown,
		"metrics":              metrics,
		"strengths":            strengths,
		"growth_opportunities": growth,
		"updated_at":           time.Now().UTC(),
	}).Error; err != nil {
		p.failComparison(c, log, fmt.Sprintf("Analysis failed: persist report: %v", err))
		return
	}

	completed := time.Now().UTC()
	if err := c.Transition(p.db, models.ComparisonStatusCompleted, map[string]interface{}{
		"processing_completed_at": completed,
	}); err != nil {
		log.WithError(err).Error("cannot complete comparison")
		return
	}
	log.WithField("sessions", len(units)).Info("comparison completed")
}

// assembleUnits loads the linked evaluations in display order and turns
// each into a ComparisonUnit. Every link must point at a completed
// evaluation with a report; the first violation aborts the comparison.
func (p *Pipeline) assembleUnits(c *models.Comparison) ([]ComparisonUnit, error) {
	links, err := models.GetComparisonLinks(p.db, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load comparison links: %w", err)
	}
	if len(links) < models.ComparisonMinEvaluations {
		return nil, fmt.Errorf("Comparison requires at least %d evaluations, found %d",
			models.ComparisonMinEvaluations, len(links))
	}

	units := make([]ComparisonUnit, 0, len(links))
	for _, link := range links {
		e, err := models.GetEvaluationByID(p.db, link.EvaluationID)
		if err != nil {
			return nil, fmt.Errorf("Evaluation %s not found", link.EvaluationID)
		}
		if e.Status != models.EvaluationStatusCompleted {
			return nil, fmt.Errorf("Evaluation %s is not completed (status: %s)", e.ID, e.Status)
		}
		if e.ReportMarkdown == "" {
			return nil, fmt.Errorf("Evaluation %s has no report", e.ID)
		}

		// Session numbering follows display_order, not loop position, so
		// gapped orders keep their numbers.
		label := link.Label
		if label == "" {
			label = fmt.Sprintf("Session %d", link.DisplayOrder+1)
		}

		date := "Not specified"
		instructorName := "Unknown Instructor"
		if video, err := models.GetVideoByID(p.db, e.VideoID); err == nil {
			date = video.UploadedAt.Format("2006-01-02")
		}
		if c.AnonymizeInstructors {
			instructorName = fmt.Sprintf("Instructor %d", link.DisplayOrder+1)
		} else if instructor, err := models.GetInstructorByID(p.db, e.InstructorID); err == nil && instructor.DisplayName != "" {
			instructorName = instructor.DisplayName
		}

		units = append(units, ComparisonUnit{
			Label:          label,
			Date:           date,
			InstructorName: instructorName,
			ReportMarkdown: e.ReportMarkdown,
			Metrics:        e.Metrics,
		})
	}
	return units, nil
}

func (p *Pipeline) failComparison(c *models.Comparison, log *logrus.Entry, message string) {
	log.WithField("reason", message).Warn("comparison failed")
	if err := c.Fail(p.db, message); err != nil {
		log.WithError(err).Error("cannot record comparison failure")
	}
}

package service

import (
	"fmt"
	"strings"

	"CoachingAgent-server/models"
)

const coachingSystemPrompt = `You are an expert coaching consultant who reviews recorded coaching and teaching sessions. You give candid, specific, evidence-based feedback grounded in what the instructor actually said. You always cite transcript timestamps in [HH:MM:SS] form when referring to specific moments.`

const comparisonSystemPrompt = `You are an expert coaching consultant who reviews multiple coaching session reports together and identifies patterns across them. You compare sessions fairly, note trends over time, and ground every observation in the supplied reports.`

func buildAnalysisPrompt(transcript, instructorName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following coaching session transcript and produce a coaching report for %s.\n\n", instructorName)
	b.WriteString(`Structure the report exactly as follows, in Markdown:

# Coaching Report

## Session Overview
A short paragraph summarizing the session.

## Strengths to Build On
3-5 items. Format each item as:
**Short strength title**
One paragraph of evidence with at least one [HH:MM:SS] timestamp.

## Growth Opportunities
3-5 items in the same format as the strengths, each with a concrete suggestion.

## Metrics Snapshot
A Markdown table with exactly these rows and numeric values:
| Metric | Value |
|---|---|
| Speaking Pace (words per minute) | <number> |
| Strategic Pauses (per 10 minutes) | <number> |
| Filler Words (per minute) | <number> |
| Questions Asked (per 5 minutes) | <number> |
| Tangent Time | <number>% |

## Recommended Next Steps
A short ordered list.

Transcript:

`)
	b.WriteString(transcript)
	return b.String()
}

func buildComparisonPrompt(units []ComparisonUnit, comparisonType, classTag string) (string, error) {
	var intro, strengthsTitle, growthTitle string

	switch comparisonType {
	case models.ComparisonTypePersonalPerformance:
		intro = "Compare the following coaching sessions delivered by the same instructor over time. Focus on how their delivery has evolved from the earliest session to the most recent."
		strengthsTitle = "Cross-Session Strengths"
		growthTitle = "Cross-Session Growth Opportunities"
	case models.ComparisonTypeProgramEvaluation:
		intro = "Evaluate the following coaching sessions as a program. Assess overall program quality and consistency across sessions and instructors."
		strengthsTitle = "Strengths Across the Program"
		growthTitle = "Areas for Improvement"
	case models.ComparisonTypeClassDelivery:
		intro = "Compare how different instructors delivered the same class. Identify which delivery practices worked best and which gaps appear across instructors."
		if classTag != "" {
			intro += fmt.Sprintf(" The class being compared is %q.", classTag)
		}
		strengthsTitle = "Best Practices to Share"
		growthTitle = "Common Delivery Gaps"
	default:
		return "", fmt.Errorf("unknown comparison type %q", comparisonType)
	}

	var b strings.Builder
	b.WriteString(intro)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, `Structure the report exactly as follows, in Markdown:

# Comparison Report

## Overview
A short paragraph on the set of sessions as a whole.

## %s
3-5 items. Format each item as:
**Short title**
One paragraph of evidence naming the sessions it draws on.

## %s
3-5 items in the same format, each with a concrete suggestion.

## Session-by-Session Notes
One short paragraph per session, in the order given.

Sessions to compare:

`, strengthsTitle, growthTitle)

	for _, u := range units {
		fmt.Fprintf(&b, "### %s\nDate: %s\nInstructor: %s\nMetrics: %s\n\nReport:\n\n%s\n\n---\n\n", u.Label, u.Date, u.InstructorName, formatMetrics(u.Metrics), u.ReportMarkdown)
	}
	return b.String(), nil
}

// formatMetrics renders the tracked metrics of one session on a single
// line for the comparison prompt. Missing metrics are skipped.
func formatMetrics(m models.MetricSet) string {
	if len(m) == 0 {
		return "not available"
	}
	parts := make([]string, 0, len(models.TrackedMetrics()))
	for _, key := range models.TrackedMetrics() {
		if v, ok := m.Float(string(key)); ok {
			parts = append(parts, fmt.Sprintf("%s=%.1f", key, v))
		}
	}
	if len(parts) == 0 {
		return "not available"
	}
	return strings.Join(parts, ", ")
}

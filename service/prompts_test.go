package service

import (
	"strings"
	"testing"

	"CoachingAgent-server/models"
)

func TestBuildAnalysisPromptNamesInstructor(t *testing.T) {
	prompt := buildAnalysisPrompt("[00:00:00] Speaker A: hello", "Dana Reeves")
	if !strings.Contains(prompt, "Dana Reeves") {
		t.Error("instructor name missing")
	}
	for _, section := range []string{
		"# Coaching Report",
		"## Strengths to Build On",
		"## Growth Opportunities",
		"## Metrics Snapshot",
	} {
		if !strings.Contains(prompt, section) {
			t.Errorf("section %q missing from prompt", section)
		}
	}
	if !strings.Contains(prompt, "[00:00:00] Speaker A: hello") {
		t.Error("transcript missing")
	}
}

func TestBuildComparisonPromptSectionTitles(t *testing.T) {
	units := []ComparisonUnit{
		{Label: "Session 1", Date: "2026-01-05", InstructorName: "Dana Reeves", ReportMarkdown: "# R1", Metrics: models.MetricSet{"wpm": 140.0}},
		{Label: "Session 2", Date: "2026-02-05", InstructorName: "Dana Reeves", ReportMarkdown: "# R2"},
	}

	cases := []struct {
		comparisonType string
		wantSections   []string
	}{
		{models.ComparisonTypePersonalPerformance, []string{"Cross-Session Strengths", "Cross-Session Growth Opportunities"}},
		{models.ComparisonTypeProgramEvaluation, []string{"Strengths Across the Program", "Areas for Improvement"}},
		{models.ComparisonTypeClassDelivery, []string{"Best Practices to Share", "Common Delivery Gaps"}},
	}
	for _, tc := range cases {
		prompt, err := buildComparisonPrompt(units, tc.comparisonType, "")
		if err != nil {
			t.Fatalf("%s: %v", tc.comparisonType, err)
		}
		for _, section := range tc.wantSections {
			if !strings.Contains(prompt, section) {
				t.Errorf("%s: section %q missing", tc.comparisonType, section)
			}
		}
		if !strings.Contains(prompt, "wpm=140.0") {
			t.Errorf("%s: metrics line missing", tc.comparisonType)
		}
		if !strings.Contains(prompt, "# R2") {
			t.Errorf("%s: session report missing", tc.comparisonType)
		}
	}
}

func TestBuildComparisonPromptClassTag(t *testing.T) {
	prompt, err := buildComparisonPrompt(nil, models.ComparisonTypeClassDelivery, "Intro to Sales")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, `"Intro to Sales"`) {
		t.Error("class tag missing from class_delivery prompt")
	}

	prompt, err = buildComparisonPrompt(nil, models.ComparisonTypePersonalPerformance, "Intro to Sales")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(prompt, "Intro to Sales") {
		t.Error("class tag leaked into personal_performance prompt")
	}
}

func TestBuildComparisonPromptUnknownType(t *testing.T) {
	if _, err := buildComparisonPrompt(nil, "cohort_review", ""); err == nil {
		t.Fatal("unknown type accepted")
	}
}

func TestFormatMetricsEmpty(t *testing.T) {
	if got := formatMetrics(nil); got != "not available" {
		t.Errorf("got %q", got)
	}
	if got := formatMetrics(models.MetricSet{"analysis_model": "x"}); got != "not available" {
		t.Errorf("non-numeric-only set: got %q", got)
	}
}

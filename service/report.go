package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"CoachingAgent-server/models"
)

// Report parsing is best-effort by design: the analysis gateway returns
// free-form markdown, and a metric or section that cannot be found is
// simply absent from the result, never an error. The full report text is
// always persisted alongside whatever was extracted.

const maxThemeTextLen = 500

var metricPatterns = []struct {
	key models.MetricKey
	re  *regexp.Regexp
}{
	{models.MetricWPM, regexp.MustCompile(`Speaking Pace.*?\|\s*([0-9]+(?:\.[0-9]+)?)`)},
	{models.MetricPausesPer10Min, regexp.MustCompile(`Strategic Pauses.*?\|\s*([0-9]+(?:\.[0-9]+)?)`)},
	{models.MetricFillerWordsPerMin, regexp.MustCompile(`Filler Words.*?\|\s*([0-9]+(?:\.[0-9]+)?)`)},
	{models.MetricQuestionsPer5Min, regexp.MustCompile(`Questions.*?\|\s*([0-9]+(?:\.[0-9]+)?)`)},
	{models.MetricTangentPercentage, regexp.MustCompile(`Tangent.*?\|\s*([0-9]+(?:\.[0-9]+)?)%?`)},
}

// ExtractMetrics scans the metrics table of a coaching report. Metrics
// that are not found are absent from the result.
func ExtractMetrics(report string) map[models.MetricKey]float64 {
	out := make(map[models.MetricKey]float64)
	for _, p := range metricPatterns {
		m := p.re.FindStringSubmatch(report)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		out[p.key] = v
	}
	return out
}

var (
	boldHeadingRe = regexp.MustCompile(`(?m)^[ \t]*(?:- )?\*\*(.+?)\*\*[ \t]*$`)
	timestampRe   = regexp.MustCompile(`\[(\d{2}:\d{2}:\d{2})\]`)
)

// ExtractSections locates the ##-level heading matching sectionTitle,
// captures content until the next ## heading, and splits that block on
// bold sub-headings. Bodies are capped at maxThemeTextLen; a bracketed
// [HH:MM:SS] token inside a body is lifted out as the item's timestamp.
// A missing section yields an empty list.
func ExtractSections(report, sectionTitle string) models.ThemeList {
	section, ok := sectionBody(report, sectionTitle)
	if !ok {
		return nil
	}

	headings := boldHeadingRe.FindAllStringSubmatchIndex(section, -1)
	var items models.ThemeList
	for i, h := range headings {
		title := strings.TrimSpace(section[h[2]:h[3]])
		bodyEnd := len(section)
		if i+1 < len(headings) {
			bodyEnd = headings[i+1][0]
		}
		body := strings.TrimSpace(section[h[1]:bodyEnd])

		timestamp := ""
		if ts := timestampRe.FindStringSubmatch(body); ts != nil {
			timestamp = ts[1]
		}

		items = append(items, models.Theme{
			Title:     title,
			Text:      truncate(body, maxThemeTextLen),
			Timestamp: timestamp,
		})
	}
	return items
}

// ExtractSectionsFirstOf tries each title in order and returns the first
// non-empty result. Comparison reports title their sections differently
// per comparison type, so callers pass the variants in fallback order.
func ExtractSectionsFirstOf(report string, titles ...string) models.ThemeList {
	for _, title := range titles {
		if items := ExtractSections(report, title); len(items) > 0 {
			return items
		}
	}
	return nil
}

func sectionBody(report, title string) (string, bool) {
	heading := "## " + title
	rest := report
	for {
		idx := strings.Index(rest, heading)
		if idx == -1 {
			return "", false
		}
		after := rest[idx+len(heading):]
		nl := strings.Index(after, "\n")
		if nl == -1 {
			return "", false
		}
		// The heading must end its line, otherwise this was a longer
		// title with the searched one as a prefix; keep looking.
		if strings.TrimSpace(after[:nl]) != "" {
			rest = after
			continue
		}
		body := after[nl+1:]
		if end := strings.Index(body, "\n## "); end != -1 {
			body = body[:end]
		}
		return body, true
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// AggregateComparisonMetrics computes per-metric average, minimum,
// maximum and trend across the ordered analysis units. The trend
// compares the mean of the first half of the values to the mean of the
// second half; a relative change of more than 5% in either direction is
// directional, anything inside that band is stable.
func AggregateComparisonMetrics(units []ComparisonUnit) models.MetricSet {
	metrics := models.MetricSet{
		"session_count":        len(units),
		"comparison_generated": true,
	}

	for _, key := range models.TrackedMetrics() {
		var values []float64
		for _, u := range units {
			if v, ok := u.Metrics.Float(string(key)); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}

		metrics[string(key)+"_avg"] = round1(mean(values))
		metrics[string(key)+"_min"] = minOf(values)
		metrics[string(key)+"_max"] = maxOf(values)

		if len(values) >= 2 {
			mid := len(values) / 2
			first := mean(values[:mid])
			second := mean(values[mid:])
			trend := "stable"
			switch {
			case second > first*1.05:
				trend = "increasing"
			case second < first*0.95:
				trend = "decreasing"
			}
			metrics[string(key)+"_trend"] = trend
		}
	}
	return metrics
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

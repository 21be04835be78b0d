package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// MetricKey identifies one of the tracked coaching metrics.
type MetricKey string

const (
	MetricWPM               MetricKey = "wpm"
	MetricPausesPer10Min    MetricKey = "pauses_per_10min"
	MetricFillerWordsPerMin MetricKey = "filler_words_per_min"
	MetricQuestionsPer5Min  MetricKey = "questions_per_5min"
	MetricTangentPercentage MetricKey = "tangent_percentage"
)

// TrackedMetrics returns the coaching metrics in their canonical order.
func TrackedMetrics() []MetricKey {
	return []MetricKey{
		MetricWPM,
		MetricPausesPer10Min,
		MetricFillerWordsPerMin,
		MetricQuestionsPer5Min,
		MetricTangentPercentage,
	}
}

// MetricSet is the JSON metrics column. Coaching metrics are numeric;
// gateway usage metadata (model name, token counts) and the error string
// written on failure live in the same column, so values stay loose.
type MetricSet map[string]interface{}

// Float returns the numeric value for key, if present.
func (m MetricSet) Float(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func (m MetricSet) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *MetricSet) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch b := value.(type) {
	case []byte:
		return json.Unmarshal(b, m)
	case string:
		return json.Unmarshal([]byte(b), m)
	}
	return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
}

// Theme is a titled, evidenced observation extracted from a report
// (a strength or a growth opportunity).
type Theme struct {
	Title     string `json:"title"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

type ThemeList []Theme

func (t ThemeList) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

func (t *ThemeList) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch b := value.(type) {
	case []byte:
		return json.Unmarshal(b, t)
	case string:
		return json.Unmarshal([]byte(b), t)
	}
	return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
}

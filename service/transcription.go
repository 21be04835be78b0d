package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"CoachingAgent-server/config"
	"CoachingAgent-server/logger"
)

// TranscriptionResult is the structured output of the transcription
// gateway, already formatted into timestamped speaker-labeled lines.
type TranscriptionResult struct {
	TranscriptText        string
	RawText               string
	WordCount             int
	SpeakerCount          int
	DurationSeconds       int
	ProviderTranscriptID  string
	ProcessingTimeSeconds int
}

// TranscriptionGateway turns a fetchable media locator into a transcript.
// Transcribe blocks until the provider finishes; callers run it on a
// worker, never on a request goroutine.
type TranscriptionGateway interface {
	Transcribe(ctx context.Context, mediaURL string) (*TranscriptionResult, error)
}

type transcriptionClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

func NewTranscriptionClient(cfg *config.Config, log *logger.Logger) TranscriptionGateway {
	return &transcriptionClient{
		baseURL: cfg.Transcription.BaseURL,
		apiKey:  cfg.Transcription.APIKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log.WithModule("transcription"),
	}
}

type submitRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
	Punctuate     bool   `json:"punctuate"`
	FormatText    bool   `json:"format_text"`
}

type utterance struct {
	StartMs int    `json:"start"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type transcriptResponse struct {
	ID              string      `json:"id"`
	Status          string      `json:"status"` // queued | processing | completed | error
	Text            string      `json:"text"`
	Utterances      []utterance `json:"utterances"`
	Words           []struct{}  `json:"words"`
	AudioDurationMs int         `json:"audio_duration"`
	WordCount       int         `json:"word_count"`
	Error           string      `json:"error"`
}

// Transcribe submits the media URL, polls until the provider reports a
// terminal status, and formats the utterances. The pipeline enforces no
// timeout of its own, so polling runs until the provider answers or the
// context is cancelled.
func (c *transcriptionClient) Transcribe(ctx context.Context, mediaURL string) (*TranscriptionResult, error) {
	start := time.Now()
	log := c.log.WithField("media_url", mediaURL)
	log.Info("starting transcription")

	body, err := json.Marshal(submitRequest{
		AudioURL:      mediaURL,
		SpeakerLabels: true,
		Punctuate:     true,
		FormatText:    true,
	})
	if err != nil {
		return nil, err
	}

	var submitted transcriptResponse
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/v2/transcript", body, &submitted); err != nil {
		return nil, fmt.Errorf("submit transcription: %w", err)
	}

	final, err := c.pollUntilDone(ctx, submitted.ID)
	if err != nil {
		return nil, err
	}

	lines := formatUtterances(final)
	speakers := map[string]struct{}{}
	for _, u := range final.Utterances {
		speakers[u.Speaker] = struct{}{}
	}
	speakerCount := len(speakers)
	if speakerCount == 0 && final.Text != "" {
		speakerCount = 1
	}

	wordCount := final.WordCount
	if wordCount == 0 {
		wordCount = len(final.Words)
	}

	log.WithField("transcript_id", final.ID).Info("transcription completed")

	return &TranscriptionResult{
		TranscriptText:        lines,
		RawText:               final.Text,
		WordCount:             wordCount,
		SpeakerCount:          speakerCount,
		DurationSeconds:       final.AudioDurationMs / 1000,
		ProviderTranscriptID:  final.ID,
		ProcessingTimeSeconds: int(time.Since(start).Seconds()),
	}, nil
}

func (c *transcriptionClient) pollUntilDone(ctx context.Context, id string) (*transcriptResponse, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(1500 * time.Millisecond):
		}

		var status transcriptResponse
		if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+id, nil, &status); err != nil {
			c.log.WithError(err).Warn("transcription poll failed")
			continue
		}

		switch status.Status {
		case "completed":
			return &status, nil
		case "error":
			return nil, fmt.Errorf("transcription failed: %s", status.Error)
		}
	}
}

// doJSON performs one HTTP call with retry on transient failures. The
// retry here is transport-level only; a terminal provider error is
// returned as-is and ends the pipeline run.
func (c *transcriptionClient) doJSON(ctx context.Context, method, url string, body []byte, target interface{}) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 12 * time.Second

	operation := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error: %s", data)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("request rejected: %s", data))
		}
		if err := json.Unmarshal(data, target); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(bo, ctx))
}

// formatUtterances renders utterances as "[HH:MM:SS] Speaker X: text"
// lines. Without utterances the whole text becomes one line at zero.
func formatUtterances(t *transcriptResponse) string {
	if len(t.Utterances) == 0 {
		if t.Text == "" {
			return ""
		}
		return "[00:00:00] Speaker A: " + t.Text
	}

	var buf bytes.Buffer
	for i, u := range t.Utterances {
		if i > 0 {
			buf.WriteByte('\n')
		}
		total := u.StartMs / 1000
		fmt.Fprintf(&buf, "[%02d:%02d:%02d] Speaker %s: %s",
			total/3600, (total%3600)/60, total%60, u.Speaker, u.Text)
	}
	return buf.String()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"CoachingAgent-server/config"
	"CoachingAgent-server/models"
)

// AnalysisResult carries the raw report and gateway usage metadata. The
// pipelines run the report parser over ReportMarkdown themselves.
type AnalysisResult struct {
	ReportMarkdown        string
	InputTokens           int
	OutputTokens          int
	ProcessingTimeSeconds int
	Model                 string
}

// ComparisonUnit is one ordered session entry assembled by the
// comparison pipeline from a completed evaluation.
type ComparisonUnit struct {
	Label          string
	Date           string
	InstructorName string
	ReportMarkdown string
	Metrics        models.MetricSet
}

// AnalysisGateway produces coaching reports from transcripts or from a
// set of prior evaluation reports. Both calls block until the model
// responds; callers run them on a worker, never on a request goroutine.
type AnalysisGateway interface {
	Analyze(ctx context.Context, transcript, instructorName string) (*AnalysisResult, error)
	AnalyzeComparison(ctx context.Context, units []ComparisonUnit, comparisonType, classTag string) (*AnalysisResult, error)
}

// Comparison reports run longer than single-session reports.
const comparisonMaxTokens = 12000

type analysisClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func NewAnalysisClient(cfg *config.Config) AnalysisGateway {
	clientCfg := openai.DefaultConfig(cfg.Analysis.APIKey)
	if cfg.Analysis.BaseURL != "" {
		clientCfg.BaseURL = cfg.Analysis.BaseURL
	}
	return &analysisClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Analysis.Model,
		maxTokens:   cfg.Analysis.MaxTokens,
		temperature: float32(cfg.Analysis.Temperature),
	}
}

func (c *analysisClient) Analyze(ctx context.Context, transcript, instructorName string) (*AnalysisResult, error) {
	if instructorName == "" {
		instructorName = "the instructor"
	}
	return c.complete(ctx, coachingSystemPrompt, buildAnalysisPrompt(transcript, instructorName), c.maxTokens)
}

func (c *analysisClient) AnalyzeComparison(ctx context.Context, units []ComparisonUnit, comparisonType, classTag string) (*AnalysisResult, error) {
	prompt, err := buildComparisonPrompt(units, comparisonType, classTag)
	if err != nil {
		return nil, err
	}
	return c.complete(ctx, comparisonSystemPrompt, prompt, comparisonMaxTokens)
}

func (c *analysisClient) complete(ctx context.Context, system, user string, maxTokens int) (*AnalysisResult, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	return &AnalysisResult{
		ReportMarkdown:        resp.Choices[0].Message.Content,
		InputTokens:           resp.Usage.PromptTokens,
		OutputTokens:          resp.Usage.CompletionTokens,
		ProcessingTimeSeconds: int(time.Since(start).Seconds()),
		Model:                 c.model,
	}, nil
}

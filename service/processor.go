package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"CoachingAgent-server/config"
	"CoachingAgent-server/logger"
)

// Processor consumes pipeline tasks from Redis. Handlers return nil even
// when the pipeline fails: the failure already lives on the evaluation or
// comparison row and a requeue would only fail the same way again.
type Processor struct {
	cfg      *config.Config
	pipeline *Pipeline
	log      *logger.Logger
}

func NewProcessor(cfg *config.Config, pipeline *Pipeline, log *logger.Logger) *Processor {
	return &Processor{
		cfg:      cfg,
		pipeline: pipeline,
		log:      log.WithModule("processor"),
	}
}

// Start runs the asynq server on a background goroutine.
func (p *Processor) Start(concurrency int) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     p.cfg.Redis.Addr,
			Password: p.cfg.Redis.Password,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEvaluationRun, p.handleEvaluationRun)
	mux.HandleFunc(TypeComparisonRun, p.handleComparisonRun)

	p.log.WithField("concurrency", concurrency).Info("starting task processor")
	go func() {
		if err := srv.Run(mux); err != nil {
			p.log.WithError(err).Fatal("task processor stopped")
		}
	}()
}

func (p *Processor) handleEvaluationRun(ctx context.Context, t *asynq.Task) error {
	id, err := decodeRunPayload(t)
	if err != nil {
		return err
	}
	p.pipeline.RunEvaluation(ctx, id)
	return nil
}

func (p *Processor) handleComparisonRun(ctx context.Context, t *asynq.Task) error {
	id, err := decodeRunPayload(t)
	if err != nil {
		return err
	}
	p.pipeline.RunComparison(ctx, id)
	return nil
}

func decodeRunPayload(t *asynq.Task) (string, error) {
	var payload RunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return "", fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.ID == "" {
		return "", fmt.Errorf("empty task id: %w", asynq.SkipRetry)
	}
	return payload.ID, nil
}

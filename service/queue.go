package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"CoachingAgent-server/config"
)

const (
	TypeEvaluationRun = "evaluation:run"
	TypeComparisonRun = "comparison:run"
)

type RunPayload struct {
	ID string `json:"id"`
}

// Enqueuer is what the HTTP handlers need from the queue. Pipelines do
// not retry on failure, so every task is enqueued with MaxRetry(0); a
// stage failure is recorded on the row, not replayed.
type Enqueuer interface {
	EnqueueEvaluationRun(evaluationID string) error
	EnqueueComparisonRun(comparisonID string) error
}

type Queue struct {
	client *asynq.Client
}

func NewQueue(cfg *config.Config) *Queue {
	return &Queue{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		}),
	}
}

func (q *Queue) EnqueueEvaluationRun(evaluationID string) error {
	return q.enqueue(TypeEvaluationRun, evaluationID)
}

func (q *Queue) EnqueueComparisonRun(comparisonID string) error {
	return q.enqueue(TypeComparisonRun, comparisonID)
}

func (q *Queue) enqueue(taskType, id string) error {
	payload, err := json.Marshal(RunPayload{ID: id})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	task := asynq.NewTask(taskType, payload,
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if _, err := q.client.Enqueue(task); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

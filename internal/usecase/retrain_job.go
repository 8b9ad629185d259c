package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"StockCast/internal/domain/service"
	"StockCast/pkg/logger"
	"StockCast/pkg/queue"
)

// RetrainJobType is the queue message type for retrain requests.
const RetrainJobType = "retrain"

// RetrainRequest is the payload of a queued retrain.
type RetrainRequest struct {
	Reason string `json:"reason"`
}

// RetrainJob runs queued retrain requests.
type RetrainJob struct {
	trigger service.RetrainTrigger
}

var _ queue.Job = (*RetrainJob)(nil)

func NewRetrainJob(trigger service.RetrainTrigger) *RetrainJob {
	return &RetrainJob{trigger: trigger}
}

func (j *RetrainJob) Name() string { return "retrain-models" }
func (j *RetrainJob) Type() string { return RetrainJobType }

func (j *RetrainJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.DecodePayload[RetrainRequest](payload)
	if err != nil {
		return err
	}
	return j.trigger.TriggerRetrain(ctx, req.Reason)
}

// RetrainDispatcher routes background retrain requests through the job queue
// when one is configured and runs them inline otherwise.
type RetrainDispatcher struct {
	queue   queue.Publisher
	trigger service.RetrainTrigger
	log     *logger.Logger
}

// NewRetrainDispatcher builds a dispatcher; q may be nil.
func NewRetrainDispatcher(q queue.Publisher, trigger service.RetrainTrigger, log *logger.Logger) *RetrainDispatcher {
	return &RetrainDispatcher{queue: q, trigger: trigger, log: log}
}

func (d *RetrainDispatcher) Dispatch(ctx context.Context, reason string) error {
	if d.queue != nil {
		if err := d.queue.Enqueue(ctx, RetrainJobType, RetrainRequest{Reason: reason}); err != nil {
			return fmt.Errorf("enqueue retrain: %w", err)
		}
		d.log.Info("retrain queued", logger.String("reason", reason))
		return nil
	}
	return d.trigger.TriggerRetrain(ctx, reason)
}

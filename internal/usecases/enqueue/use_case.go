// Package enqueue is the HTTP edge's use case for publishing jobs to the
// broker.
package enqueue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/broker"
	"github.com/bidmarket/notifier/internal/observability/metrics"
	"github.com/bidmarket/notifier/internal/observability/tracing"
)

// EnqueueUseCase defines the contract for enqueuing jobs.
type EnqueueUseCase interface {
	Execute(ctx context.Context, input EnqueueInputDTO) (EnqueueOutputDTO, error)
}

type enqueueUseCase struct {
	messageBroker broker.MessageBroker
}

func NewEnqueueUseCase(messageBroker broker.MessageBroker) EnqueueUseCase {
	return &enqueueUseCase{messageBroker: messageBroker}
}

func (u *enqueueUseCase) Execute(ctx context.Context, input EnqueueInputDTO) (EnqueueOutputDTO, error) {
	ctx, span := tracing.Tracer.Start(ctx, "EnqueueUseCase.Execute")
	defer span.End()

	job := domain.Job{
		ID:         uuid.New().String(),
		Queue:      input.Queue,
		Name:       input.Name,
		Payload:    input.Payload,
		EnqueuedAt: time.Now(),
	}

	if err := u.messageBroker.Publish(ctx, job); err != nil {
		return EnqueueOutputDTO{}, err
	}

	metrics.JobsEnqueued.WithLabelValues(job.Queue, job.Name).Inc()
	return EnqueueOutputDTO{
		ID:     job.ID,
		Queue:  job.Queue,
		Name:   job.Name,
		Status: "enqueued",
	}, nil
}

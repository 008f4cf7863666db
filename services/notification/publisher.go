package notification

import (
	"context"

	"tsmarket/pkg/logger"
	"tsmarket/pkg/task"
	"tsmarket/services/ledger"
	"tsmarket/services/topup"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Publisher hands events to the worker queue. Without a queue, or when
// enqueueing fails, the notification is stored in-process instead.
type Publisher struct {
	enqueuer task.Enqueuer
	svc      *Service
}

type PublisherParams struct {
	fx.In
	Enqueuer task.Enqueuer `optional:"true"`
	Service  *Service
}

func NewPublisher(p PublisherParams) *Publisher {
	return &Publisher{enqueuer: p.Enqueuer, svc: p.Service}
}

func (p *Publisher) enqueue(ctx context.Context, t *asynq.Task, err error) bool {
	zapLog := logger.FromContext(ctx)
	if err != nil {
		zapLog.Error("failed to build notification task", zap.Error(err))
		return false
	}
	if p.enqueuer == nil {
		return false
	}

	info, err := p.enqueuer.Enqueue(ctx, t)
	if err != nil {
		zapLog.Warn("failed to enqueue notification, storing inline", zap.String("task_type", t.Type()), zap.Error(err))
		return false
	}
	zapLog.Debug("notification enqueued", zap.String("task_type", t.Type()), zap.String("task_id", info.ID))
	return true
}

func (p *Publisher) LevelUp(ctx context.Context, e ledger.LevelUpEvent) {
	t, err := NewLevelUpTask(e)
	if p.enqueue(ctx, t, err) {
		return
	}
	if err := p.svc.LevelUp(ctx, e); err != nil {
		logger.FromContext(ctx).Error("level-up notification lost", zap.String("user_id", e.UserID), zap.Error(err))
	}
}

func (p *Publisher) TopupProcessed(ctx context.Context, e topup.Event) {
	t, err := NewTopupProcessedTask(e)
	if p.enqueue(ctx, t, err) {
		return
	}
	if err := p.svc.TopupProcessed(ctx, e); err != nil {
		logger.FromContext(ctx).Error("top-up notification lost", zap.String("request_id", e.RequestID), zap.Error(err))
	}
}

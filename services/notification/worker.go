package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"tsmarket/pkg/taskname"
	"tsmarket/services/ledger"
	"tsmarket/services/topup"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type Worker struct {
	svc *Service
}

func NewWorker(svc *Service) *Worker {
	return &Worker{svc: svc}
}

func RegisterHandlers(mux *asynq.ServeMux, w *Worker) {
	mux.HandleFunc(taskname.NotificationLevelUp, w.HandleLevelUp)
	mux.HandleFunc(taskname.NotificationTopupProcessed, w.HandleTopupProcessed)
}

// HandleLevelUp decodes the payload and stores the notification. Broken
// payloads are skipped since retrying cannot fix them.
func (w *Worker) HandleLevelUp(ctx context.Context, t *asynq.Task) error {
	var e ledger.LevelUpEvent
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		zap.L().Error("invalid level-up payload", zap.Error(err))
		return fmt.Errorf("decode level-up payload: %v: %w", err, asynq.SkipRetry)
	}

	zap.L().Info("processing level-up notification", zap.String("user_id", e.UserID), zap.Int("new_level", e.NewLevel))
	return w.svc.LevelUp(ctx, e)
}

func (w *Worker) HandleTopupProcessed(ctx context.Context, t *asynq.Task) error {
	var e topup.Event
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		zap.L().Error("invalid top-up payload", zap.Error(err))
		return fmt.Errorf("decode top-up payload: %v: %w", err, asynq.SkipRetry)
	}

	zap.L().Info("processing top-up notification", zap.String("request_id", e.RequestID), zap.String("status", string(e.Status)))
	return w.svc.TopupProcessed(ctx, e)
}

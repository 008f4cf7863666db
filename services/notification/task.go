package notification

import (
	"encoding/json"
	"time"

	"tsmarket/pkg/task"
	"tsmarket/pkg/taskname"
	"tsmarket/services/ledger"
	"tsmarket/services/topup"

	"github.com/hibiken/asynq"
)

const maxRetry = 5

func NewLevelUpTask(e ledger.LevelUpEvent) (*asynq.Task, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.NotificationLevelUp, payload,
		asynq.Queue(task.QueueDefault),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(30*time.Second),
	), nil
}

func NewTopupProcessedTask(e topup.Event) (*asynq.Task, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.NotificationTopupProcessed, payload,
		asynq.Queue(task.QueueCritical),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(30*time.Second),
	), nil
}

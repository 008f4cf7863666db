package notification

import (
	"tsmarket/services/ledger"
	"tsmarket/services/topup"

	"go.uber.org/fx"
)

// Module serves the inbox and publishes events raised by the API process.
var Module = fx.Module("notification.service",
	fx.Provide(
		NewService,
		NewHandler,
		fx.Annotate(NewPublisher, fx.As(new(ledger.Notifier)), fx.As(new(topup.Notifier))),
	),
	fx.Invoke(RegisterRoutes),
)

// WorkerModule consumes notification tasks from the queue.
var WorkerModule = fx.Module("notification.worker",
	fx.Provide(NewService, NewWorker),
	fx.Invoke(RegisterHandlers),
)

package taskname

const (
	// Notification tasks
	NotificationLevelUp        = "notification:level_up"
	NotificationTopupProcessed = "notification:topup_processed"
)

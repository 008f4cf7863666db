package notification

import "tsmarket/pkg/errutil"

var ErrNotificationNotFound = errutil.NotFound("notification not found", nil, errutil.WithReason("notification_not_found"))

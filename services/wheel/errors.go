package wheel

import "tsmarket/pkg/errutil"

var (
	ErrPrizeNotFound = errutil.NotFound("wheel prize not found", nil, errutil.WithReason("prize_not_found"))
	ErrWheelEmpty    = errutil.ServiceUnavailable("the wheel has no prizes configured", nil, errutil.WithReason("wheel_empty"))
	ErrInvalidPrize  = errutil.BadRequest("invalid wheel prize", nil, errutil.WithReason("invalid_prize"))
	ErrDrawFailed    = errutil.Internal("failed to draw a prize", nil, errutil.WithReason("draw_failed"))
)

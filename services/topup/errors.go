package topup

import "tsmarket/pkg/errutil"

var (
	ErrInvalidCode       = errutil.NotFound("top-up code is not valid", nil, errutil.WithReason("invalid_code"))
	ErrAlreadyUsed       = errutil.Conflict("top-up code has already been used", nil, errutil.WithReason("already_used"))
	ErrTooManyAttempts   = errutil.TooManyRequest("too many invalid codes, try again later", nil, errutil.WithReason("too_many_attempts"))
	ErrInvalidAmount     = errutil.BadRequest("amount must be greater than zero", nil, errutil.WithReason("invalid_amount"))
	ErrMissingReceipt    = errutil.BadRequest("receipt url is required", nil, errutil.WithReason("missing_receipt"))
	ErrRequestNotFound   = errutil.NotFound("top-up request not found", nil, errutil.WithReason("request_not_found"))
	ErrNotPending        = errutil.Conflict("top-up request is no longer pending", nil, errutil.WithReason("not_pending"))
	ErrInvalidTransition = errutil.BadRequest("unsupported top-up request transition", nil, errutil.WithReason("invalid_transition"))
	ErrInvalidStatus     = errutil.BadRequest("unknown top-up request status", nil, errutil.WithReason("invalid_status"))
	ErrCodeTaken         = errutil.Conflict("top-up code already exists", nil, errutil.WithReason("code_taken"))
	ErrCodeNotFound      = errutil.NotFound("top-up code not found", nil, errutil.WithReason("code_not_found"))
)

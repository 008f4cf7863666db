package ledger

import (
	"tsmarket/pkg/errutil"
	"tsmarket/services/account"
)

var (
	ErrUnknownUser       = account.ErrUserNotFound
	ErrInsufficientFunds = errutil.UnprocessableEntity("insufficient balance", nil, errutil.WithReason("insufficient_funds"))
	ErrNoSpinsAvailable  = errutil.UnprocessableEntity("no wheel spins available", nil, errutil.WithReason("no_spins_available"))
	ErrInvalidAmount     = errutil.BadRequest("amount must be greater than zero", nil, errutil.WithReason("invalid_amount"))
	ErrInvalidXP         = errutil.BadRequest("xp must not be negative", nil, errutil.WithReason("invalid_xp"))
	ErrInvalidSpins      = errutil.BadRequest("spins must be greater than zero", nil, errutil.WithReason("invalid_spins"))
)

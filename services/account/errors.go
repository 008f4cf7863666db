package account

import "tsmarket/pkg/errutil"

var (
	ErrUserNotFound     = errutil.NotFound("user not found", nil, errutil.WithReason("unknown_user"))
	ErrEmailTaken       = errutil.Conflict("email already registered", nil, errutil.WithReason("email_taken"))
	ErrInvalidProfile   = errutil.BadRequest("email and name are required", nil, errutil.WithReason("invalid_profile"))
	ErrCannotDeleteSelf = errutil.BadRequest("cannot delete your own account", nil, errutil.WithReason("cannot_delete_self"))
)

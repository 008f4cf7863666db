package order

import "tsmarket/pkg/errutil"

const minAddressLength = 5

var (
	ErrEmptyCart        = errutil.BadRequest("cart is empty", nil, errutil.WithReason("empty_cart"))
	ErrMissingAddress   = errutil.BadRequest("delivery address is required", nil, errutil.WithReason("missing_address"))
	ErrInvalidQuantity  = errutil.BadRequest("quantity must be at least 1", nil, errutil.WithReason("invalid_quantity"))
	ErrOrderNotFound    = errutil.NotFound("order not found", nil, errutil.WithReason("order_not_found"))
	ErrInvalidStatus    = errutil.BadRequest("unknown order status", nil, errutil.WithReason("invalid_status"))
	ErrStatusTransition = errutil.UnprocessableEntity("order status cannot change this way", nil, errutil.WithReason("invalid_status_transition"))
)

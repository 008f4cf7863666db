package catalog

import "tsmarket/pkg/errutil"

var (
	ErrProductNotFound  = errutil.NotFound("product not found", nil, errutil.WithReason("product_not_found"))
	ErrCategoryNotFound = errutil.NotFound("category not found", nil, errutil.WithReason("category_not_found"))
	ErrCategoryInUse    = errutil.Conflict("category still has products", nil, errutil.WithReason("category_in_use"))
	ErrSlugTaken        = errutil.Conflict("category slug already exists", nil, errutil.WithReason("slug_taken"))
	ErrInvalidProduct   = errutil.BadRequest("invalid product", nil, errutil.WithReason("invalid_product"))
	ErrInvalidFilter    = errutil.BadRequest("invalid product filter", nil, errutil.WithReason("invalid_filter"))
	ErrInvalidSize      = errutil.BadRequest("size is not available for this product", nil, errutil.WithReason("invalid_size"))
	ErrOutOfStock       = errutil.UnprocessableEntity("product is out of stock", nil, errutil.WithReason("out_of_stock"))
)

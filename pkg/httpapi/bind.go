package httpapi

import (
	"tsmarket/pkg/db/pagination"
	"tsmarket/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// BindJSON decodes the body into obj and records a validation error on
// failure. Callers return when it reports false.
func BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid request body", err))
		return false
	}
	return true
}

func BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		_ = c.Error(errutil.ValidationFailed("invalid query parameters", err))
		return false
	}
	return true
}

func BindPage(c *gin.Context) (pagination.Pagination, bool) {
	var p pagination.Pagination
	ok := BindQuery(c, &p)
	return p, ok
}

// Fail attaches err to the context for the error middleware.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

type ListResponse[T any] struct {
	Data     []*T                 `json:"data"`
	PageInfo *pagination.PageInfo `json:"page_info,omitempty"`
}

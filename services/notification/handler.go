package notification

import (
	"net/http"

	"tsmarket/pkg/httpapi"
	"tsmarket/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(r *httpapi.Router, h *Handler) {
	r.Member.GET("/notifications", h.List)
	r.Member.GET("/notifications/unread", h.Unread)
	r.Member.POST("/notifications/:id/read", h.MarkRead)
	r.Member.POST("/notifications/read", h.MarkAllRead)
}

func (h *Handler) List(c *gin.Context) {
	var f ListFilter
	if !httpapi.BindQuery(c, &f) {
		return
	}
	page, ok := httpapi.BindPage(c)
	if !ok {
		return
	}

	rows, info, err := h.svc.List(c.Request.Context(), middleware.UserID(c), f, page)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[Notification]{Data: rows, PageInfo: info})
}

func (h *Handler) Unread(c *gin.Context) {
	count, err := h.svc.Unread(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, count)
}

func (h *Handler) MarkRead(c *gin.Context) {
	if err := h.svc.MarkRead(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	if err := h.svc.MarkAllRead(c.Request.Context(), middleware.UserID(c)); err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

package order

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
	r.Member.POST("/orders", h.Checkout)
	r.Member.GET("/orders", h.MyOrders)

	r.Admin.GET("/orders", h.List)
	r.Admin.PUT("/orders/:id/status", h.UpdateStatus)
	r.Admin.GET("/stats", h.Stats)
}

func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	result, err := h.svc.Checkout(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *Handler) MyOrders(c *gin.Context) {
	page, ok := httpapi.BindPage(c)
	if !ok {
		return
	}

	orders, info, err := h.svc.ListForUser(c.Request.Context(), middleware.UserID(c), page)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[Order]{Data: orders, PageInfo: info})
}

func (h *Handler) List(c *gin.Context) {
	page, ok := httpapi.BindPage(c)
	if !ok {
		return
	}
	var filter ListFilter
	if !httpapi.BindQuery(c, &filter) {
		return
	}

	orders, info, err := h.svc.ListAll(c.Request.Context(), filter, page)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[Order]{Data: orders, PageInfo: info})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	order, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

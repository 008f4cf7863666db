package topup

import (
	"net/http"

	"tsmarket/pkg/db/pagination"
	"tsmarket/pkg/httpapi"
	"tsmarket/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(r *httpapi.Router, h *Handler) {
	r.Public.GET("/topup/settings", h.Settings)

	r.Member.POST("/topup/redeem", h.Redeem)
	r.Member.POST("/topup/requests", h.Submit)
	r.Member.GET("/topup/requests", h.MyRequests)
	r.Member.GET("/topup/history", h.History)

	r.Admin.GET("/topup/requests", h.List)
	r.Admin.POST("/topup/requests/:id/approve", h.Approve)
	r.Admin.POST("/topup/requests/:id/reject", h.Reject)
	r.Admin.GET("/topup/codes", h.ListCodes)
	r.Admin.POST("/topup/codes", h.CreateCode)
	r.Admin.DELETE("/topup/codes/:id", h.DeleteCode)
	r.Admin.PUT("/topup/settings", h.UpdateSettings)
}

type historyResponse struct {
	Data     []*History           `json:"data"`
	PageInfo *pagination.PageInfo `json:"page_info,omitempty"`
	Total    decimal.Decimal      `json:"total"`
}

func (h *Handler) Redeem(c *gin.Context) {
	var req RedeemRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	result, err := h.svc.RedeemCode(c.Request.Context(), middleware.UserID(c), req.Code)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	request, err := h.svc.Submit(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

func (h *Handler) MyRequests(c *gin.Context) {
	page, ok := httpapi.BindPage(c)
	if !ok {
		return
	}

	requests, info, err := h.svc.ListForUser(c.Request.Context(), middleware.UserID(c), page)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[TopupRequest]{Data: requests, PageInfo: info})
}

func (h *Handler) History(c *gin.Context) {
	page, ok := httpapi.BindPage(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	userID := middleware.UserID(c)
	rows, info, err := h.svc.History(ctx, userID, page)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}
	total, err := h.svc.TotalCredited(ctx, userID)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, historyResponse{Data: rows, PageInfo: info, Total: total})
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

	requests, info, err := h.svc.ListAll(c.Request.Context(), f, page)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[TopupRequest]{Data: requests, PageInfo: info})
}

func (h *Handler) Approve(c *gin.Context) {
	request, err := h.svc.Approve(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

func (h *Handler) Reject(c *gin.Context) {
	var req RejectRequest
	if c.Request.ContentLength > 0 && !httpapi.BindJSON(c, &req) {
		return
	}

	request, err := h.svc.Reject(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Note)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

func (h *Handler) ListCodes(c *gin.Context) {
	page, ok := httpapi.BindPage(c)
	if !ok {
		return
	}

	codes, info, err := h.svc.ListCodes(c.Request.Context(), page)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[TopupCode]{Data: codes, PageInfo: info})
}

func (h *Handler) CreateCode(c *gin.Context) {
	var req CreateCodeRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	code, err := h.svc.CreateCode(c.Request.Context(), req)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, code)
}

func (h *Handler) DeleteCode(c *gin.Context) {
	if err := h.svc.DeleteCode(c.Request.Context(), c.Param("id")); err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Settings(c *gin.Context) {
	settings, err := h.svc.Settings(c.Request.Context())
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	settings, err := h.svc.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

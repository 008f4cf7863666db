package ledger

import (
	"net/http"

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
	r.Member.GET("/me/ledger", h.MyHistory)
	r.Member.GET("/me/discounts", h.MyDiscounts)

	r.Admin.PUT("/users/:id/balance", h.SetBalance)
	r.Admin.PUT("/users/:id/xp", h.SetXP)
	r.Admin.POST("/users/:id/spins", h.GrantSpins)
	r.Admin.GET("/users/:id/ledger", h.UserHistory)
	r.Admin.GET("/users/:id/ledger/verify", h.Verify)
}

type SetBalanceRequest struct {
	Balance decimal.Decimal `json:"balance"`
}

type SetXPRequest struct {
	XP *int64 `json:"xp" binding:"required"`
}

type GrantSpinsRequest struct {
	Spins int `json:"spins" binding:"required,gt=0"`
}

func adminMemo(c *gin.Context, what string) Memo {
	return Memo{Reference: "admin:" + middleware.UserID(c), Description: what}
}

func (h *Handler) history(c *gin.Context, userID string) {
	page, ok := httpapi.BindPage(c)
	if !ok {
		return
	}

	entries, info, err := h.svc.History(c.Request.Context(), userID, page)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[Entry]{Data: entries, PageInfo: info})
}

func (h *Handler) MyHistory(c *gin.Context) {
	h.history(c, middleware.UserID(c))
}

func (h *Handler) UserHistory(c *gin.Context) {
	h.history(c, c.Param("id"))
}

func (h *Handler) MyDiscounts(c *gin.Context) {
	grants, err := h.svc.ListDiscounts(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[DiscountGrant]{Data: grants})
}

func (h *Handler) SetBalance(c *gin.Context) {
	var req SetBalanceRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	user, err := h.svc.SetBalance(c.Request.Context(), c.Param("id"), req.Balance, adminMemo(c, "balance set by admin"))
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) SetXP(c *gin.Context) {
	var req SetXPRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	user, err := h.svc.SetXP(c.Request.Context(), c.Param("id"), *req.XP, adminMemo(c, "xp set by admin"))
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) GrantSpins(c *gin.Context) {
	var req GrantSpinsRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	user, err := h.svc.GrantSpins(c.Request.Context(), c.Param("id"), req.Spins, adminMemo(c, "spins granted by admin"))
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) Verify(c *gin.Context) {
	result, err := h.svc.VerifyChain(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

package wheel

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
	r.Public.GET("/wheel/prizes", h.ListPrizes)

	r.Member.POST("/wheel/spin", h.Spin)
	r.Member.GET("/wheel/spins", h.History)

	r.Admin.GET("/wheel/prizes", h.ListPrizes)
	r.Admin.POST("/wheel/prizes", h.CreatePrize)
	r.Admin.PUT("/wheel/prizes/:id", h.UpdatePrize)
	r.Admin.DELETE("/wheel/prizes/:id", h.DeletePrize)
}

func (h *Handler) ListPrizes(c *gin.Context) {
	prizes, err := h.svc.ListPrizes(c.Request.Context())
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[WheelPrize]{Data: prizes})
}

func (h *Handler) Spin(c *gin.Context) {
	outcome, err := h.svc.Spin(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) History(c *gin.Context) {
	page, ok := httpapi.BindPage(c)
	if !ok {
		return
	}

	results, info, err := h.svc.History(c.Request.Context(), middleware.UserID(c), page)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[SpinResult]{Data: results, PageInfo: info})
}

func (h *Handler) CreatePrize(c *gin.Context) {
	var req PrizeRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	prize, err := h.svc.CreatePrize(c.Request.Context(), req)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, prize)
}

func (h *Handler) UpdatePrize(c *gin.Context) {
	var req PrizeRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	prize, err := h.svc.UpdatePrize(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, prize)
}

func (h *Handler) DeletePrize(c *gin.Context) {
	if err := h.svc.DeletePrize(c.Request.Context(), c.Param("id")); err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

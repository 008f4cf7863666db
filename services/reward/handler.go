package reward

import (
	"net/http"
	"strconv"

	"tsmarket/pkg/errutil"
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
	r.Member.GET("/rewards", h.MyRewards)
	r.Member.POST("/rewards/claim/:level", h.Claim)

	r.Admin.GET("/rewards", h.List)
	r.Admin.POST("/rewards", h.Create)
	r.Admin.DELETE("/rewards/:id", h.Delete)
}

func (h *Handler) MyRewards(c *gin.Context) {
	views, err := h.svc.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[View]{Data: views})
}

func (h *Handler) Claim(c *gin.Context) {
	level, err := strconv.Atoi(c.Param("level"))
	if err != nil {
		httpapi.Fail(c, errutil.BadRequest("level must be a number", err))
		return
	}

	result, err := h.svc.Claim(c.Request.Context(), middleware.UserID(c), level)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) List(c *gin.Context) {
	rewards, err := h.svc.List(c.Request.Context())
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[Reward]{Data: rewards})
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	reward, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, reward)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

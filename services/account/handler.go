package account

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
	r.Public.POST("/auth/register", h.Register)
	r.Member.GET("/me", h.Me)

	r.Admin.GET("/users", h.List)
	r.Admin.PUT("/users/:id/admin", h.SetAdmin)
	r.Admin.DELETE("/users/:id", h.Delete)
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *Handler) Me(c *gin.Context) {
	profile, err := h.svc.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *Handler) List(c *gin.Context) {
	page, ok := httpapi.BindPage(c)
	if !ok {
		return
	}

	users, info, err := h.svc.List(c.Request.Context(), page)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[User]{Data: users, PageInfo: info})
}

func (h *Handler) SetAdmin(c *gin.Context) {
	var req SetAdminRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	user, err := h.svc.SetAdmin(c.Request.Context(), c.Param("id"), req.IsAdmin)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

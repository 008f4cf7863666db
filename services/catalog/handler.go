package catalog

import (
	"net/http"

	"tsmarket/pkg/httpapi"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(r *httpapi.Router, h *Handler) {
	r.Public.GET("/categories", h.ListCategories)
	r.Public.GET("/products", h.ListProducts)
	r.Public.GET("/products/:id", h.GetProduct)

	r.Admin.POST("/categories", h.CreateCategory)
	r.Admin.DELETE("/categories/:id", h.DeleteCategory)
	r.Admin.GET("/products", h.AdminListProducts)
	r.Admin.POST("/products", h.CreateProduct)
	r.Admin.PUT("/products/:id", h.UpdateProduct)
	r.Admin.DELETE("/products/:id", h.DeleteProduct)
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[Category]{Data: categories})
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	category, err := h.svc.CreateCategory(c.Request.Context(), req)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	if err := h.svc.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) listProducts(c *gin.Context, includeInactive bool) {
	var filter ProductFilter
	if !httpapi.BindQuery(c, &filter) {
		return
	}
	filter.IncludeInactive = includeInactive

	products, err := h.svc.ListProducts(c.Request.Context(), filter)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpapi.ListResponse[Product]{Data: products})
}

func (h *Handler) ListProducts(c *gin.Context) {
	h.listProducts(c, false)
}

func (h *Handler) AdminListProducts(c *gin.Context) {
	h.listProducts(c, true)
}

func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.svc.GetProduct(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	product, err := h.svc.CreateProduct(c.Request.Context(), req)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	var req ProductRequest
	if !httpapi.BindJSON(c, &req) {
		return
	}

	product, err := h.svc.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.svc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		httpapi.Fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

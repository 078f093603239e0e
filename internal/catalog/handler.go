package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	admin := auth.RequireRole(auth.RoleAdmin)
	r.GET("/categories", h.List)
	r.POST("/categories", admin, h.Create)
	r.GET("/categories/:id", h.Get)
	r.PUT("/categories/:id", admin, h.Update)
	r.DELETE("/categories/:id", admin, h.Disable)
}

func parseID(c *gin.Context) (uint, bool) {
	idU64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || idU64 == 0 {
		apierr.Respond(c, apierr.Invalid("invalid id"))
		return 0, false
	}
	return uint(idU64), true
}

// List godoc
// @Summary  List categories
// @Tags     categories
// @Produce  json
// @Param    all query string false "1 to include disabled"
// @Success  200 {array} Category
// @Router   /categories [get]
func (h *Handler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context(), c.Query("all"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary  Create a category (admin)
// @Tags     categories
// @Accept   json
// @Produce  json
// @Param    body body CreateCategoryRequest true "category"
// @Success  201 {object} Category
// @Router   /categories [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Invalid("invalid request").WithDetail("%v", err))
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req.Name, req.Code)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Invalid("invalid request").WithDetail("%v", err))
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req.Name, req.Code, req.IsDisabled)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Disable(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Disable(c.Request.Context(), id); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

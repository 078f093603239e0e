package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"itops-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

// RegisterPublicRoutes mounts the unauthenticated login endpoint.
func RegisterPublicRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/login", h.Login)
}

// RegisterRoutes mounts account management. r must already require auth.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	admin := RequireRole(RoleAdmin)
	r.GET("/accounts", h.ListAccounts)
	r.POST("/accounts", admin, h.Register)
	r.DELETE("/accounts/:id", admin, h.DisableAccount)
}

type LoginRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary  Exchange credentials for a bearer token
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body LoginRequest true "credentials"
// @Success  200 {object} LoginResult
// @Router   /login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Invalid("invalid request").WithDetail("%v", err))
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.ID, req.Password)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Invalid("invalid request").WithDetail("%v", err))
		return
	}
	a, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListAccounts(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context(), c.Query("role"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h *Handler) DisableAccount(c *gin.Context) {
	if err := h.svc.Disable(c.Request.Context(), c.Param("id")); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

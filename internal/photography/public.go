package photography

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"itops-backend/internal/platform/apierr"
)

// RegisterPublicRoutes mounts the unauthenticated feed used by the school
// website. Responses are cacheable by a CDN for a minute.
func RegisterPublicRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/activities", publicHeaders, h.Activities)
	r.OPTIONS("/activities", publicHeaders, func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func publicHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
	c.Next()
}

// Activities godoc
// @Summary  Recent published photography activities
// @Tags     public
// @Produce  json
// @Success  200 {array} PublicActivity
// @Router   /external/activities [get]
func (h *Handler) Activities(c *gin.Context) {
	items, err := h.svc.PublicActivities(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Header("Cache-Control", "s-maxage=60, stale-while-revalidate=300")
	c.JSON(http.StatusOK, items)
}

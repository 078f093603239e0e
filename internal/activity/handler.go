package activity

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"itops-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/activities", h.List)
}

func parseTime(c *gin.Context, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apierr.Invalid("invalid request").WithDetail("%s must be RFC3339", key)
	}
	return &t, nil
}

// List godoc
// @Summary  List activity log entries, newest first
// @Tags     activities
// @Produce  json
// @Param    action query string false "action"
// @Param    user   query string false "user name"
// @Param    zone   query string false "zone"
// @Param    status query string false "status"
// @Param    from   query string false "RFC3339"
// @Param    to     query string false "RFC3339"
// @Success  200 {object} ListResult
// @Router   /activities [get]
func (h *Handler) List(c *gin.Context) {
	from, err := parseTime(c, "from")
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	to, err := parseTime(c, "to")
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	f := Filter{
		Action:   Action(c.Query("action")),
		UserName: c.Query("user"),
		Zone:     c.Query("zone"),
		Status:   c.Query("status"),
		From:     from,
		To:       to,
	}
	res, err := h.svc.List(c.Request.Context(), f, Page{Limit: limit, Offset: offset})
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

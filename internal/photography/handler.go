package photography

import (
	"errors"
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

	r.GET("/photography/jobs", h.List)
	r.POST("/photography/jobs", admin, h.Create)
	r.POST("/photography/bookings", admin, h.ImportBooking)
	r.GET("/photography/jobs/:id", h.Get)
	r.POST("/photography/jobs/:id/submit", auth.RequireRole(auth.RoleAdmin, auth.RolePhotographer), h.Submit)
	r.POST("/photography/jobs/:id/cancel", admin, h.Cancel)
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	f := Filter{Status: Status(c.Query("status")), Assignee: c.Query("assignee")}
	if c.Query("mine") == "true" {
		f.Assignee = auth.ActorFrom(c).ID
	}
	res, err := h.svc.List(c.Request.Context(), f, Page{Limit: limit, Offset: offset})
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	j, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

// Create godoc
// @Summary  Assign a photography job (admin)
// @Tags     photography
// @Accept   json
// @Produce  json
// @Param    body body CreateJobRequest true "job"
// @Success  201 {object} Job
// @Router   /photography/jobs [post]
func (h *Handler) Create(c *gin.Context) {
	var in CreateJobRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		apierr.Respond(c, apierr.Invalid("invalid request").WithDetail("%v", err))
		return
	}
	j, err := h.svc.CreateJob(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, j)
}

// ImportBooking godoc
// @Summary  Create a job from a room booking (admin)
// @Tags     photography
// @Accept   json
// @Produce  json
// @Param    body body BookingRequest true "booking"
// @Success  201 {object} Job
// @Failure  409 {object} apierr.Error
// @Router   /photography/bookings [post]
func (h *Handler) ImportBooking(c *gin.Context) {
	var in BookingRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		apierr.Respond(c, apierr.Invalid("invalid request").WithDetail("%v", err))
		return
	}
	j, err := h.svc.CreateFromBooking(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, j)
}

// Submit godoc
// @Summary  Submit deliverables for a job
// @Tags     photography
// @Accept   multipart/form-data
// @Produce  json
// @Param    id                path     string true  "job id"
// @Param    driveLink         formData string true  "Google Drive folder"
// @Param    facebookPostId    formData string false "post id"
// @Param    facebookPermalink formData string false "post link"
// @Param    cover             formData file   false "cover photo"
// @Success  200 {object} Job
// @Router   /photography/jobs/{id}/submit [post]
func (h *Handler) Submit(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			apierr.Respond(c, apierr.Invalid("file too large").WithDetail("limit %d bytes", mbe.Limit))
			return
		}
		apierr.Respond(c, apierr.Invalid("invalid request").WithDetail("%v", err))
		return
	}
	in := SubmitInput{
		DriveLink:         c.PostForm("driveLink"),
		FacebookPostID:    c.PostForm("facebookPostId"),
		FacebookPermalink: c.PostForm("facebookPermalink"),
	}
	if form != nil {
		if fhs := form.File["cover"]; len(fhs) > 0 {
			f, err := fhs[0].Open()
			if err != nil {
				apierr.Respond(c, apierr.Invalid("invalid request").WithDetail("%v", err))
				return
			}
			defer f.Close()
			in.Cover = &Upload{Filename: fhs[0].Filename, Body: f}
		}
	}
	j, err := h.svc.SubmitJob(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

func (h *Handler) Cancel(c *gin.Context) {
	j, err := h.svc.CancelJob(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

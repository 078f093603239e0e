package videos

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
	r.GET("/videos", h.List)
	r.POST("/videos", auth.RequireRole(auth.RoleAdmin, auth.RolePhotographer), h.Create)
	r.DELETE("/videos/:id", auth.RequireRole(auth.RoleAdmin), h.Delete)
}

// List godoc
// @Summary  List gallery videos, newest first
// @Tags     videos
// @Produce  json
// @Param    category query string false "category"
// @Success  200 {object} ListResult
// @Router   /videos [get]
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	res, err := h.svc.List(c.Request.Context(), c.Query("category"), limit, offset)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Create godoc
// @Summary  Add a video to the gallery
// @Tags     videos
// @Accept   multipart/form-data
// @Produce  json
// @Param    title       formData string true  "title"
// @Param    videoUrl    formData string true  "link"
// @Param    description formData string false "description"
// @Param    category    formData string false "category"
// @Param    thumbnail   formData file   false "thumbnail"
// @Success  201 {object} Video
// @Router   /videos [post]
func (h *Handler) Create(c *gin.Context) {
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
	in := CreateInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		VideoURL:    c.PostForm("videoUrl"),
		Category:    c.PostForm("category"),
	}
	if form != nil {
		if fhs := form.File["thumbnail"]; len(fhs) > 0 {
			f, err := fhs[0].Open()
			if err != nil {
				apierr.Respond(c, apierr.Invalid("invalid request").WithDetail("%v", err))
				return
			}
			defer f.Close()
			in.Thumbnail = &Upload{Filename: fhs[0].Filename, Body: f}
		}
	}
	v, err := h.svc.Create(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

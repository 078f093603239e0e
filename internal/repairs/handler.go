package repairs

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	tech := auth.RequireRole(auth.RoleAdmin, auth.RoleTechnician)

	r.GET("/repairs", h.List)
	r.POST("/repairs", h.Create)
	r.GET("/repairs/:id", h.Get)
	r.PATCH("/repairs/:id", tech, h.Update)
	r.POST("/repairs/:id/parts", tech, h.ConsumePart)
}

func formError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return apierr.Invalid("file too large").WithDetail("limit %d bytes", mbe.Limit)
	}
	return apierr.Invalid("invalid request").WithDetail("%v", err)
}

// openAll opens the uploaded files. The returned closer must be called.
func openAll(fhs []*multipart.FileHeader) ([]Upload, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	out := make([]Upload, 0, len(fhs))
	for _, fh := range fhs {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, formError(err)
		}
		files = append(files, f)
		out = append(out, Upload{Filename: fh.Filename, Body: f})
	}
	return out, closeAll, nil
}

// List godoc
// @Summary  List repair tickets
// @Tags     repairs
// @Produce  json
// @Param    status       query string false "status"
// @Param    zone         query string false "junior_high|senior_high|common"
// @Param    technicianId query string false "technician"
// @Param    requesterId  query string false "requester"
// @Success  200 {object} ListResult
// @Router   /repairs [get]
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	f := Filter{
		Status:       Status(c.Query("status")),
		Zone:         Zone(c.Query("zone")),
		TechnicianID: c.Query("technicianId"),
		RequesterID:  c.Query("requesterId"),
	}
	res, err := h.svc.List(c.Request.Context(), f, Page{Limit: limit, Offset: offset})
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Create godoc
// @Summary  Open a repair ticket
// @Tags     repairs
// @Accept   multipart/form-data
// @Produce  json
// @Param    phone       formData string true  "phone"
// @Param    room        formData string true  "room"
// @Param    zone        formData string true  "zone"
// @Param    description formData string true  "problem"
// @Param    images      formData file   true  "1 to 5 photos"
// @Success  201 {object} Ticket
// @Router   /repairs [post]
func (h *Handler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		apierr.Respond(c, formError(err))
		return
	}
	images, closeAll, err := openAll(form.File["images"])
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	defer closeAll()

	in := CreateTicketInput{
		RequesterEmail: c.PostForm("requesterEmail"),
		Position:       c.PostForm("position"),
		Phone:          c.PostForm("phone"),
		Room:           c.PostForm("room"),
		Zone:           Zone(c.PostForm("zone")),
		Description:    c.PostForm("description"),
		AIDiagnosis:    c.PostForm("aiDiagnosis"),
		Images:         images,
	}
	t, err := h.svc.CreateTicket(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// Update godoc
// @Summary  Change status, note or completion photo (technician)
// @Tags     repairs
// @Accept   multipart/form-data
// @Produce  json
// @Param    id              path     string true  "ticket id"
// @Param    status          formData string true  "new status"
// @Param    technicianNote  formData string false "note"
// @Param    completionImage formData file   false "after photo"
// @Success  200 {object} Ticket
// @Router   /repairs/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		apierr.Respond(c, formError(err))
		return
	}
	in := UpdateTicketInput{
		Status:         Status(c.PostForm("status")),
		TechnicianNote: c.PostForm("technicianNote"),
	}
	if form != nil {
		if fhs := form.File["completionImage"]; len(fhs) > 0 {
			uploads, closeAll, err := openAll(fhs[:1])
			if err != nil {
				apierr.Respond(c, err)
				return
			}
			defer closeAll()
			in.CompletionImage = &uploads[0]
		}
	}
	t, err := h.svc.UpdateTicket(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ConsumePart godoc
// @Summary  Use spare parts from inventory on a ticket (technician)
// @Tags     repairs
// @Accept   json
// @Produce  json
// @Param    id   path string             true "ticket id"
// @Param    body body ConsumePartRequest true "product, quantity and signature"
// @Success  200 {object} Ticket
// @Router   /repairs/{id}/parts [post]
func (h *Handler) ConsumePart(c *gin.Context) {
	var in ConsumePartRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		apierr.Respond(c, apierr.Invalid("invalid request").WithDetail("%v", err))
		return
	}
	t, err := h.svc.ConsumePart(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

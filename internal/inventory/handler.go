package inventory

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

	r.GET("/products", h.List)
	r.POST("/products", admin, h.Create)
	r.GET("/products/stats", h.Stats)
	r.GET("/products/:id", h.Get)
	r.PATCH("/products/:id", admin, h.Update)
	r.POST("/products/:id/borrow", h.Borrow)
	r.POST("/products/:id/return", h.Return)
	r.POST("/products/:id/requisition", h.Requisition)
	r.POST("/products/:id/restock", admin, h.Restock)
	r.GET("/transactions", h.ListTransactions)
}

func pageFrom(c *gin.Context) Page {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return Page{Limit: limit, Offset: offset}
}

func bind(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		apierr.Respond(c, apierr.Invalid("invalid request").WithDetail("%v", err))
		return false
	}
	return true
}

// List godoc
// @Summary  List products
// @Tags     products
// @Produce  json
// @Param    status   query string false "status"
// @Param    type     query string false "unique|bulk"
// @Param    category query string false "category code"
// @Param    q        query string false "name, stock id or serial number"
// @Success  200 {object} ListProductsResult
// @Router   /products [get]
func (h *Handler) List(c *gin.Context) {
	f := ProductFilter{
		Status:   Status(c.Query("status")),
		Type:     ProductType(c.Query("type")),
		Category: c.Query("category"),
		Query:    c.Query("q"),
	}
	res, err := h.svc.List(c.Request.Context(), f, pageFrom(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Get godoc
// @Summary  Get a product
// @Tags     products
// @Produce  json
// @Param    id path string true "product id"
// @Success  200 {object} ProductResponse
// @Router   /products/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Stats godoc
// @Summary  Dashboard stock counters
// @Tags     products
// @Produce  json
// @Success  200 {object} Stats
// @Router   /products/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	res, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Create godoc
// @Summary  Create a product (admin)
// @Tags     products
// @Accept   json
// @Produce  json
// @Param    body body CreateProductRequest true "product"
// @Success  201 {object} ProductResponse
// @Router   /products [post]
func (h *Handler) Create(c *gin.Context) {
	var in CreateProductRequest
	if !bind(c, &in) {
		return
	}
	res, err := h.svc.Create(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Update godoc
// @Summary  Update a product (admin)
// @Tags     products
// @Accept   json
// @Produce  json
// @Param    id   path string true "product id"
// @Param    body body UpdateProductRequest true "changed fields and current version"
// @Success  200 {object} ProductResponse
// @Router   /products/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	var in UpdateProductRequest
	if !bind(c, &in) {
		return
	}
	res, err := h.svc.Update(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Borrow godoc
// @Summary  Borrow one unit
// @Tags     products
// @Accept   json
// @Produce  json
// @Param    id   path string true "product id"
// @Param    body body BorrowRequest true "borrower and signature"
// @Success  200 {object} MovementResponse
// @Router   /products/{id}/borrow [post]
func (h *Handler) Borrow(c *gin.Context) {
	var in BorrowRequest
	if !bind(c, &in) {
		return
	}
	res, err := h.svc.Borrow(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Return godoc
// @Summary  Return a borrowed unique item
// @Tags     products
// @Produce  json
// @Param    id path string true "product id"
// @Success  200 {object} MovementResponse
// @Router   /products/{id}/return [post]
func (h *Handler) Return(c *gin.Context) {
	res, err := h.svc.Return(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Requisition godoc
// @Summary  Requisition units
// @Tags     products
// @Accept   json
// @Produce  json
// @Param    id   path string true "product id"
// @Param    body body RequisitionRequest true "requester, quantity and signature"
// @Success  200 {object} MovementResponse
// @Router   /products/{id}/requisition [post]
func (h *Handler) Requisition(c *gin.Context) {
	var in RequisitionRequest
	if !bind(c, &in) {
		return
	}
	res, err := h.svc.Requisition(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Restock godoc
// @Summary  Add units to a bulk product (admin)
// @Tags     products
// @Accept   json
// @Produce  json
// @Param    id   path string true "product id"
// @Param    body body RestockRequest true "quantity"
// @Success  200 {object} MovementResponse
// @Router   /products/{id}/restock [post]
func (h *Handler) Restock(c *gin.Context) {
	var in RestockRequest
	if !bind(c, &in) {
		return
	}
	res, err := h.svc.Restock(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListTransactions godoc
// @Summary  Borrow and requisition history
// @Tags     transactions
// @Produce  json
// @Param    productId query string false "product id"
// @Param    type      query string false "borrow|requisition"
// @Param    userId    query string false "user id"
// @Success  200 {object} ListTransactionsResult
// @Router   /transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	f := TxFilter{
		ProductID: c.Query("productId"),
		Type:      TxType(c.Query("type")),
		UserID:    c.Query("userId"),
	}
	res, err := h.svc.ListTransactions(c.Request.Context(), f, pageFrom(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

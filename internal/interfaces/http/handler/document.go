package handler

import (
	accountingapp "github.com/commandx/backend/internal/application/accounting"
	"github.com/gin-gonic/gin"
)

// DocumentHandler handles financial document HTTP requests
type DocumentHandler struct {
	BaseHandler
	service *accountingapp.DocumentService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(service *accountingapp.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// RegisterRoutes mounts the handler under /documents
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/documents")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
}

// Create creates a financial document. A locked transaction date is
// rejected with 422 ERR_PERIOD_LOCKED.
// POST /api/v1/documents
func (h *DocumentHandler) Create(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req accountingapp.CreateDocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	doc, err := h.service.Create(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, doc)
}

// Update revises a financial document.
// PUT /api/v1/documents/:id
func (h *DocumentHandler) Update(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req accountingapp.UpdateDocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	doc, err := h.service.Update(c.Request.Context(), tenantID, userID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// GetByID returns one financial document.
// GET /api/v1/documents/:id
func (h *DocumentHandler) GetByID(c *gin.Context) {
	tenantID, _, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	doc, err := h.service.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// List pages through financial documents.
// GET /api/v1/documents
func (h *DocumentHandler) List(c *gin.Context) {
	tenantID, _, ok := h.caller(c)
	if !ok {
		return
	}
	var filter accountingapp.DocumentListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

package handler

import (
	"net/http"

	integrationapp "github.com/commandx/backend/internal/application/integration"
	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/commandx/backend/internal/domain/shared"
	"github.com/commandx/backend/internal/interfaces/http/dto"
	"github.com/commandx/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// QuickBooksHandler handles QuickBooks sync HTTP requests
type QuickBooksHandler struct {
	BaseHandler
	service *integrationapp.SyncService
}

// NewQuickBooksHandler creates a new QuickBooks handler
func NewQuickBooksHandler(service *integrationapp.SyncService) *QuickBooksHandler {
	return &QuickBooksHandler{service: service}
}

// RegisterRoutes mounts the handler under /quickbooks
func (h *QuickBooksHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/quickbooks")
	g.POST("/sync", h.SyncBatch)
	g.POST("/sync/:id", h.SyncDocument)
	g.GET("/sync-log", h.ListSyncLog)
}

// syncBlockedResponse is the 422 body of a sync stopped by the period lock.
// It carries the skipped result next to the error.
type syncBlockedResponse struct {
	dto.Response
	Data *integrationapp.SyncResult `json:"data"`
}

// SyncDocument pushes one document to QuickBooks.
// POST /api/v1/quickbooks/sync/:id
func (h *QuickBooksHandler) SyncDocument(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	result, err := h.service.SyncDocument(c.Request.Context(), tenantID, userID, id)
	if de, locked := shared.AsDomainError(err); locked && de.Code == periodlock.CodePeriodLocked {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodePeriodLocked, de.Message, middleware.GetRequestID(c))
		c.JSON(http.StatusUnprocessableEntity, syncBlockedResponse{Response: resp, Data: result})
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SyncBatch pushes many documents. Per-document outcomes are in the body;
// the request itself succeeds even when some documents were skipped.
// POST /api/v1/quickbooks/sync
func (h *QuickBooksHandler) SyncBatch(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req integrationapp.BatchSyncRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.service.SyncBatch(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListSyncLog pages through the sync log.
// GET /api/v1/quickbooks/sync-log
func (h *QuickBooksHandler) ListSyncLog(c *gin.Context) {
	tenantID, _, ok := h.caller(c)
	if !ok {
		return
	}
	var filter integrationapp.SyncLogListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.service.ListSyncLog(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

package handler

import (
	periodlockapp "github.com/commandx/backend/internal/application/periodlock"
	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/commandx/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PeriodLockHandler serves the advisory, enforcement and admin endpoints of
// the accounting period lock.
type PeriodLockHandler struct {
	BaseHandler
	advisory    *periodlockapp.AdvisoryGate
	enforcement *periodlockapp.EnforcementGate
	admin       *periodlockapp.AdminService
	logger      *zap.Logger
}

// NewPeriodLockHandler creates a new period lock handler
func NewPeriodLockHandler(
	advisory *periodlockapp.AdvisoryGate,
	enforcement *periodlockapp.EnforcementGate,
	admin *periodlockapp.AdminService,
	logger *zap.Logger,
) *PeriodLockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodLockHandler{
		advisory:    advisory,
		enforcement: enforcement,
		admin:       admin,
		logger:      logger,
	}
}

// RegisterRoutes mounts the handler under /period-lock
func (h *PeriodLockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/period-lock")
	g.GET("/status", h.Status)
	g.POST("/check", h.Check)
	g.POST("/authorize", h.Authorize)

	admin := g.Group("", middleware.RequirePermission(middleware.PermissionManagePeriodLock, h.logger))
	admin.GET("/settings", h.GetSettings)
	admin.PUT("/settings", h.UpdateSettings)
	admin.GET("/periods", h.ListPeriods)
	admin.POST("/periods", h.CreatePeriod)
	admin.GET("/periods/matching", h.MatchingPeriods)
	admin.GET("/periods/:id", h.GetPeriod)
	admin.PUT("/periods/:id", h.UpdatePeriod)
	admin.DELETE("/periods/:id", h.DeletePeriod)
	admin.POST("/periods/:id/lock", h.LockPeriod)
	admin.POST("/periods/:id/unlock", h.UnlockPeriod)
	admin.GET("/violations", h.ListViolations)
}

// CheckDateRequest asks whether a form date is usable
type CheckDateRequest struct {
	Date       string `json:"date"`
	EntityType string `json:"entity_type"`
}

// AuthorizeRequest asks for a binding decision on a dated mutation
type AuthorizeRequest struct {
	Date       string     `json:"date" binding:"required"`
	EntityType string     `json:"entity_type" binding:"required"`
	EntityID   *uuid.UUID `json:"entity_id"`
	Action     string     `json:"action" binding:"required"`
	Source     string     `json:"source"`
}

// Status returns the cached lock state for date pickers.
// GET /api/v1/period-lock/status
func (h *PeriodLockHandler) Status(c *gin.Context) {
	tenantID, _, ok := h.caller(c)
	if !ok {
		return
	}
	h.Success(c, h.advisory.Status(c.Request.Context(), tenantID))
}

// Check validates a single form date.
// POST /api/v1/period-lock/check
func (h *PeriodLockHandler) Check(c *gin.Context) {
	tenantID, _, ok := h.caller(c)
	if !ok {
		return
	}
	var req CheckDateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.Success(c, h.advisory.CheckDate(c.Request.Context(), tenantID, req.Date, req.EntityType))
}

// Authorize returns the enforcement decision. A denial is a normal 200
// response; callers must inspect allowed.
// POST /api/v1/period-lock/authorize
func (h *PeriodLockHandler) Authorize(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req AuthorizeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	// an unparseable date stays zero and is denied by the gate
	date, _ := periodlock.ParseDate(req.Date)
	source := req.Source
	if source == "" {
		source = "api"
	}
	decision := h.enforcement.Authorize(c.Request.Context(), periodlockapp.AuthorizeRequest{
		TenantID:   tenantID,
		Date:       date,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		UserID:     userID,
		Action:     periodlock.Action(req.Action),
		Source:     source,
	})
	h.Success(c, decision)
}

// GetSettings returns the global lock setting.
// GET /api/v1/period-lock/settings
func (h *PeriodLockHandler) GetSettings(c *gin.Context) {
	tenantID, _, ok := h.caller(c)
	if !ok {
		return
	}
	settings, err := h.admin.GetSettings(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// UpdateSettings replaces the global lock setting.
// PUT /api/v1/period-lock/settings
func (h *PeriodLockHandler) UpdateSettings(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req periodlockapp.UpdateSettingsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	settings, err := h.admin.UpdateSettings(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// ListPeriods lists every accounting period of the tenant.
// GET /api/v1/period-lock/periods
func (h *PeriodLockHandler) ListPeriods(c *gin.Context) {
	tenantID, _, ok := h.caller(c)
	if !ok {
		return
	}
	periods, err := h.admin.ListPeriods(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, periods)
}

// GetPeriod returns one accounting period.
// GET /api/v1/period-lock/periods/:id
func (h *PeriodLockHandler) GetPeriod(c *gin.Context) {
	tenantID, _, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	period, err := h.admin.GetPeriod(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// CreatePeriod creates an accounting period.
// POST /api/v1/period-lock/periods
func (h *PeriodLockHandler) CreatePeriod(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	var req periodlockapp.CreatePeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	period, err := h.admin.CreatePeriod(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, period)
}

// UpdatePeriod renames or moves an accounting period.
// PUT /api/v1/period-lock/periods/:id
func (h *PeriodLockHandler) UpdatePeriod(c *gin.Context) {
	tenantID, _, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req periodlockapp.UpdatePeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	period, err := h.admin.UpdatePeriod(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// LockPeriod locks an accounting period.
// POST /api/v1/period-lock/periods/:id/lock
func (h *PeriodLockHandler) LockPeriod(c *gin.Context) {
	h.setLocked(c, true)
}

// UnlockPeriod unlocks an accounting period.
// POST /api/v1/period-lock/periods/:id/unlock
func (h *PeriodLockHandler) UnlockPeriod(c *gin.Context) {
	h.setLocked(c, false)
}

func (h *PeriodLockHandler) setLocked(c *gin.Context, locked bool) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var (
		period *periodlockapp.PeriodResponse
		err    error
	)
	if locked {
		period, err = h.admin.LockPeriod(c.Request.Context(), tenantID, userID, id)
	} else {
		period, err = h.admin.UnlockPeriod(c.Request.Context(), tenantID, userID, id)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// DeletePeriod deletes an accounting period.
// DELETE /api/v1/period-lock/periods/:id
func (h *PeriodLockHandler) DeletePeriod(c *gin.Context) {
	tenantID, _, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.admin.DeletePeriod(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// MatchingPeriods lists every locked period containing ?date=.
// GET /api/v1/period-lock/periods/matching
func (h *PeriodLockHandler) MatchingPeriods(c *gin.Context) {
	tenantID, _, ok := h.caller(c)
	if !ok {
		return
	}
	date := c.Query("date")
	if date == "" {
		h.BadRequest(c, "date query parameter is required")
		return
	}
	periods, err := h.admin.MatchingPeriods(c.Request.Context(), tenantID, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, periods)
}

// ListViolations lists recorded violations, newest first.
// GET /api/v1/period-lock/violations
func (h *PeriodLockHandler) ListViolations(c *gin.Context) {
	tenantID, _, ok := h.caller(c)
	if !ok {
		return
	}
	var filter periodlockapp.ViolationListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.admin.ListViolations(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

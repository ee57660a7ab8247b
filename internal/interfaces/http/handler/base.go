// Package handler contains the HTTP handlers of the backend API.
package handler

import (
	"errors"
	"net/http"

	"github.com/commandx/backend/internal/domain/integration"
	"github.com/commandx/backend/internal/domain/periodlock"
	"github.com/commandx/backend/internal/domain/shared"
	"github.com/commandx/backend/internal/infrastructure/logger"
	"github.com/commandx/backend/internal/interfaces/http/dto"
	"github.com/commandx/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errMissingIdentity = errors.New("authenticated tenant or user missing")

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// identity returns the tenant and user of the authenticated caller
func identity(c *gin.Context) (tenantID, userID uuid.UUID, err error) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		return uuid.Nil, uuid.Nil, errMissingIdentity
	}
	tenantID, userID = claims.TenantUUID(), claims.UserUUID()
	if tenantID == uuid.Nil || userID == uuid.Nil {
		return uuid.Nil, uuid.Nil, errMissingIdentity
	}
	return tenantID, userID, nil
}

// caller resolves the caller identity, writing a 401 when it is missing
func (h *BaseHandler) caller(c *gin.Context) (tenantID, userID uuid.UUID, ok bool) {
	tenantID, userID, err := identity(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, userID, true
}

// pathID parses the :id path parameter, writing a 400 when it is malformed
func (h *BaseHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds the request body, writing a 400 on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.bindError(c, err)
		return false
	}
	return true
}

// bindQuery binds query parameters, writing a 400 on failure
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.bindError(c, err)
		return false
	}
	return true
}

func (h *BaseHandler) bindError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); len(details) > 0 {
		h.ValidationError(c, details)
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed request body")
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessPage sends one page of results with pagination meta
func SuccessPage[T any](c *gin.Context, page shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(
		page.Items, page.Total, page.Page, page.PageSize, page.TotalPages))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		middleware.GetRequestID(c),
		details,
	))
}

// HandleError converts service errors to HTTP responses. Domain errors keep
// their message; infrastructure failures are reported generically.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	if domainErr, ok := shared.AsDomainError(err); ok {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	log := logger.L(c.Request.Context())
	switch {
	case errors.Is(err, periodlock.ErrStoreUnreachable):
		log.Error("period store unreachable", zap.Error(err))
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable,
			"Accounting period configuration is temporarily unavailable")
	case errors.Is(err, integration.ErrNotConnected):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable,
			"QuickBooks is not connected")
	case errors.Is(err, integration.ErrUnsupportedEntity):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeUnsupported,
			"This document type cannot be synced to QuickBooks")
	case errors.Is(err, integration.ErrRequestFailed), errors.Is(err, integration.ErrInvalidResponse):
		log.Warn("quickbooks call failed", zap.Error(err))
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstreamFailed, err.Error())
	default:
		log.Error("unhandled error", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
	}
}

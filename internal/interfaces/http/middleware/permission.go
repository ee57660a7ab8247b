package middleware

import (
	"net/http"

	"github.com/commandx/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PermissionManagePeriodLock grants access to the lock configuration and
// the violation log
const PermissionManagePeriodLock = "period_lock:manage"

// RequirePermission aborts with 403 unless the caller's token grants
// permission. It must run after JWTAuth.
func RequirePermission(permission string, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil || !claims.HasPermission(permission) {
			fields := []zap.Field{
				zap.String("required", permission),
				zap.String("path", c.Request.URL.Path),
			}
			if claims != nil {
				fields = append(fields, zap.String("user_id", claims.UserID))
			}
			log.Warn("Permission denied", fields...)
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden,
				"You do not have permission to perform this action",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http"

	"leaveflow/internal/policy"
	"leaveflow/internal/shared/apperror"
	"leaveflow/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// Authorize gates a route on a role-based policy check. Per-request grants
// (override roles on a leave type) cannot be known at routing time, so
// services that need them call the policy service directly instead.
func Authorize(policies policy.Service, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			response.Error(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "missing auth context", nil)
			c.Abort()
			return
		}

		allowed, err := policies.Authorize(c.Request.Context(), role, resource, action, nil)
		if err != nil {
			response.Error(c, http.StatusInternalServerError, apperror.CodeInternalError, "authorization check failed", nil)
			c.Abort()
			return
		}
		if !allowed {
			response.Error(c, http.StatusForbidden, apperror.CodeForbidden, "you do not have permission to perform this action", map[string]string{
				"required": resource + ":" + action,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/planning_backend/utils"
)

// AuthMiddleware validates the bearer token and hydrates the request context
// with the claims every downstream query depends on (tenant id above all:
// the tenant guard plugin reads it from context).
// Requests without an Authorization header pass through unauthenticated;
// handlers that need a tenant reject them via RequireTenant.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		bearer := "Bearer "
		if len(auth) > len(bearer) {
			auth = auth[len(bearer):]
		}

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		customClaim, _ := validate.Claims.(*utils.JwtCustomClaim)

		ctx := c.Request.Context()
		ctx = utils.SetTokenInContext(ctx, auth)
		ctx = utils.SetTenantIdInContext(ctx, customClaim.TenantId)
		ctx = utils.SetUserIdInContext(ctx, customClaim.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CorrelationIdMiddleware assigns a correlation id to every request, reusing
// the caller-provided header when present.
func CorrelationIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.Request.Header.Get("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("X-Correlation-Id", correlationId)
		c.Next()
	}
}

// RequireTenant aborts requests that carry no tenant claim.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tenantId, ok := utils.GetTenantIdFromContext(c.Request.Context()); !ok || tenantId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "tenant is required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

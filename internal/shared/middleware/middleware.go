package middleware

import (
	"net/http"
	"slices"
	"strings"

	"tripstock/internal/shared/config"
	"tripstock/internal/shared/utils/response"
	"tripstock/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	RoleAdmin   = "ADMIN"
	RoleStaff   = "STAFF"
	RoleChannel = "CHANNEL"
	RoleUser    = "USER"

	// TenantHeader lets trusted callers pick the tenant explicitly
	TenantHeader = "X-Tenant-ID"

	tenantKey = "tenant_id"
)

// JWTAuth creates a JWT authentication middleware
func JWTAuth() gin.HandlerFunc {
	return JWTAuthWithConfig(config.Load())
}

// JWTAuthWithConfig creates a JWT authentication middleware with config
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	log := logger.GetDefault()
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil, nil)
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWT.Secret), nil
		})
		if err != nil || !token.Valid {
			log.LogAuthFailure(c.Request.Context(), "invalid token", c.ClientIP())
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid or expired token", nil, nil)
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
				log.LogAuthFailure(c.Request.Context(), "wrong token type", c.ClientIP())
				response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid token type", nil, nil)
				c.Abort()
				return
			}
			c.Set("user_id", claims["user_id"])
			c.Set("user_role", claims["role"])
			if tenant, ok := claims["tenant_id"].(string); ok {
				c.Set("claim_tenant_id", tenant)
			}
		}

		c.Next()
	}
}

// RequireAdmin middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(RoleAdmin)
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get("user_role"); !exists {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		if hasRole(c, requiredRoles...) {
			c.Next()
			return
		}

		response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		c.Abort()
	}
}

func hasRole(c *gin.Context, roles ...string) bool {
	return slices.Contains(roles, c.GetString("user_role"))
}

// Tenant resolves the tenant from the token claim or the X-Tenant-ID header.
// A claim wins and a header that contradicts it is rejected. Without a claim
// only operators may name a tenant.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(TenantHeader)
		if claim, ok := c.Get("claim_tenant_id"); ok {
			claimed, _ := claim.(string)
			if raw != "" && raw != claimed {
				response.RespondJSON(c, "error", http.StatusForbidden, "tenant does not match token", nil, nil)
				c.Abort()
				return
			}
			raw = claimed
		} else if raw != "" && !hasRole(c, RoleAdmin, RoleStaff) {
			response.RespondJSON(c, "error", http.StatusForbidden, "only operators may select a tenant", nil, nil)
			c.Abort()
			return
		}

		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "a valid tenant is required", nil, nil)
			c.Abort()
			return
		}

		c.Set(tenantKey, tenantID)
		c.Next()
	}
}

// TenantID returns the tenant resolved by Tenant
func TenantID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(tenantKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

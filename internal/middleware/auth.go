package middleware

import (
	"net/http"
	"shiftpool-service/internal/model"
	"shiftpool-service/pkg/jwtutil"
	"shiftpool-service/pkg/logger"
	"shiftpool-service/prometheus"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware verifies the JWT token and extracts claims
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromEcho(c)

		// Track authentication attempts
		prometheus.AuthAttemptsCounter.Inc()

		// Extract the token from the Authorization header
		tokenString := c.Request().Header.Get("Authorization")
		if tokenString == "" {
			log.Warn("Missing authorization token")
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && strings.ToUpper(tokenString[0:7]) == "BEARER " {
			tokenString = tokenString[7:]
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Warn("Invalid token", zap.Error(err))
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}

		// Increment successful auth counter
		prometheus.AuthSuccessCounter.Inc()

		// Store user information in the context
		c.Set("uid", claims.UID)
		c.Set("email", claims.Email)
		c.Set("freelancer", claims.Freelancer)

		// If token has tenant context, store it in the context
		if claims.TenantID != nil {
			c.Set("tenant_id", *claims.TenantID)
			c.Set("tenant_name", claims.TenantName)
			c.Set("role", claims.Role)

			// Add tenant info to logger
			log = log.With(
				zap.String("tenant_id", *claims.TenantID),
				zap.String("role", claims.Role),
			)
		}

		// Update logger with user information
		log = log.With(
			zap.String("uid", claims.UID),
			zap.String("email", claims.Email),
		)
		c.Set("logger", log)

		// Propagate the enriched logger to the request context so the
		// scheduling layer logs with the same fields
		req := c.Request()
		c.SetRequest(req.WithContext(logger.WithContext(req.Context(), log)))

		// Call the next handler
		return next(c)
	}
}

// RequireTenantContext ensures the request has tenant context in the JWT
func RequireTenantContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromEcho(c)

		// Check if tenant_id exists in context
		tenantID, ok := c.Get("tenant_id").(string)
		if !ok || tenantID == "" {
			log.Warn("Missing tenant context")
			prometheus.TenantContextMissingCounter.Inc()
			return c.JSON(http.StatusForbidden, echo.Map{
				"error":   "tenant context required",
				"message": "Please select a tenant before accessing this resource",
			})
		}

		// Tenant context exists, proceed
		return next(c)
	}
}

// RequireManager ensures the authenticated member may manage shifts in
// their tenant
func RequireManager(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, _ := c.Get("role").(string)
		if !model.IsManagerRole(role) {
			logger.FromEcho(c).Warn("Insufficient role for management operation",
				zap.String("role", role))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "manager role required"})
		}
		return next(c)
	}
}

// RequireFreelancer ensures the token belongs to a cross-tenant pool worker
func RequireFreelancer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		freelancer, _ := c.Get("freelancer").(bool)
		if !freelancer {
			logger.FromEcho(c).Warn("Freelancer endpoint called without freelancer token")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "freelancer account required"})
		}
		return next(c)
	}
}

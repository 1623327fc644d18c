package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"marketplace/internal/logging"
	"marketplace/internal/services"
)

// ErrorResponse is the error body every endpoint returns: a machine-readable
// kind plus a human message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// AuthMiddleware validates the Bearer token and stores the caller's
// identity on the context. Role resolution against the database happens in
// the services; the token only establishes who is calling.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authorization header must be a bearer token"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "invalid token claims"})
			c.Abort()
			return
		}

		userIDStr, _ := claims["user_id"].(string)
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "token carries no user identity"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		if email, ok := claims["email"].(string); ok {
			c.Set("user_email", email)
		}
		if role, ok := claims["role"].(string); ok {
			c.Set("user_role", role)
		}

		c.Next()
	}
}

// AdminMiddleware gates a route group to tokens issued with the admin role.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("user_role") != "admin" {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "permission_denied", Message: "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID reads the authenticated user id set by AuthMiddleware.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var (
		validationErr  *services.ValidationError
		transitionErr  *services.InvalidTransitionError
		permissionErr  *services.PermissionError
		crossVendorErr *services.CrossVendorError
		conflictErr    *services.ConcurrencyConflictError
		analyticsErr   *services.AnalyticsUnavailableError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: validationErr.Error()})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_transition", Message: transitionErr.Error()})
	case errors.As(err, &crossVendorErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cross_vendor", Message: crossVendorErr.Error()})
	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "permission_denied", Message: permissionErr.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "conflict", Message: conflictErr.Error()})
	case errors.As(err, &analyticsErr):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: analyticsErr.Error()})
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrEmployeeNotFound),
		errors.Is(err, services.ErrItemNotFound),
		errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: err.Error()})
	default:
		logging.LogKV("error", "request failed", map[string]interface{}{
			"path":  c.FullPath(),
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "something went wrong"})
	}
}

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "no authenticated user"})
		return uuid.Nil, false
	}
	return userID, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: name + " must be a valid uuid"})
		return uuid.Nil, false
	}
	return id, true
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-payroll-api/internal/middleware"
	"github.com/noah-isme/tutor-payroll-api/internal/models"
)

// claimsFromContext returns the authenticated caller, or nil when the token carried no subject.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok || claims == nil || claims.UserID == "" {
		return nil
	}
	return claims
}

package service

import (
	"github.com/noah-isme/tutor-payroll-api/internal/models"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
)

// requireAdmin refuses mutations unless the caller proved administrator privileges.
func requireAdmin(actor *models.JWTClaims) error {
	if actor == nil || !actor.IsAdmin() {
		return appErrors.ErrPermissionDenied
	}
	return nil
}

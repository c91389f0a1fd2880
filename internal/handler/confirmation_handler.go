package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-payroll-api/internal/dto"
	"github.com/noah-isme/tutor-payroll-api/internal/models"
	"github.com/noah-isme/tutor-payroll-api/internal/service"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
	"github.com/noah-isme/tutor-payroll-api/pkg/response"
)

type confirmationService interface {
	CheckExists(ctx context.Context, teacherID string, bounds models.PeriodBounds) (*models.PaymentConfirmation, bool, error)
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateConfirmationRequest) (*models.PaymentConfirmation, error)
	Get(ctx context.Context, id string) (*models.PaymentConfirmation, error)
	UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateConfirmationStatusRequest) (*models.PaymentConfirmation, error)
}

// ConfirmationHandler exposes the payment confirmation workflow.
type ConfirmationHandler struct {
	service confirmationService
}

// NewConfirmationHandler constructs the handler.
func NewConfirmationHandler(service confirmationService) *ConfirmationHandler {
	return &ConfirmationHandler{service: service}
}

// Check godoc
// @Summary Check whether a teacher's period payment is already confirmed
// @Tags Confirmations
// @Produce json
// @Param teacherId query string true "Teacher ID"
// @Param start query string true "Period start (YYYY-MM-DD)"
// @Param end query string true "Period end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /confirmations/check [get]
func (h *ConfirmationHandler) Check(c *gin.Context) {
	bounds, err := service.ParsePeriodBounds(strings.TrimSpace(c.Query("start")), strings.TrimSpace(c.Query("end")))
	if err != nil {
		response.Error(c, err)
		return
	}
	existing, exists, err := h.service.CheckExists(c.Request.Context(), strings.TrimSpace(c.Query("teacherId")), bounds)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ConfirmationCheckResponse{Exists: exists, Confirmation: existing}, nil)
}

// Create godoc
// @Summary Confirm the payment presented to a teacher for a period
// @Tags Confirmations
// @Accept json
// @Produce json
// @Param payload body dto.CreateConfirmationRequest true "Confirmation"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /confirmations [post]
func (h *ConfirmationHandler) Create(c *gin.Context) {
	var req dto.CreateConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid confirmation payload"))
		return
	}
	confirmation, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, confirmation)
}

// Get godoc
// @Summary Get a payment confirmation
// @Tags Confirmations
// @Produce json
// @Param id path string true "Confirmation ID"
// @Success 200 {object} response.Envelope
// @Router /confirmations/{id} [get]
func (h *ConfirmationHandler) Get(c *gin.Context) {
	confirmation, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, confirmation, nil)
}

// UpdateStatus godoc
// @Summary Approve or reject a pending confirmation
// @Tags Confirmations
// @Accept json
// @Produce json
// @Param id path string true "Confirmation ID"
// @Param payload body dto.UpdateConfirmationStatusRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /confirmations/{id}/status [patch]
func (h *ConfirmationHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateConfirmationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status payload"))
		return
	}
	req.Status = models.ConfirmationStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	confirmation, err := h.service.UpdateStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, confirmation, nil)
}

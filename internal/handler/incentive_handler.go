package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-payroll-api/internal/dto"
	"github.com/noah-isme/tutor-payroll-api/internal/models"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
	"github.com/noah-isme/tutor-payroll-api/pkg/response"
)

type incentiveService interface {
	RunRetentionIncentives(ctx context.Context, actor *models.JWTClaims, periodID string) ([]models.Incentive, error)
	RunPerfectAttendanceIncentives(ctx context.Context, actor *models.JWTClaims, periodID string) ([]models.Incentive, error)
	CreateManualIncentive(ctx context.Context, actor *models.JWTClaims, req dto.CreateIncentiveRequest) (*models.Incentive, error)
	MarkIncentivesPaid(ctx context.Context, actor *models.JWTClaims, req dto.MarkIncentivesPaidRequest) (int, error)
	List(ctx context.Context, filter models.IncentiveFilter) ([]models.Incentive, *models.Pagination, error)
}

// IncentiveHandler exposes incentive runs and settlement.
type IncentiveHandler struct {
	service incentiveService
}

// NewIncentiveHandler constructs the handler.
func NewIncentiveHandler(service incentiveService) *IncentiveHandler {
	return &IncentiveHandler{service: service}
}

// RunRetention godoc
// @Summary Compute retention incentives for a period
// @Tags Incentives
// @Accept json
// @Produce json
// @Param payload body dto.RunIncentivesRequest true "Period"
// @Success 201 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /incentives/retention [post]
func (h *IncentiveHandler) RunRetention(c *gin.Context) {
	h.run(c, models.IncentiveTypeRetention, h.service.RunRetentionIncentives)
}

// RunPerfectAttendance godoc
// @Summary Compute perfect-attendance incentives for a period
// @Tags Incentives
// @Accept json
// @Produce json
// @Param payload body dto.RunIncentivesRequest true "Period"
// @Success 201 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /incentives/perfect-attendance [post]
func (h *IncentiveHandler) RunPerfectAttendance(c *gin.Context) {
	h.run(c, models.IncentiveTypePerfectAttendance, h.service.RunPerfectAttendanceIncentives)
}

func (h *IncentiveHandler) run(c *gin.Context, kind models.IncentiveType, fn func(context.Context, *models.JWTClaims, string) ([]models.Incentive, error)) {
	var req dto.RunIncentivesRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PeriodID) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "periodId is required"))
		return
	}
	created, err := fn(c.Request.Context(), claimsFromContext(c), strings.TrimSpace(req.PeriodID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, dto.RunIncentivesResponse{
		PeriodID:   req.PeriodID,
		Type:       kind,
		Created:    len(created),
		Incentives: created,
	}, nil)
}

// Create godoc
// @Summary Grant a manual incentive
// @Tags Incentives
// @Accept json
// @Produce json
// @Param payload body dto.CreateIncentiveRequest true "Incentive"
// @Success 201 {object} response.Envelope
// @Router /incentives [post]
func (h *IncentiveHandler) Create(c *gin.Context) {
	var req dto.CreateIncentiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidIncentiveInput, "invalid incentive payload"))
		return
	}
	req.Type = models.IncentiveType(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	incentive, err := h.service.CreateManualIncentive(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, incentive)
}

// List godoc
// @Summary List incentives
// @Tags Incentives
// @Produce json
// @Param periodId query string false "Period ID"
// @Param teacherId query string false "Teacher ID"
// @Param type query string false "Incentive type"
// @Param paid query bool false "Paid flag"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /incentives [get]
func (h *IncentiveHandler) List(c *gin.Context) {
	filter := models.IncentiveFilter{
		PeriodID:  strings.TrimSpace(c.Query("periodId")),
		TeacherID: strings.TrimSpace(c.Query("teacherId")),
		Type:      models.IncentiveType(strings.ToUpper(strings.TrimSpace(c.Query("type")))),
	}
	if raw := c.Query("paid"); raw != "" {
		paid, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "paid must be true or false"))
			return
		}
		filter.Paid = &paid
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// MarkPaid godoc
// @Summary Mark incentives as paid
// @Tags Incentives
// @Accept json
// @Produce json
// @Param payload body dto.MarkIncentivesPaidRequest true "Incentive IDs"
// @Success 200 {object} response.Envelope
// @Router /incentives/mark-paid [post]
func (h *IncentiveHandler) MarkPaid(c *gin.Context) {
	var req dto.MarkIncentivesPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid mark-paid payload"))
		return
	}
	count, err := h.service.MarkIncentivesPaid(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MarkIncentivesPaidResponse{Count: count}, nil)
}

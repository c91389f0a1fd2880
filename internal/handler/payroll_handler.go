package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-payroll-api/internal/dto"
	"github.com/noah-isme/tutor-payroll-api/internal/middleware"
	"github.com/noah-isme/tutor-payroll-api/internal/models"
	"github.com/noah-isme/tutor-payroll-api/internal/service"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
	"github.com/noah-isme/tutor-payroll-api/pkg/response"
)

type paymentService interface {
	GetPeriodSummary(ctx context.Context, bounds models.PeriodBounds) (*models.PeriodSummary, error)
	GetTeacherPaymentDetails(ctx context.Context, bounds models.PeriodBounds, teacherID string) ([]models.TeacherPaymentTotal, error)
	SetClassManualPayability(ctx context.Context, actor *models.JWTClaims, classID string, payable bool) error
}

type periodService interface {
	List(ctx context.Context) ([]models.Period, error)
	Get(ctx context.Context, id string) (*models.Period, error)
	Resolve(ctx context.Context, date time.Time) (*models.Period, error)
}

type exportService interface {
	Generate(ctx context.Context, actor *models.JWTClaims, bounds models.PeriodBounds, format dto.ExportFormat) (*service.ExportResult, error)
	Open(token string) (*os.File, string, error)
}

// PayrollHandler exposes payment computations, periods and payout reports.
type PayrollHandler struct {
	payments paymentService
	periods  periodService
	exports  exportService
	resolver *periodResolver
}

// NewPayrollHandler constructs the handler. exports may be nil when report export is disabled.
func NewPayrollHandler(payments paymentService, periods periodService, exports exportService, location *time.Location) *PayrollHandler {
	var lookup periodLookup
	if periods != nil {
		lookup = periods
	}
	return &PayrollHandler{
		payments: payments,
		periods:  periods,
		exports:  exports,
		resolver: newPeriodResolver(lookup, location),
	}
}

// ListPeriods godoc
// @Summary List payroll periods
// @Tags Payroll
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payroll/periods [get]
func (h *PayrollHandler) ListPeriods(c *gin.Context) {
	periods, err := h.periods.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}

// ResolvePeriod godoc
// @Summary Find the payroll period containing a date
// @Tags Payroll
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /payroll/periods/resolve [get]
func (h *PayrollHandler) ResolvePeriod(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("date"))
	date, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD"))
		return
	}
	period, err := h.periods.Resolve(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// Summary godoc
// @Summary Platform-wide payment summary for a period
// @Tags Payroll
// @Produce json
// @Param start query string false "Period start (YYYY-MM-DD)"
// @Param end query string false "Period end (YYYY-MM-DD)"
// @Param month query string false "Month (YYYY-MM)"
// @Param periodId query string false "Period ID"
// @Success 200 {object} response.Envelope
// @Router /payroll/summary [get]
func (h *PayrollHandler) Summary(c *gin.Context) {
	bounds, source, err := h.resolver.fromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.payments.GetPeriodSummary(c.Request.Context(), bounds)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetPeriodMeta(c, bounds, source)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// TeacherPayments godoc
// @Summary Per-teacher payment totals with class breakdown
// @Tags Payroll
// @Produce json
// @Param start query string false "Period start (YYYY-MM-DD)"
// @Param end query string false "Period end (YYYY-MM-DD)"
// @Param month query string false "Month (YYYY-MM)"
// @Param periodId query string false "Period ID"
// @Param teacherId query string false "Restrict to one teacher"
// @Success 200 {object} response.Envelope
// @Router /payroll/teachers [get]
func (h *PayrollHandler) TeacherPayments(c *gin.Context) {
	bounds, source, err := h.resolver.fromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	totals, err := h.payments.GetTeacherPaymentDetails(c.Request.Context(), bounds, strings.TrimSpace(c.Query("teacherId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetPeriodMeta(c, bounds, source)
	response.JSON(c, http.StatusOK, totals, nil, middleware.ExtractMeta(c))
}

// SetPayability godoc
// @Summary Include or exclude a class from payment
// @Tags Payroll
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.SetPayabilityRequest true "Payability flag"
// @Success 200 {object} response.Envelope
// @Router /payroll/classes/{id}/payability [patch]
func (h *PayrollHandler) SetPayability(c *gin.Context) {
	var req dto.SetPayabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Payable == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "payable flag is required"))
		return
	}
	classID := c.Param("id")
	if err := h.payments.SetClassManualPayability(c.Request.Context(), claimsFromContext(c), classID, *req.Payable); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.PayabilityResponse{ClassID: classID, Payable: *req.Payable}, nil)
}

// CreateExport godoc
// @Summary Render a period payout report
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export request"
// @Success 201 {object} response.Envelope
// @Router /payroll/exports [post]
func (h *PayrollHandler) CreateExport(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "payroll exports are disabled"))
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export payload"))
		return
	}
	format := dto.ExportFormat(strings.ToLower(string(req.Format)))
	if format != dto.ExportFormatCSV && format != dto.ExportFormatPDF {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	bounds, source, err := h.resolver.resolve(c.Request.Context(), dto.PeriodQuery{
		Start:    req.Start,
		End:      req.End,
		Month:    req.Month,
		PeriodID: req.PeriodID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exports.Generate(c.Request.Context(), claimsFromContext(c), bounds, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetPeriodMeta(c, bounds, source)
	response.JSON(c, http.StatusCreated, dto.ExportResponse{
		ID:        result.ID,
		Format:    result.Format,
		Period:    result.Period,
		URL:       result.URL,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil, middleware.ExtractMeta(c))
}

// DownloadExport godoc
// @Summary Download a rendered payout report
// @Tags Payroll
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /payroll/exports/download [get]
func (h *PayrollHandler) DownloadExport(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "payroll exports are disabled"))
		return
	}
	file, name, err := h.exports.Open(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read report"))
		return
	}
	contentType := "text/csv"
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		contentType = "application/pdf"
	}
	response.Download(c, name, contentType, info.Size(), file)
}

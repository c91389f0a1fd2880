package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-payroll-api/internal/dto"
	internalmiddleware "github.com/noah-isme/tutor-payroll-api/internal/middleware"
	"github.com/noah-isme/tutor-payroll-api/internal/models"
	"github.com/noah-isme/tutor-payroll-api/internal/service"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
)

var (
	testLocation = time.FixedZone("UTC+7", 7*60*60)
	marchBounds  = models.PeriodBounds{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}
)

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newRequest(t *testing.T, method, target, role string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch v := body.(type) {
		case string:
			buf.WriteString(v)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(v))
		}
	}
	req, err := http.NewRequest(method, target, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	return req
}

// buildPayrollRouter mounts the production route table behind a header-driven fake authenticator.
func buildPayrollRouter(routes Routes) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(internalmiddleware.WithResponseMeta())
	api := router.Group("/api/v1")
	RegisterPublic(api, routes)
	secured := api.Group("", func(c *gin.Context) {
		role := c.GetHeader("X-Test-Role")
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": appErrors.ErrUnauthorized})
			return
		}
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "user-" + role, Role: models.UserRole(role)})
		c.Next()
	})
	Register(secured, routes)
	return router
}

type paymentServiceMock struct {
	totals        []models.TeacherPaymentTotal
	summary       *models.PeriodSummary
	lastBounds    models.PeriodBounds
	lastTeacherID string
	payability    map[string]bool
	err           error
}

func (m *paymentServiceMock) GetPeriodSummary(ctx context.Context, bounds models.PeriodBounds) (*models.PeriodSummary, error) {
	m.lastBounds = bounds
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

func (m *paymentServiceMock) GetTeacherPaymentDetails(ctx context.Context, bounds models.PeriodBounds, teacherID string) ([]models.TeacherPaymentTotal, error) {
	m.lastBounds = bounds
	m.lastTeacherID = teacherID
	if m.err != nil {
		return nil, m.err
	}
	return m.totals, nil
}

func (m *paymentServiceMock) SetClassManualPayability(ctx context.Context, actor *models.JWTClaims, classID string, payable bool) error {
	if classID == "missing" {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	if m.payability == nil {
		m.payability = make(map[string]bool)
	}
	m.payability[classID] = payable
	return nil
}

type periodServiceMock struct {
	periods []models.Period
}

func (m *periodServiceMock) List(ctx context.Context) ([]models.Period, error) {
	return m.periods, nil
}

func (m *periodServiceMock) Get(ctx context.Context, id string) (*models.Period, error) {
	for _, p := range m.periods {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
}

func (m *periodServiceMock) Resolve(ctx context.Context, date time.Time) (*models.Period, error) {
	return service.PeriodContaining(date, m.periods)
}

type exportServiceMock struct {
	lastBounds models.PeriodBounds
	lastFormat dto.ExportFormat
	file       string
}

func (m *exportServiceMock) Generate(ctx context.Context, actor *models.JWTClaims, bounds models.PeriodBounds, format dto.ExportFormat) (*service.ExportResult, error) {
	m.lastBounds = bounds
	m.lastFormat = format
	return &service.ExportResult{
		ID:        "export-1",
		Token:     "signed",
		URL:       "/api/v1/payroll/exports/download?token=signed",
		Format:    format,
		Period:    bounds,
		ExpiresAt: time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (m *exportServiceMock) Open(token string) (*os.File, string, error) {
	if token != "signed" {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := os.Open(m.file)
	if err != nil {
		return nil, "", err
	}
	return file, "payout_20250301_20250331_export-1.csv", nil
}

type incentiveServiceMock struct {
	created   []models.Incentive
	runErr    error
	lastReq   dto.CreateIncentiveRequest
	paidCount int
	filter    models.IncentiveFilter
}

func (m *incentiveServiceMock) RunRetentionIncentives(ctx context.Context, actor *models.JWTClaims, periodID string) ([]models.Incentive, error) {
	if m.runErr != nil {
		return nil, m.runErr
	}
	return m.created, nil
}

func (m *incentiveServiceMock) RunPerfectAttendanceIncentives(ctx context.Context, actor *models.JWTClaims, periodID string) ([]models.Incentive, error) {
	return m.RunRetentionIncentives(ctx, actor, periodID)
}

func (m *incentiveServiceMock) CreateManualIncentive(ctx context.Context, actor *models.JWTClaims, req dto.CreateIncentiveRequest) (*models.Incentive, error) {
	m.lastReq = req
	return &models.Incentive{ID: "inc-1", TeacherID: req.TeacherID, PeriodID: req.PeriodID, Type: req.Type, BonusAmount: decimal.NewFromInt(5)}, nil
}

func (m *incentiveServiceMock) MarkIncentivesPaid(ctx context.Context, actor *models.JWTClaims, req dto.MarkIncentivesPaidRequest) (int, error) {
	return m.paidCount, nil
}

func (m *incentiveServiceMock) List(ctx context.Context, filter models.IncentiveFilter) ([]models.Incentive, *models.Pagination, error) {
	m.filter = filter
	return m.created, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(m.created)}, nil
}

type confirmationServiceMock struct {
	existing *models.PaymentConfirmation
	created  int
}

func (m *confirmationServiceMock) CheckExists(ctx context.Context, teacherID string, bounds models.PeriodBounds) (*models.PaymentConfirmation, bool, error) {
	if m.existing != nil && m.existing.TeacherID == teacherID && m.existing.Bounds() == bounds {
		return m.existing, true, nil
	}
	return nil, false, nil
}

func (m *confirmationServiceMock) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateConfirmationRequest) (*models.PaymentConfirmation, error) {
	if m.existing != nil {
		return nil, appErrors.ErrDuplicateConfirmation
	}
	m.created++
	m.existing = &models.PaymentConfirmation{
		ID:          "conf-1",
		TeacherID:   req.TeacherID,
		PeriodStart: marchBounds.Start,
		PeriodEnd:   marchBounds.End,
		Amount:      req.Amount,
		Status:      models.ConfirmationStatusPending,
	}
	return m.existing, nil
}

func (m *confirmationServiceMock) Get(ctx context.Context, id string) (*models.PaymentConfirmation, error) {
	if m.existing == nil || m.existing.ID != id {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "confirmation not found")
	}
	return m.existing, nil
}

func (m *confirmationServiceMock) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateConfirmationStatusRequest) (*models.PaymentConfirmation, error) {
	current, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, appErrors.ErrFinalized
	}
	current.Status = req.Status
	return current, nil
}

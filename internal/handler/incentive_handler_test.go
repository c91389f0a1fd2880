package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
)

func TestIncentiveRunRoutes(t *testing.T) {
	svc := &incentiveServiceMock{created: []models.Incentive{{ID: "inc-1", TeacherID: "t9", Type: models.IncentiveTypeRetention}}}
	router := buildPayrollRouter(Routes{Incentives: NewIncentiveHandler(svc)})

	w := performRequest(router, newRequest(t, http.MethodPost, "/api/v1/incentives/retention", roleAdmin, `{"periodId":"mar"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"created":1`)
	require.Contains(t, w.Body.String(), `"type":"RETENTION"`)

	w = performRequest(router, newRequest(t, http.MethodPost, "/api/v1/incentives/perfect-attendance", roleAdmin, `{"periodId":"mar"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"type":"PERFECT_ATTENDANCE"`)

	w = performRequest(router, newRequest(t, http.MethodPost, "/api/v1/incentives/retention", roleAdmin, `{}`))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, newRequest(t, http.MethodPost, "/api/v1/incentives/retention", roleTeacher, `{"periodId":"mar"}`))
	require.Equal(t, http.StatusForbidden, w.Code)

	svc.runErr = appErrors.Clone(appErrors.ErrLocked, "an incentive run for this period is already in progress")
	w = performRequest(router, newRequest(t, http.MethodPost, "/api/v1/incentives/retention", roleAdmin, `{"periodId":"mar"}`))
	require.Equal(t, http.StatusLocked, w.Code)
	require.Equal(t, "LOCKED", decodeEnvelope(t, w).Error.Code)
}

func TestIncentiveCreateNormalisesType(t *testing.T) {
	svc := &incentiveServiceMock{}
	router := buildPayrollRouter(Routes{Incentives: NewIncentiveHandler(svc)})

	w := performRequest(router, newRequest(t, http.MethodPost, "/api/v1/incentives", roleAdmin,
		`{"teacherId":"t1","periodId":"mar","type":" manual ","percentage":"10","baseAmount":"50"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, models.IncentiveTypeManual, svc.lastReq.Type)
	require.Equal(t, "50", svc.lastReq.BaseAmount.String())

	w = performRequest(router, newRequest(t, http.MethodPost, "/api/v1/incentives", roleAdmin, `{"percentage":"ten"}`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_INCENTIVE_INPUT", decodeEnvelope(t, w).Error.Code)
}

func TestIncentiveListAndMarkPaid(t *testing.T) {
	svc := &incentiveServiceMock{paidCount: 2}
	router := buildPayrollRouter(Routes{Incentives: NewIncentiveHandler(svc)})

	w := performRequest(router, newRequest(t, http.MethodGet, "/api/v1/incentives?periodId=mar&type=retention&paid=false&page=2&pageSize=5", roleAdmin, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "mar", svc.filter.PeriodID)
	require.Equal(t, models.IncentiveTypeRetention, svc.filter.Type)
	require.NotNil(t, svc.filter.Paid)
	require.False(t, *svc.filter.Paid)
	require.Equal(t, 2, svc.filter.Page)
	require.Equal(t, 5, decodeEnvelope(t, w).Pagination.PageSize)

	w = performRequest(router, newRequest(t, http.MethodGet, "/api/v1/incentives?paid=maybe", roleAdmin, nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, newRequest(t, http.MethodPost, "/api/v1/incentives/mark-paid", roleAdmin, `{"ids":["inc-1","inc-2"]}`))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"count":2`)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
)

func TestPaymentServiceRankFormulaEndToEnd(t *testing.T) {
	classes := &mockClassStore{classes: []models.ClassRecord{
		payableClass("c1", "t1", "course-1", 3, 60),
		payableClass("c2", "t1", "course-1", 10, 60),
		payableClass("c3", "t1", "course-1", 17, 60),
	}}
	rates := &mockRateStore{ranks: []models.TeacherRank{{TeacherID: "t1", RankName: "Senior", RateMultiplier: dec("1.2")}}}
	svc := NewPaymentService(classes, rates, NewMetricsService(), nil)

	totals, err := svc.GetTeacherPaymentDetails(context.Background(), march2025, "")
	require.NoError(t, err)
	require.Len(t, totals, 1)

	total := totals[0]
	assert.Equal(t, "t1", total.TeacherID)
	assert.Equal(t, "36.00", total.TotalAmount.StringFixed(2))
	assert.Equal(t, 3, total.TotalClasses)
	assert.Equal(t, "3.00", total.TotalHours.StringFixed(2))
	assert.Equal(t, "12.00", total.AveragePerClass.StringFixed(2))
	require.Len(t, total.Classes, 3)
	for _, priced := range total.Classes {
		assert.Equal(t, models.RateSourceRankFormula, priced.RateSource)
		assert.Equal(t, models.DurationSourceCourse, priced.DurationSource)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, []string{total.Classes[0].ID, total.Classes[1].ID, total.Classes[2].ID})
}

func TestPaymentServiceExcludesUnconfirmedClasses(t *testing.T) {
	teacherMarkOnly := payableClass("c2", "t1", "course-1", 4, 60)
	teacherMarkOnly.AttendanceSides = []string{string(models.AttendanceSideTeacher)}
	excluded := payableClass("c3", "t1", "course-1", 5, 60)
	excluded.ManuallyPayable = false
	cancelled := payableClass("c4", "t1", "course-1", 6, 60)
	cancelled.Status = models.ClassStatusCancelled
	outside := payableClass("c5", "t1", "course-1", 7, 60)
	outside.ClassDate = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	classes := &mockClassStore{classes: []models.ClassRecord{
		payableClass("c1", "t1", "course-1", 3, 60),
		teacherMarkOnly,
		excluded,
		cancelled,
		outside,
	}}
	svc := NewPaymentService(classes, &mockRateStore{}, nil, nil)

	totals, err := svc.GetTeacherPaymentDetails(context.Background(), march2025, "t1")
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, 1, totals[0].TotalClasses)
	assert.Equal(t, "10.00", totals[0].TotalAmount.StringFixed(2))
}

func TestPaymentServiceIsIdempotent(t *testing.T) {
	classes := &mockClassStore{classes: []models.ClassRecord{
		payableClass("c1", "t1", "course-1", 3, 60),
		payableClass("c2", "t2", "course-2", 3, 45),
	}}
	rates := &mockRateStore{defaults: []models.CourseDefaultRate{{CourseID: "course-2", PerClassAmount: decimal.NewNullDecimal(dec("14.5"))}}}
	svc := NewPaymentService(classes, rates, nil, nil)

	first, err := svc.GetTeacherPaymentDetails(context.Background(), march2025, "")
	require.NoError(t, err)
	second, err := svc.GetTeacherPaymentDetails(context.Background(), march2025, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, classes.listCalls)
}

func TestAggregatePaymentsOrdersByAmountAndRoundsOnce(t *testing.T) {
	classes := []models.ClassRecord{
		payableClass("a1", "low", "course-1", 3, 60),
		payableClass("b1", "high", "course-2", 3, 60),
		payableClass("b2", "high", "course-2", 4, 60),
		payableClass("b3", "high", "course-2", 5, 60),
	}
	book := NewRateBook(
		[]models.RateOverride{{TeacherID: "high", CourseID: "course-2", PerClassAmount: dec("3.335")}},
		nil, nil,
	)
	totals := AggregatePayments(march2025, classes, book, NewRateResolver())
	require.Len(t, totals, 2)
	assert.Equal(t, "high", totals[0].TeacherID)
	assert.Equal(t, "10.01", totals[0].TotalAmount.StringFixed(2))
	assert.Equal(t, "3.34", totals[0].AveragePerClass.StringFixed(2))
	assert.Equal(t, "low", totals[1].TeacherID)
	assert.Equal(t, "10.00", totals[1].TotalAmount.StringFixed(2))
}

func TestPaymentServiceSummary(t *testing.T) {
	classes := &mockClassStore{classes: []models.ClassRecord{
		payableClass("c1", "t1", "course-1", 3, 60),
		payableClass("c2", "t1", "course-1", 4, 30),
		payableClass("c3", "t2", "course-1", 5, 90),
	}}
	svc := NewPaymentService(classes, &mockRateStore{}, nil, nil)

	summary, err := svc.GetPeriodSummary(context.Background(), march2025)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalTeachers)
	assert.Equal(t, 3, summary.TotalClasses)
	assert.Equal(t, "3.00", summary.TotalHours.StringFixed(2))
	assert.Equal(t, "30.00", summary.TotalPayment.StringFixed(2))
	assert.Equal(t, "15.00", summary.AvgPerTeacher.StringFixed(2))
	assert.Equal(t, "10.00", summary.AvgPerClass.StringFixed(2))
}

func TestPaymentServiceEmptyPeriod(t *testing.T) {
	svc := NewPaymentService(&mockClassStore{}, &mockRateStore{}, nil, nil)

	totals, err := svc.GetTeacherPaymentDetails(context.Background(), march2025, "")
	require.NoError(t, err)
	assert.Empty(t, totals)

	summary, err := svc.GetPeriodSummary(context.Background(), march2025)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalTeachers)
	assert.Equal(t, "0.00", summary.AvgPerClass.StringFixed(2))
}

func TestSetClassManualPayability(t *testing.T) {
	classes := &mockClassStore{classes: []models.ClassRecord{payableClass("c1", "t1", "course-1", 3, 60)}}
	svc := NewPaymentService(classes, &mockRateStore{}, nil, nil)
	ctx := context.Background()

	err := svc.SetClassManualPayability(ctx, teacherClaims, "c1", false)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPermissionDenied))

	err = svc.SetClassManualPayability(ctx, adminClaims, "missing", false)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, svc.SetClassManualPayability(ctx, adminClaims, "c1", false))
	assert.False(t, classes.payability["c1"])

	totals, err := svc.GetTeacherPaymentDetails(ctx, march2025, "")
	require.NoError(t, err)
	assert.Empty(t, totals)
}

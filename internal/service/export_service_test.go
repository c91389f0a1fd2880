package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-payroll-api/internal/dto"
	"github.com/noah-isme/tutor-payroll-api/internal/models"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
	"github.com/noah-isme/tutor-payroll-api/pkg/export"
	"github.com/noah-isme/tutor-payroll-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	classes := &mockClassStore{classes: []models.ClassRecord{
		payableClass("c1", "t1", "course-1", 3, 60),
		payableClass("c2", "t1", "course-1", 4, 60),
		payableClass("c3", "t2", "course-2", 5, 90),
	}}
	payments := NewPaymentService(classes, &mockRateStore{}, nil, nil)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	return NewExportService(payments, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), adminClaims, march2025, dto.ExportFormatCSV)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(result.URL, "/api/v1/payroll/exports/download?token="))
	require.Contains(t, result.RelativePath, "payout_20250301_20250331_")
	require.Equal(t, march2025, result.Period)

	file, name, err := svc.Open(result.Token)
	require.NoError(t, err)
	defer file.Close()
	require.Equal(t, result.RelativePath, name)

	body, err := io.ReadAll(file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Teacher ID,Teacher,Classes,Hours,Amount,Average / Class", lines[0])
	require.Equal(t, "t1,Teacher t1,2,2.00,20.00,10.00", lines[1])
	require.Equal(t, "t2,Teacher t2,1,1.50,15.00,15.00", lines[2])
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), adminClaims, march2025, dto.ExportFormatPDF)
	require.NoError(t, err)
	require.Equal(t, dto.ExportFormatPDF, result.Format)

	file, _, err := svc.Open(result.Token)
	require.NoError(t, err)
	defer file.Close()
	head := make([]byte, 4)
	_, err = io.ReadFull(file, head)
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(head))
}

func TestExportServiceRejectsBadRequests(t *testing.T) {
	svc := newExportServiceForTest(t)

	_, err := svc.Generate(context.Background(), teacherClaims, march2025, dto.ExportFormatCSV)
	require.True(t, appErrors.Is(err, appErrors.ErrPermissionDenied))

	_, err = svc.Generate(context.Background(), adminClaims, march2025, dto.ExportFormat("xlsx"))
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, _, err = svc.Open("garbage")
	require.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestBuildPayoutDatasetIncludesSummary(t *testing.T) {
	summary := &models.PeriodSummary{
		Period:        march2025,
		TotalTeachers: 2,
		TotalClasses:  3,
		TotalHours:    dec("3.5"),
		TotalPayment:  dec("35"),
		AvgPerTeacher: dec("17.5"),
		AvgPerClass:   dec("11.666"),
	}
	dataset := BuildPayoutDataset(nil, summary)
	require.Empty(t, dataset.Rows)
	require.Contains(t, dataset.Summary, "Period: 2025-03-01..2025-03-31")
	require.Contains(t, dataset.Summary, "Average per class: 11.67")
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "na", sanitizeFilename(""))
	require.Equal(t, "a-b_c", sanitizeFilename("a/b c"))
	require.Len(t, sanitizeFilename(strings.Repeat("x", 150)), 100)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-payroll-api/internal/dto"
	"github.com/noah-isme/tutor-payroll-api/internal/models"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
	"github.com/noah-isme/tutor-payroll-api/pkg/export"
	"github.com/noah-isme/tutor-payroll-api/pkg/storage"
)

type payoutSource interface {
	GetTeacherPaymentDetails(ctx context.Context, bounds models.PeriodBounds, teacherID string) ([]models.TeacherPaymentTotal, error)
	GetPeriodSummary(ctx context.Context, bounds models.PeriodBounds) (*models.PeriodSummary, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	ID           string
	RelativePath string
	Token        string
	URL          string
	Format       dto.ExportFormat
	Period       models.PeriodBounds
	ExpiresAt    time.Time
}

// ExportService renders period payout reports and persists them for signed download.
type ExportService struct {
	payments payoutSource
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

var payoutHeaders = []string{"Teacher ID", "Teacher", "Classes", "Hours", "Amount", "Average / Class"}

// NewExportService constructs an ExportService.
func NewExportService(payments payoutSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		payments: payments,
		storage:  store,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate renders the payout report for bounds and stores it.
func (s *ExportService) Generate(ctx context.Context, actor *models.JWTClaims, bounds models.PeriodBounds, format dto.ExportFormat) (*ExportResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	totals, err := s.payments.GetTeacherPaymentDetails(ctx, bounds, "")
	if err != nil {
		return nil, err
	}
	summary, err := s.payments.GetPeriodSummary(ctx, bounds)
	if err != nil {
		return nil, err
	}
	dataset := BuildPayoutDataset(totals, summary)
	title := fmt.Sprintf("Teacher Payout %s", bounds.Key())

	var payload []byte
	switch format {
	case dto.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case dto.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	id := uuid.NewString()
	relPath, err := s.storage.Save(buildExportFilename(bounds, id, format), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign report url")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("payout report generated",
		zap.String("export_id", id),
		zap.String("period", bounds.Key()),
		zap.String("format", string(format)),
		zap.Int("teachers", len(totals)),
		zap.String("actor_id", actor.UserID),
	)
	return &ExportResult{
		ID:           id,
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/payroll/exports/download?token=%s", prefix, token),
		Format:       format,
		Period:       bounds,
		ExpiresAt:    expiresAt,
	}, nil
}

// Open validates a download token and returns the stored file with its download name.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report no longer available")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report")
	}
	return file, filepath.Base(relPath), nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// BuildPayoutDataset lays out teacher totals in their aggregated order plus the period summary lines.
func BuildPayoutDataset(totals []models.TeacherPaymentTotal, summary *models.PeriodSummary) export.Dataset {
	rows := make([]map[string]string, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, map[string]string{
			"Teacher ID":      t.TeacherID,
			"Teacher":         t.TeacherName,
			"Classes":         fmt.Sprintf("%d", t.TotalClasses),
			"Hours":           t.TotalHours.StringFixed(reportingPlaces),
			"Amount":          t.TotalAmount.StringFixed(reportingPlaces),
			"Average / Class": t.AveragePerClass.StringFixed(reportingPlaces),
		})
	}
	dataset := export.Dataset{Headers: payoutHeaders, Rows: rows}
	if summary != nil {
		dataset.Summary = []string{
			fmt.Sprintf("Period: %s", summary.Period.Key()),
			fmt.Sprintf("Teachers: %d", summary.TotalTeachers),
			fmt.Sprintf("Classes: %d", summary.TotalClasses),
			fmt.Sprintf("Hours: %s", summary.TotalHours.StringFixed(reportingPlaces)),
			fmt.Sprintf("Total payment: %s", summary.TotalPayment.StringFixed(reportingPlaces)),
			fmt.Sprintf("Average per teacher: %s", summary.AvgPerTeacher.StringFixed(reportingPlaces)),
			fmt.Sprintf("Average per class: %s", summary.AvgPerClass.StringFixed(reportingPlaces)),
		}
	}
	return dataset
}

func buildExportFilename(bounds models.PeriodBounds, id string, format dto.ExportFormat) string {
	return fmt.Sprintf("payout_%s_%s_%s.%s",
		bounds.Start.Format("20060102"),
		bounds.End.Format("20060102"),
		sanitizeFilename(id),
		format,
	)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

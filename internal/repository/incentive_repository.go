package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutor-payroll-api/internal/models"
	"github.com/noah-isme/tutor-payroll-api/pkg/database"
)

const incentiveColumns = `id, teacher_id, period_id, type, percentage, base_amount, bonus_amount, retention_rate, notes, paid, paid_at, created_at`

// IncentiveRepository persists teacher incentives.
type IncentiveRepository struct {
	db *sqlx.DB
}

// NewIncentiveRepository constructs an IncentiveRepository.
func NewIncentiveRepository(db *sqlx.DB) *IncentiveRepository {
	return &IncentiveRepository{db: db}
}

// CreateBatch inserts all incentives in one transaction. IDs and timestamps are filled in place.
func (r *IncentiveRepository) CreateBatch(ctx context.Context, incentives []models.Incentive) error {
	if len(incentives) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range incentives {
		if incentives[i].ID == "" {
			incentives[i].ID = uuid.NewString()
		}
		if incentives[i].CreatedAt.IsZero() {
			incentives[i].CreatedAt = now
		}
	}
	const query = `INSERT INTO incentives (` + incentiveColumns + `)
	VALUES (:id, :teacher_id, :period_id, :type, :percentage, :base_amount, :bonus_amount, :retention_rate, :notes, :paid, :paid_at, :created_at)`
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range incentives {
			if _, err := tx.NamedExecContext(ctx, query, &incentives[i]); err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("create incentive for teacher %s: %w", incentives[i].TeacherID, ErrDuplicate)
				}
				return fmt.Errorf("create incentive: %w", err)
			}
		}
		return nil
	})
}

// ExistingTeacherIDs lists teachers already holding an incentive of kind for the period.
func (r *IncentiveRepository) ExistingTeacherIDs(ctx context.Context, periodID string, kind models.IncentiveType) ([]string, error) {
	const query = `SELECT DISTINCT teacher_id FROM incentives WHERE period_id = $1 AND type = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, periodID, kind); err != nil {
		return nil, fmt.Errorf("list existing incentive teachers: %w", err)
	}
	return ids, nil
}

// MarkPaid flips unpaid rows among ids to paid in a single statement and returns how many changed.
func (r *IncentiveRepository) MarkPaid(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE incentives SET paid = TRUE, paid_at = $2 WHERE id = ANY($1) AND paid = FALSE RETURNING id`
	var updated []string
	if err := r.db.SelectContext(ctx, &updated, query, pq.Array(ids), time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("mark incentives paid: %w", err)
	}
	return len(updated), nil
}

// List returns incentives matching filter along with the total count.
func (r *IncentiveRepository) List(ctx context.Context, filter models.IncentiveFilter) ([]models.Incentive, int, error) {
	base := "FROM incentives WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.PeriodID != "" {
		conditions = append(conditions, fmt.Sprintf("period_id = $%d", len(args)+1))
		args = append(args, filter.PeriodID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Paid != nil {
		conditions = append(conditions, fmt.Sprintf("paid = $%d", len(args)+1))
		args = append(args, *filter.Paid)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC, id ASC LIMIT %d OFFSET %d", incentiveColumns, base, size, offset)
	var incentives []models.Incentive
	if err := r.db.SelectContext(ctx, &incentives, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list incentives: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count incentives: %w", err)
	}
	return incentives, total, nil
}

// FindByID loads one incentive.
func (r *IncentiveRepository) FindByID(ctx context.Context, id string) (*models.Incentive, error) {
	query := fmt.Sprintf("SELECT %s FROM incentives WHERE id = $1", incentiveColumns)
	var incentive models.Incentive
	if err := r.db.GetContext(ctx, &incentive, query, id); err != nil {
		return nil, err
	}
	return &incentive, nil
}

package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-payroll-api/internal/dto"
	"github.com/noah-isme/tutor-payroll-api/internal/models"
	"github.com/noah-isme/tutor-payroll-api/internal/service"
	appErrors "github.com/noah-isme/tutor-payroll-api/pkg/errors"
)

const (
	periodSourceExplicit = "explicit"
	periodSourceMonth    = "month"
	periodSourcePeriod   = "period"
	periodSourceDefault  = "default"
)

type periodLookup interface {
	Get(ctx context.Context, id string) (*models.Period, error)
}

// periodResolver turns request parameters into inclusive period bounds.
type periodResolver struct {
	periods  periodLookup
	location *time.Location
	now      func() time.Time
}

func newPeriodResolver(periods periodLookup, location *time.Location) *periodResolver {
	if location == nil {
		location = time.UTC
	}
	return &periodResolver{periods: periods, location: location, now: time.Now}
}

// resolve honours, in order: start+end, month, periodId, then the current month in the payroll timezone.
func (r *periodResolver) resolve(ctx context.Context, q dto.PeriodQuery) (models.PeriodBounds, string, error) {
	start, end := strings.TrimSpace(q.Start), strings.TrimSpace(q.End)
	switch {
	case start != "" || end != "":
		if start == "" || end == "" {
			return models.PeriodBounds{}, "", appErrors.Clone(appErrors.ErrValidation, "start and end must be provided together")
		}
		bounds, err := service.ParsePeriodBounds(start, end)
		return bounds, periodSourceExplicit, err
	case strings.TrimSpace(q.Month) != "":
		bounds, err := service.ParseMonthBounds(strings.TrimSpace(q.Month))
		return bounds, periodSourceMonth, err
	case strings.TrimSpace(q.PeriodID) != "":
		if r.periods == nil {
			return models.PeriodBounds{}, "", appErrors.Clone(appErrors.ErrInternal, "period lookup not configured")
		}
		period, err := r.periods.Get(ctx, strings.TrimSpace(q.PeriodID))
		if err != nil {
			return models.PeriodBounds{}, "", err
		}
		return period.Bounds(), periodSourcePeriod, nil
	default:
		return service.CurrentMonthBounds(r.now().In(r.location)), periodSourceDefault, nil
	}
}

func (r *periodResolver) fromQuery(c *gin.Context) (models.PeriodBounds, string, error) {
	var q dto.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return models.PeriodBounds{}, "", appErrors.Clone(appErrors.ErrValidation, "invalid period parameters")
	}
	return r.resolve(c.Request.Context(), q)
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/consultbook/libs/db"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/model"
	"github.com/shopspring/decimal"
)

type ResourceRepository struct {
	pool *db.Pool
}

func NewResourceRepository(pool *db.Pool) *ResourceRepository {
	return &ResourceRepository{pool: pool}
}

func (r *ResourceRepository) GetResource(ctx context.Context, id string) (model.Resource, error) {
	return getResource(ctx, r.pool, id)
}

func getResource(ctx context.Context, q querier, id string) (model.Resource, error) {
	var res model.Resource
	err := q.QueryRow(ctx, `
		SELECT id::text, name, timezone, consulting_minutes, max_bookable_days,
			reservation_notice_hours, closed_on_holidays, currency
		FROM resources
		WHERE id = $1
	`, id).Scan(
		&res.ID,
		&res.Name,
		&res.Timezone,
		&res.ConsultingMinutes,
		&res.MaxBookableDays,
		&res.ReservationNoticeHours,
		&res.ClosedOnHolidays,
		&res.Currency,
	)
	if err != nil {
		if IsNotFound(err) || IsMalformedID(err) {
			return model.Resource{}, fmt.Errorf("resource %s: %w", id, apperr.ErrNotFound)
		}
		return model.Resource{}, err
	}

	if res.OpenHours, err = listOpenHours(ctx, q, id); err != nil {
		return model.Resource{}, err
	}
	if res.UnavailablePeriods, err = listUnavailablePeriods(ctx, q, id); err != nil {
		return model.Resource{}, err
	}
	if res.Services, err = listServices(ctx, q, id); err != nil {
		return model.Resource{}, err
	}
	if res.ClosureDays, err = listClosureDays(ctx, q, id); err != nil {
		return model.Resource{}, err
	}
	if res.Rates, err = listRates(ctx, q, id); err != nil {
		return model.Resource{}, err
	}
	return res, nil
}

func listOpenHours(ctx context.Context, q querier, resourceID string) ([]model.OpenHours, error) {
	rows, err := q.Query(ctx, `
		SELECT weekday, start_minute, end_minute
		FROM resource_open_hours
		WHERE resource_id = $1
		ORDER BY weekday ASC, id ASC
	`, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OpenHours
	for rows.Next() {
		var oh model.OpenHours
		if err := rows.Scan(&oh.Weekday, &oh.StartMinute, &oh.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, oh)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func listUnavailablePeriods(ctx context.Context, q querier, resourceID string) ([]model.UnavailablePeriod, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, start_time, end_time, COALESCE(reason, '')
		FROM resource_unavailable_periods
		WHERE resource_id = $1
		ORDER BY start_time ASC
	`, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UnavailablePeriod
	for rows.Next() {
		var p model.UnavailablePeriod
		if err := rows.Scan(&p.ID, &p.Start, &p.End, &p.Reason); err != nil {
			return nil, err
		}
		p.Start, p.End = p.Start.UTC(), p.End.UTC()
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func listServices(ctx context.Context, q querier, resourceID string) ([]model.AddOnService, error) {
	rows, err := q.Query(ctx, `
		SELECT name, percentage::text
		FROM resource_services
		WHERE resource_id = $1
		ORDER BY name ASC
	`, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AddOnService
	for rows.Next() {
		var (
			svc model.AddOnService
			pct string
		)
		if err := rows.Scan(&svc.Name, &pct); err != nil {
			return nil, err
		}
		if svc.Percentage, err = decimal.NewFromString(pct); err != nil {
			return nil, fmt.Errorf("service %s percentage: %w", svc.Name, err)
		}
		out = append(out, svc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func listClosureDays(ctx context.Context, q querier, resourceID string) ([]model.ClosureDay, error) {
	rows, err := q.Query(ctx, `
		SELECT month, day
		FROM resource_closure_days
		WHERE resource_id = $1
		ORDER BY month ASC, day ASC
	`, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ClosureDay
	for rows.Next() {
		var month, day int
		if err := rows.Scan(&month, &day); err != nil {
			return nil, err
		}
		out = append(out, model.ClosureDay{Month: time.Month(month), Day: day})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func listRates(ctx context.Context, q querier, resourceID string) (map[model.ConsultingType]decimal.Decimal, error) {
	rows, err := q.Query(ctx, `
		SELECT consulting_type, amount::text
		FROM resource_rates
		WHERE resource_id = $1
	`, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.ConsultingType]decimal.Decimal{}
	for rows.Next() {
		var ct, amount string
		if err := rows.Scan(&ct, &amount); err != nil {
			return nil, err
		}
		v, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("rate %s: %w", ct, err)
		}
		out[model.ConsultingType(ct)] = v
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

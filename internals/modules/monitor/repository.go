package monitor

import (
	"context"
	"time"

	"pulsewatch/pkg/db"
	"pulsewatch/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
)

type Repository struct {
	db     db.DBTX
	logger *zerolog.Logger
}

func NewRepository(dbExecutor db.DBTX, logger *zerolog.Logger) *Repository {
	return &Repository{
		db:     dbExecutor,
		logger: logger,
	}
}

func (r *Repository) GetCheckView(ctx context.Context, monitorID uuid.UUID) (CheckView, error) {
	const op string = "repo.monitor.get_check_view"

	const q = `
		SELECT id, url, kind, interval_sec, active
		FROM monitors
		WHERE id = $1`

	var (
		id   pgtype.UUID
		view CheckView
	)
	err := r.db.QueryRow(ctx, q, utils.ToPgUUID(monitorID)).
		Scan(&id, &view.URL, &view.Kind, &view.IntervalSec, &view.Active)
	if err != nil {
		return CheckView{}, utils.WrapRepoError(op, err, true, r.logger)
	}

	view.ID = utils.FromPgUUID(id)
	return view, nil
}

func (r *Repository) GetStatusView(ctx context.Context, monitorID uuid.UUID) (StatusView, error) {
	const op string = "repo.monitor.get_status_view"

	const q = `
		SELECT id, user_id, name, url, status
		FROM monitors
		WHERE id = $1`

	var (
		id     pgtype.UUID
		userID pgtype.UUID
		view   StatusView
	)
	err := r.db.QueryRow(ctx, q, utils.ToPgUUID(monitorID)).
		Scan(&id, &userID, &view.Name, &view.URL, &view.Status)
	if err != nil {
		return StatusView{}, utils.WrapRepoError(op, err, true, r.logger)
	}

	view.ID = utils.FromPgUUID(id)
	view.UserID = utils.FromPgUUID(userID)
	return view, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, monitorID uuid.UUID, status Status, checkedAt time.Time) error {
	const op string = "repo.monitor.update_status"

	const q = `
		UPDATE monitors
		SET status = $2, last_checked_at = $3, updated_at = now()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, q, utils.ToPgUUID(monitorID), string(status), utils.ToPgTimestamptz(checkedAt))
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}

// ListActive returns the schedule view of every active monitor, for
// the stalled-loop recovery sweep.
func (r *Repository) ListActive(ctx context.Context) ([]ScheduleView, error) {
	const op string = "repo.monitor.list_active"

	const q = `
		SELECT id, interval_sec, last_checked_at
		FROM monitors
		WHERE active = true`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	var views []ScheduleView
	for rows.Next() {
		var (
			id      pgtype.UUID
			view    ScheduleView
			checked pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &view.IntervalSec, &checked); err != nil {
			return nil, utils.WrapRepoError(op, err, false, r.logger)
		}
		view.ID = utils.FromPgUUID(id)
		if checked.Valid {
			t := checked.Time
			view.LastCheckedAt = &t
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}

	return views, nil
}

// AppendResult inserts one immutable result row.
func (r *Repository) AppendResult(ctx context.Context, monitorID uuid.UUID, statusCode *int32, responseTimeMs *int64, isUp bool, checkedAt time.Time) error {
	const op string = "repo.monitor.append_result"

	const q = `
		INSERT INTO monitor_results (monitor_id, status_code, response_time_ms, is_up, checked_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, q,
		utils.ToPgUUID(monitorID),
		utils.ToPgInt4(statusCode),
		utils.ToPgInt8(responseTimeMs),
		isUp,
		utils.ToPgTimestamptz(checkedAt),
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}

// RecentLatencies returns up to limit response times for a monitor,
// newest first. Unmeasured samples come back as nil.
func (r *Repository) RecentLatencies(ctx context.Context, monitorID uuid.UUID, limit int) ([]*int64, error) {
	const op string = "repo.monitor.recent_latencies"

	const q = `
		SELECT response_time_ms
		FROM monitor_results
		WHERE monitor_id = $1
		ORDER BY checked_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, q, utils.ToPgUUID(monitorID), limit)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	var latencies []*int64
	for rows.Next() {
		var v pgtype.Int8
		if err := rows.Scan(&v); err != nil {
			return nil, utils.WrapRepoError(op, err, false, r.logger)
		}
		latencies = append(latencies, utils.FromPgInt8(v))
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}

	return latencies, nil
}

// RecentFailures returns up to limit failed results, newest first.
func (r *Repository) RecentFailures(ctx context.Context, monitorID uuid.UUID, limit int) ([]Result, error) {
	const op string = "repo.monitor.recent_failures"

	const q = `
		SELECT id, monitor_id, status_code, response_time_ms, is_up, checked_at
		FROM monitor_results
		WHERE monitor_id = $1 AND is_up = false
		ORDER BY checked_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, q, utils.ToPgUUID(monitorID), limit)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			id      pgtype.UUID
			res     Result
			code    pgtype.Int4
			latency pgtype.Int8
			checked pgtype.Timestamptz
		)
		if err := rows.Scan(&res.ID, &id, &code, &latency, &res.IsUp, &checked); err != nil {
			return nil, utils.WrapRepoError(op, err, false, r.logger)
		}
		res.MonitorID = utils.FromPgUUID(id)
		res.StatusCode = utils.FromPgInt4(code)
		res.ResponseTimeMs = utils.FromPgInt8(latency)
		res.CheckedAt = utils.FromPgTimestamptz(checked)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}

	return results, nil
}

// GetStats aggregates results created after the window start.
func (r *Repository) GetStats(ctx context.Context, monitorID uuid.UUID, since time.Time) (Stats, error) {
	const op string = "repo.monitor.get_stats"

	const q = `
		SELECT
			count(*),
			count(*) FILTER (WHERE is_up),
			count(*) FILTER (WHERE NOT is_up),
			coalesce(avg(response_time_ms), 0),
			coalesce(max(checked_at), 'epoch'::timestamptz)
		FROM monitor_results
		WHERE monitor_id = $1 AND checked_at > $2`

	var (
		stats Stats
		last  pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, q, utils.ToPgUUID(monitorID), utils.ToPgTimestamptz(since)).
		Scan(&stats.TotalChecks, &stats.UpCount, &stats.DownCount, &stats.AvgResponseTime, &last)
	if err != nil {
		return Stats{}, utils.WrapRepoError(op, err, false, r.logger)
	}

	stats.LastCheck = utils.FromPgTimestamptz(last)
	return stats, nil
}

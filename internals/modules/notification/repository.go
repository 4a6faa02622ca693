package notification

import (
	"context"
	"encoding/json"

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

func (r *Repository) GetChannel(ctx context.Context, channelID uuid.UUID) (Channel, error) {
	const op string = "repo.notification.get_channel"

	const q = `
		SELECT id, user_id, name, provider, config, active, created_at
		FROM notification_channels
		WHERE id = $1`

	ch, err := scanChannel(r.db.QueryRow(ctx, q, utils.ToPgUUID(channelID)))
	if err != nil {
		return Channel{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return ch, nil
}

// ListActiveByUser returns a user's active channels, newest first.
func (r *Repository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]Channel, error) {
	const op string = "repo.notification.list_active_by_user"

	const q = `
		SELECT id, user_id, name, provider, config, active, created_at
		FROM notification_channels
		WHERE user_id = $1 AND active = true
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, q, utils.ToPgUUID(userID))
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, utils.WrapRepoError(op, err, false, r.logger)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}

	return channels, nil
}

// CreateLog inserts a pending audit row and returns its id.
func (r *Repository) CreateLog(ctx context.Context, channelID uuid.UUID, subject string, payload Payload) (int64, error) {
	const op string = "repo.notification.create_log"

	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	const q = `
		INSERT INTO notification_logs (channel_id, subject, status, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int64
	err = r.db.QueryRow(ctx, q, utils.ToPgUUID(channelID), subject, string(LogPending), raw).Scan(&id)
	if err != nil {
		return 0, utils.WrapRepoError(op, err, false, r.logger)
	}
	return id, nil
}

func (r *Repository) MarkLogSuccess(ctx context.Context, logID int64) error {
	const op string = "repo.notification.mark_log_success"

	const q = `UPDATE notification_logs SET status = $2, error_message = NULL WHERE id = $1`

	_, err := r.db.Exec(ctx, q, logID, string(LogSuccess))
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}

func (r *Repository) MarkLogFailure(ctx context.Context, logID int64, errMsg string) error {
	const op string = "repo.notification.mark_log_failure"

	const q = `UPDATE notification_logs SET status = $2, error_message = $3 WHERE id = $1`

	_, err := r.db.Exec(ctx, q, logID, string(LogFailure), utils.ToPgText(errMsg))
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (Channel, error) {
	var (
		id        pgtype.UUID
		userID    pgtype.UUID
		ch        Channel
		rawConfig []byte
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &userID, &ch.Name, &ch.Provider, &rawConfig, &ch.Active, &createdAt); err != nil {
		return Channel{}, err
	}

	ch.ID = utils.FromPgUUID(id)
	ch.UserID = utils.FromPgUUID(userID)
	ch.CreatedAt = utils.FromPgTimestamptz(createdAt)

	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &ch.Config); err != nil {
			return Channel{}, err
		}
	}
	if ch.Config == nil {
		ch.Config = map[string]string{}
	}

	return ch, nil
}

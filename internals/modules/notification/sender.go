package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ChannelStore interface {
	GetChannel(ctx context.Context, channelID uuid.UUID) (Channel, error)
	CreateLog(ctx context.Context, channelID uuid.UUID, subject string, payload Payload) (int64, error)
	MarkLogSuccess(ctx context.Context, logID int64) error
	MarkLogFailure(ctx context.Context, logID int64, errMsg string) error
}

// Sender executes one queued delivery: audit row, provider call, audit
// update. A returned error tells the queue to retry this channel.
type Sender struct {
	store    ChannelStore
	registry Registry
	logger   *zerolog.Logger
}

func NewSender(store ChannelStore, registry Registry, logger *zerolog.Logger) *Sender {
	return &Sender{
		store:    store,
		registry: registry,
		logger:   logger,
	}
}

// HandleSendNotification is the notification queue task body.
func (s *Sender) HandleSendNotification(ctx context.Context, raw json.RawMessage) error {
	var args SendArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		s.logger.Error().Err(err).Msg("undecodable notification task args")
		return nil
	}

	return s.SendAlert(ctx, args.ChannelID, args.Subject, args.Message)
}

func (s *Sender) SendAlert(ctx context.Context, channelID uuid.UUID, subject, message string) error {
	ch, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		if apperror.IsKind(err, apperror.NotFound) {
			// channel deleted after the alert was queued, nothing to retry
			s.logger.Warn().Stringer("channel_id", channelID).Msg("channel gone, dropping alert")
			return nil
		}
		return err
	}
	if !ch.Active {
		s.logger.Debug().Stringer("channel_id", channelID).Msg("channel deactivated, dropping alert")
		return nil
	}

	logID, err := s.store.CreateLog(ctx, ch.ID, subject, Payload{Subject: subject, Message: message})
	if err != nil {
		return err
	}

	sendErr := s.deliver(ctx, ch, subject, message)
	if sendErr != nil {
		if err := s.store.MarkLogFailure(ctx, logID, sendErr.Error()); err != nil {
			s.logger.Error().Err(err).Int64("log_id", logID).Msg("failed to update notification log")
		}
		metrics.NotificationsTotal.WithLabelValues(string(ch.Provider), "failure").Inc()

		s.logger.Error().
			Err(sendErr).
			Stringer("channel_id", ch.ID).
			Str("provider", string(ch.Provider)).
			Msg("notification delivery failed")
		// propagate so the queue's retry policy re-attempts this channel
		return sendErr
	}

	if err := s.store.MarkLogSuccess(ctx, logID); err != nil {
		s.logger.Error().Err(err).Int64("log_id", logID).Msg("failed to update notification log")
	}
	metrics.NotificationsTotal.WithLabelValues(string(ch.Provider), "success").Inc()

	s.logger.Info().
		Stringer("channel_id", ch.ID).
		Str("provider", string(ch.Provider)).
		Str("subject", subject).
		Msg("notification delivered")
	return nil
}

func (s *Sender) deliver(ctx context.Context, ch Channel, subject, message string) error {
	provider, ok := s.registry[ch.Provider]
	if !ok {
		return fmt.Errorf("provider %q is not supported", ch.Provider)
	}
	return provider.Send(ctx, ch.Config, subject, message)
}

package notification

import (
	"context"
	"errors"
	"fmt"

	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/metrics"
	"pulsewatch/pkg/taskqueue"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TaskSendNotification is the notification queue task name; one task
// per (channel, alert) so the queue retries channels independently.
const TaskSendNotification = "notification.send"

type SendArgs struct {
	ChannelID uuid.UUID `json:"channel_id"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
}

type ChannelLister interface {
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]Channel, error)
}

// Dispatcher fans an alert out to every active channel of a monitor's
// owner, one queued task per channel.
type Dispatcher struct {
	channels ChannelLister
	queue    taskqueue.Enqueuer
	logger   *zerolog.Logger
}

func NewDispatcher(channels ChannelLister, queue taskqueue.Enqueuer, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		queue:    queue,
		logger:   logger,
	}
}

func (d *Dispatcher) DispatchStatusChange(ctx context.Context, m monitor.StatusView, newStatus monitor.Status, statusCode int, latencyMs int64) error {
	subject := fmt.Sprintf("Monitor %s is %s", m.Name, newStatus)

	var message string
	if newStatus == monitor.StatusDown {
		message = fmt.Sprintf("%s (%s) is DOWN. Reason: %s", m.Name, m.URL, downReason(statusCode))
	} else {
		message = fmt.Sprintf("%s (%s) is back UP. Response time: %dms", m.Name, m.URL, latencyMs)
	}

	metrics.StatusTransitionsTotal.WithLabelValues(string(newStatus)).Inc()
	return d.dispatch(ctx, m.UserID, subject, message)
}

func (d *Dispatcher) DispatchPerformanceWarning(ctx context.Context, m monitor.StatusView, latencyMs int64, baselineMean float64) error {
	subject := fmt.Sprintf("Performance Warning: %s", m.Name)
	message := fmt.Sprintf(
		"Response time for %s (%s) spiked to %dms (baseline average %.0fms).",
		m.Name, m.URL, latencyMs, baselineMean,
	)

	return d.dispatch(ctx, m.UserID, subject, message)
}

// dispatch enqueues one send task per active channel. A failed enqueue
// for one channel does not stop the others.
func (d *Dispatcher) dispatch(ctx context.Context, userID uuid.UUID, subject, message string) error {
	channels, err := d.channels.ListActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		d.logger.Debug().
			Stringer("user_id", userID).
			Str("subject", subject).
			Msg("no active channels, alert dropped")
		return nil
	}

	var errs []error
	for _, ch := range channels {
		args := SendArgs{
			ChannelID: ch.ID,
			Subject:   subject,
			Message:   message,
		}
		if err := d.queue.Enqueue(ctx, TaskSendNotification, args, 0); err != nil {
			d.logger.Error().
				Err(err).
				Stringer("channel_id", ch.ID).
				Msg("failed to enqueue notification")
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func downReason(statusCode int) string {
	if statusCode == 0 {
		return "Timeout"
	}
	return fmt.Sprintf("%d Error", statusCode)
}

package result

import (
	"context"
	"time"

	"pulsewatch/internals/modules/monitor"
	"pulsewatch/internals/modules/prober"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type MonitorStore interface {
	StatusView(ctx context.Context, monitorID uuid.UUID) (monitor.StatusView, error)
	AppendResult(ctx context.Context, monitorID uuid.UUID, statusCode *int32, responseTimeMs *int64, isUp bool, checkedAt time.Time) error
	SetStatus(ctx context.Context, monitorID uuid.UUID, status monitor.Status, checkedAt time.Time) error
}

type Prober interface {
	Probe(ctx context.Context, target string, kind monitor.Kind) prober.Outcome
}

type Detector interface {
	Detect(ctx context.Context, m monitor.StatusView, latencyMs int64) error
}

type AlertDispatcher interface {
	DispatchStatusChange(ctx context.Context, m monitor.StatusView, newStatus monitor.Status, statusCode int, latencyMs int64) error
}

// Processor turns one probe outcome into durable state plus side
// effects: result row, status update, then either a status-change
// alert or anomaly detection, never both in one cycle.
type Processor struct {
	monitors MonitorStore
	prober   Prober
	detector Detector
	alerts   AlertDispatcher
	logger   *zerolog.Logger
}

func NewProcessor(
	monitors MonitorStore,
	prb Prober,
	detector Detector,
	alerts AlertDispatcher,
	logger *zerolog.Logger,
) *Processor {
	return &Processor{
		monitors: monitors,
		prober:   prb,
		detector: detector,
		alerts:   alerts,
		logger:   logger,
	}
}

// RunCheck executes one full check cycle body for a monitor the
// scheduler has already confirmed active.
func (p *Processor) RunCheck(ctx context.Context, cv monitor.CheckView) error {
	view, err := p.monitors.StatusView(ctx, cv.ID)
	if err != nil {
		return err
	}

	out := p.prober.Probe(ctx, cv.URL, cv.Kind)

	newStatus := monitor.StatusDown
	if out.IsUp {
		newStatus = monitor.StatusUp
	}

	// The first transition out of PAUSED has no previous state worth
	// alerting about; only UP<->DOWN flips fire.
	statusChanged := view.Status != newStatus && view.Status != monitor.StatusPaused

	now := time.Now()

	var statusCode *int32
	if out.StatusCode != 0 {
		code := int32(out.StatusCode)
		statusCode = &code
	}
	latency := out.LatencyMs

	if err := p.monitors.AppendResult(ctx, cv.ID, statusCode, &latency, out.IsUp, now); err != nil {
		return err
	}

	if err := p.monitors.SetStatus(ctx, cv.ID, newStatus, now); err != nil {
		return err
	}

	p.logger.Debug().
		Stringer("monitor_id", cv.ID).
		Str("status", string(newStatus)).
		Int("code", out.StatusCode).
		Int64("latency_ms", latency).
		Bool("transition", statusChanged).
		Msg("check cycle processed")

	// Observational state is committed above; delivery problems from
	// here on are logged, never propagated.
	if statusChanged {
		if err := p.alerts.DispatchStatusChange(ctx, view, newStatus, out.StatusCode, latency); err != nil {
			p.logger.Error().
				Err(err).
				Stringer("monitor_id", cv.ID).
				Msg("failed to dispatch status change alert")
		}
		return nil
	}

	if newStatus == monitor.StatusUp {
		if err := p.detector.Detect(ctx, view, latency); err != nil {
			p.logger.Error().
				Err(err).
				Stringer("monitor_id", cv.ID).
				Msg("anomaly detection failed")
		}
	}

	return nil
}

package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/taskqueue"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TaskCheckCycle is the probing queue task name for one check cycle.
const TaskCheckCycle = "monitor.check_cycle"

type CheckArgs struct {
	MonitorID uuid.UUID `json:"monitor_id"`
}

type MonitorService interface {
	CheckView(ctx context.Context, monitorID uuid.UUID) (monitor.CheckView, error)
	ActiveMonitors(ctx context.Context) ([]monitor.ScheduleView, error)
}

type ResultProcessor interface {
	RunCheck(ctx context.Context, cv monitor.CheckView) error
}

// Scheduler keeps every active monitor probed at its interval by
// chaining one-shot delayed tasks: each cycle re-enqueues the next.
// There is no supervising loop per monitor, only the chain plus the
// recovery sweep that heals broken chains.
type Scheduler struct {
	probeQueue taskqueue.Enqueuer
	monitorSvc MonitorService
	resultPro  ResultProcessor
	logger     *zerolog.Logger
}

func NewScheduler(
	probeQueue taskqueue.Enqueuer,
	monitorSvc MonitorService,
	resultPro ResultProcessor,
	logger *zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		probeQueue: probeQueue,
		monitorSvc: monitorSvc,
		resultPro:  resultPro,
		logger:     logger,
	}
}

// ScheduleInitialCheck seeds the recurring loop for a monitor. Called
// exactly once per inactive->active transition, with zero delay.
func (s *Scheduler) ScheduleInitialCheck(ctx context.Context, monitorID uuid.UUID) error {
	return s.probeQueue.Enqueue(ctx, TaskCheckCycle, CheckArgs{MonitorID: monitorID}, 0)
}

// HandleCheckCycle is the probing queue task body: one probe, one
// re-enqueue. The loop terminates itself when the monitor is gone or
// deactivated; a failed check is a down result, not a reason to stop.
func (s *Scheduler) HandleCheckCycle(ctx context.Context, raw json.RawMessage) error {
	var args CheckArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		s.logger.Error().Err(err).Msg("undecodable check cycle args")
		return nil
	}

	cv, err := s.monitorSvc.CheckView(ctx, args.MonitorID)
	if err != nil {
		if apperror.IsKind(err, apperror.NotFound) {
			s.logger.Info().
				Stringer("monitor_id", args.MonitorID).
				Msg("monitor deleted, check loop stopping")
			return nil
		}
		// transient load failure: let the delivery fail so the broker
		// redelivers, the loop itself is still intact
		return err
	}

	if !cv.Active {
		s.logger.Info().
			Stringer("monitor_id", cv.ID).
			Msg("monitor inactive, check loop stopping")
		return nil
	}

	if err := s.resultPro.RunCheck(ctx, cv); err != nil {
		// the result could not be persisted; the loop must survive
		// regardless, the next cycle will observe fresh state
		s.logger.Error().
			Err(err).
			Stringer("monitor_id", cv.ID).
			Msg("check cycle processing failed")
	}

	delay := time.Duration(cv.IntervalSec) * time.Second
	if err := s.probeQueue.Enqueue(ctx, TaskCheckCycle, CheckArgs{MonitorID: cv.ID}, delay); err != nil {
		// chain broken; the recovery sweep will re-seed it
		s.logger.Error().
			Err(err).
			Stringer("monitor_id", cv.ID).
			Msg("failed to re-enqueue check cycle")
		return err
	}

	s.logger.Debug().
		Stringer("monitor_id", cv.ID).
		Dur("next_in", delay).
		Msg("next check scheduled")
	return nil
}

// RestoreStalledLoops re-seeds the check loop of every active monitor
// whose chain has gone quiet: never checked, or overdue past its
// interval. Run at process start and on demand; a healthy loop is
// left alone.
func (s *Scheduler) RestoreStalledLoops(ctx context.Context) (int, error) {
	monitors, err := s.monitorSvc.ActiveMonitors(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	restored := 0

	for _, m := range monitors {
		if !isStalled(m, now) {
			continue
		}

		if err := s.ScheduleInitialCheck(ctx, m.ID); err != nil {
			s.logger.Error().
				Err(err).
				Stringer("monitor_id", m.ID).
				Msg("failed to restore check loop")
			continue
		}

		s.logger.Info().
			Stringer("monitor_id", m.ID).
			Msg("restored stalled check loop")
		restored++
	}

	if restored > 0 {
		s.logger.Info().Int("count", restored).Msg("stalled check loops restored")
	}
	return restored, nil
}

func isStalled(m monitor.ScheduleView, now time.Time) bool {
	if m.LastCheckedAt == nil {
		return true
	}
	nextDue := m.LastCheckedAt.Add(time.Duration(m.IntervalSec) * time.Second)
	return nextDue.Before(now)
}

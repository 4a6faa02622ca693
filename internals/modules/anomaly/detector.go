package anomaly

import (
	"context"
	"math"

	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// historyWindow covers the freshly written sample plus its baseline
	// neighbors; the newest row is always excluded from the baseline.
	historyWindow = 21
	// minBaselineSamples guards the stdev: under 10 samples the
	// threshold is too unstable to act on.
	minBaselineSamples = 10
	zScoreThreshold    = 3.0
)

type LatencyStore interface {
	RecentLatencies(ctx context.Context, monitorID uuid.UUID, limit int) ([]*int64, error)
}

type Alerter interface {
	DispatchPerformanceWarning(ctx context.Context, m monitor.StatusView, latencyMs int64, baselineMean float64) error
}

// Detector flags statistically slow responses on an otherwise healthy
// monitor. Only runs when a check cycle ends UP with no status change.
type Detector struct {
	store   LatencyStore
	alerter Alerter
	logger  *zerolog.Logger
}

func NewDetector(store LatencyStore, alerter Alerter, logger *zerolog.Logger) *Detector {
	return &Detector{
		store:   store,
		alerter: alerter,
		logger:  logger,
	}
}

// Detect compares the current latency against a baseline built from
// the monitor's recent history. Degenerate baselines (too few samples,
// zero variance) are skipped silently; they are a data condition, not
// an error.
func (d *Detector) Detect(ctx context.Context, m monitor.StatusView, latencyMs int64) error {
	rows, err := d.store.RecentLatencies(ctx, m.ID, historyWindow)
	if err != nil {
		return err
	}

	// Drop the newest sample: it is the latency under test, persisted
	// just before this call.
	if len(rows) > 0 {
		rows = rows[1:]
	}

	baseline := make([]float64, 0, len(rows))
	for _, v := range rows {
		if v != nil {
			baseline = append(baseline, float64(*v))
		}
	}

	if len(baseline) < minBaselineSamples {
		d.logger.Debug().
			Stringer("monitor_id", m.ID).
			Int("samples", len(baseline)).
			Msg("skipping anomaly detection, insufficient baseline")
		return nil
	}

	mean, stdev := meanStdev(baseline)
	if stdev == 0 {
		// An all-identical baseline makes any z-score undefined.
		return nil
	}

	z := (float64(latencyMs) - mean) / stdev
	if z <= zScoreThreshold {
		return nil
	}

	d.logger.Info().
		Stringer("monitor_id", m.ID).
		Int64("latency_ms", latencyMs).
		Float64("baseline_mean", mean).
		Float64("z_score", z).
		Msg("latency anomaly detected")
	metrics.AnomaliesTotal.Inc()

	return d.alerter.DispatchPerformanceWarning(ctx, m, latencyMs, mean)
}

// meanStdev returns the mean and sample standard deviation.
func meanStdev(samples []float64) (float64, float64) {
	var sum float64
	for _, v := range samples {
		sum += v
	}
	mean := sum / float64(len(samples))

	if len(samples) < 2 {
		return mean, 0
	}

	var sqDiff float64
	for _, v := range samples {
		sqDiff += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sqDiff / float64(len(samples)-1))
}

package anomaly

import (
	"context"
	"errors"
	"testing"

	"pulsewatch/internals/modules/monitor"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockLatencyStore struct {
	rows []*int64
	err  error

	gotLimit int
}

func (m *mockLatencyStore) RecentLatencies(_ context.Context, _ uuid.UUID, limit int) ([]*int64, error) {
	m.gotLimit = limit
	return m.rows, m.err
}

type mockAlerter struct {
	calls       int
	gotLatency  int64
	gotBaseline float64
	err         error
}

func (m *mockAlerter) DispatchPerformanceWarning(_ context.Context, _ monitor.StatusView, latencyMs int64, baselineMean float64) error {
	m.calls++
	m.gotLatency = latencyMs
	m.gotBaseline = baselineMean
	return m.err
}

func i64(v int64) *int64 { return &v }

// rowsWithBaseline builds a newest-first history: the current sample
// first, then the given baseline values.
func rowsWithBaseline(current int64, baseline ...int64) []*int64 {
	rows := []*int64{i64(current)}
	for _, v := range baseline {
		rows = append(rows, i64(v))
	}
	return rows
}

func newTestDetector(store *mockLatencyStore, alerter *mockAlerter) *Detector {
	logger := zerolog.Nop()
	return NewDetector(store, alerter, &logger)
}

func TestDetectFiresOnSpike(t *testing.T) {
	// 10x90ms and 10x110ms: mean 100, sample stdev ~10.3. A 200ms
	// sample sits far beyond three standard deviations.
	baseline := make([]int64, 0, 20)
	for range 10 {
		baseline = append(baseline, 90, 110)
	}

	store := &mockLatencyStore{rows: rowsWithBaseline(200, baseline...)}
	alerter := &mockAlerter{}
	d := newTestDetector(store, alerter)

	if err := d.Detect(context.Background(), monitor.StatusView{ID: uuid.New()}, 200); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if alerter.calls != 1 {
		t.Fatalf("expected 1 warning, got %d", alerter.calls)
	}
	if alerter.gotLatency != 200 {
		t.Errorf("expected latency 200, got %d", alerter.gotLatency)
	}
	if alerter.gotBaseline != 100 {
		t.Errorf("expected baseline mean 100, got %v", alerter.gotBaseline)
	}
	if store.gotLimit != historyWindow {
		t.Errorf("expected history fetch of %d, got %d", historyWindow, store.gotLimit)
	}
}

func TestDetectIgnoresModestElevation(t *testing.T) {
	baseline := make([]int64, 0, 20)
	for range 10 {
		baseline = append(baseline, 90, 110)
	}

	// ~1 standard deviation above the mean: noise, not an anomaly.
	store := &mockLatencyStore{rows: rowsWithBaseline(110, baseline...)}
	alerter := &mockAlerter{}
	d := newTestDetector(store, alerter)

	if err := d.Detect(context.Background(), monitor.StatusView{ID: uuid.New()}, 110); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alerter.calls != 0 {
		t.Errorf("expected no warning, got %d", alerter.calls)
	}
}

func TestDetectIsOneSided(t *testing.T) {
	baseline := make([]int64, 0, 20)
	for range 10 {
		baseline = append(baseline, 90, 110)
	}

	// A suspiciously fast response is not a problem.
	store := &mockLatencyStore{rows: rowsWithBaseline(1, baseline...)}
	alerter := &mockAlerter{}
	d := newTestDetector(store, alerter)

	if err := d.Detect(context.Background(), monitor.StatusView{ID: uuid.New()}, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alerter.calls != 0 {
		t.Errorf("expected no warning for fast response, got %d", alerter.calls)
	}
}

func TestDetectSkipsInsufficientBaseline(t *testing.T) {
	store := &mockLatencyStore{rows: rowsWithBaseline(500, 100, 100, 100, 100, 100)}
	alerter := &mockAlerter{}
	d := newTestDetector(store, alerter)

	if err := d.Detect(context.Background(), monitor.StatusView{ID: uuid.New()}, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alerter.calls != 0 {
		t.Errorf("expected no warning with thin baseline, got %d", alerter.calls)
	}
}

func TestDetectSkipsZeroVariance(t *testing.T) {
	baseline := make([]int64, 20)
	for i := range baseline {
		baseline[i] = 100
	}

	store := &mockLatencyStore{rows: rowsWithBaseline(5000, baseline...)}
	alerter := &mockAlerter{}
	d := newTestDetector(store, alerter)

	if err := d.Detect(context.Background(), monitor.StatusView{ID: uuid.New()}, 5000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alerter.calls != 0 {
		t.Errorf("expected no warning on flat baseline, got %d", alerter.calls)
	}
}

func TestDetectFiltersNilLatencies(t *testing.T) {
	// Failed checks record no latency; enough nils must push the
	// baseline under the minimum.
	rows := []*int64{i64(500)}
	for range 12 {
		rows = append(rows, nil)
	}
	for range 8 {
		rows = append(rows, i64(100))
	}

	store := &mockLatencyStore{rows: rows}
	alerter := &mockAlerter{}
	d := newTestDetector(store, alerter)

	if err := d.Detect(context.Background(), monitor.StatusView{ID: uuid.New()}, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alerter.calls != 0 {
		t.Errorf("expected no warning, got %d", alerter.calls)
	}
}

func TestDetectDropsNewestSample(t *testing.T) {
	// The newest row is the sample under test; keeping it in the
	// baseline would drag the mean toward the spike. With it dropped,
	// the remaining 20 flat rows have zero variance and detection is
	// skipped entirely.
	baseline := make([]int64, 20)
	for i := range baseline {
		baseline[i] = 100
	}

	store := &mockLatencyStore{rows: rowsWithBaseline(5000, baseline...)}
	alerter := &mockAlerter{}
	d := newTestDetector(store, alerter)

	if err := d.Detect(context.Background(), monitor.StatusView{ID: uuid.New()}, 5000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alerter.calls != 0 {
		t.Errorf("expected the sample under test excluded from its own baseline")
	}
}

func TestDetectPropagatesStoreError(t *testing.T) {
	store := &mockLatencyStore{err: errors.New("connection reset")}
	alerter := &mockAlerter{}
	d := newTestDetector(store, alerter)

	if err := d.Detect(context.Background(), monitor.StatusView{ID: uuid.New()}, 100); err == nil {
		t.Fatal("expected store error to propagate")
	}
	if alerter.calls != 0 {
		t.Errorf("expected no warning on store failure")
	}
}

func TestMeanStdev(t *testing.T) {
	mean, stdev := meanStdev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 {
		t.Errorf("expected mean 5, got %v", mean)
	}
	// sample stdev of this classic set is sqrt(32/7) ~ 2.138
	if stdev < 2.13 || stdev > 2.14 {
		t.Errorf("expected sample stdev ~2.138, got %v", stdev)
	}
}

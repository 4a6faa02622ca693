package result

import (
	"context"
	"errors"
	"testing"
	"time"

	"pulsewatch/internals/modules/monitor"
	"pulsewatch/internals/modules/prober"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockMonitorStore struct {
	view    monitor.StatusView
	viewErr error

	appendErr    error
	appendCalls  int
	gotCode      *int32
	gotLatency   *int64
	gotIsUp      bool
	gotCheckedAt time.Time

	setErr    error
	setCalls  int
	gotStatus monitor.Status
}

func (m *mockMonitorStore) StatusView(_ context.Context, _ uuid.UUID) (monitor.StatusView, error) {
	return m.view, m.viewErr
}

func (m *mockMonitorStore) AppendResult(_ context.Context, _ uuid.UUID, statusCode *int32, responseTimeMs *int64, isUp bool, checkedAt time.Time) error {
	m.appendCalls++
	m.gotCode = statusCode
	m.gotLatency = responseTimeMs
	m.gotIsUp = isUp
	m.gotCheckedAt = checkedAt
	return m.appendErr
}

func (m *mockMonitorStore) SetStatus(_ context.Context, _ uuid.UUID, status monitor.Status, _ time.Time) error {
	m.setCalls++
	m.gotStatus = status
	return m.setErr
}

type mockProber struct {
	out prober.Outcome
}

func (m *mockProber) Probe(_ context.Context, _ string, _ monitor.Kind) prober.Outcome {
	return m.out
}

type mockDetector struct {
	calls int
	err   error
}

func (m *mockDetector) Detect(_ context.Context, _ monitor.StatusView, _ int64) error {
	m.calls++
	return m.err
}

type mockAlertDispatcher struct {
	calls     int
	gotStatus monitor.Status
	gotCode   int
	err       error
}

func (m *mockAlertDispatcher) DispatchStatusChange(_ context.Context, _ monitor.StatusView, newStatus monitor.Status, statusCode int, _ int64) error {
	m.calls++
	m.gotStatus = newStatus
	m.gotCode = statusCode
	return m.err
}

type fixture struct {
	store    *mockMonitorStore
	prb      *mockProber
	detector *mockDetector
	alerts   *mockAlertDispatcher
	pro      *Processor
}

func newFixture(prev monitor.Status, out prober.Outcome) *fixture {
	logger := zerolog.Nop()
	f := &fixture{
		store:    &mockMonitorStore{view: monitor.StatusView{ID: uuid.New(), Status: prev}},
		prb:      &mockProber{out: out},
		detector: &mockDetector{},
		alerts:   &mockAlertDispatcher{},
	}
	f.pro = NewProcessor(f.store, f.prb, f.detector, f.alerts, &logger)
	return f
}

func checkView(f *fixture) monitor.CheckView {
	return monitor.CheckView{
		ID:          f.store.view.ID,
		URL:         "https://example.com",
		Kind:        monitor.KindHTTP,
		IntervalSec: 60,
		Active:      true,
	}
}

func TestRunCheckUpToDownAlerts(t *testing.T) {
	f := newFixture(monitor.StatusUp, prober.Outcome{IsUp: false, StatusCode: 503, LatencyMs: 40})

	if err := f.pro.RunCheck(context.Background(), checkView(f)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.alerts.calls != 1 {
		t.Fatalf("expected 1 status change alert, got %d", f.alerts.calls)
	}
	if f.alerts.gotStatus != monitor.StatusDown {
		t.Errorf("expected DOWN alert, got %s", f.alerts.gotStatus)
	}
	if f.alerts.gotCode != 503 {
		t.Errorf("expected code 503 in alert, got %d", f.alerts.gotCode)
	}
	if f.detector.calls != 0 {
		t.Errorf("anomaly detection must not run on a transition cycle")
	}
	if f.store.gotStatus != monitor.StatusDown {
		t.Errorf("expected persisted status DOWN, got %s", f.store.gotStatus)
	}
}

func TestRunCheckDownToUpAlerts(t *testing.T) {
	f := newFixture(monitor.StatusDown, prober.Outcome{IsUp: true, StatusCode: 200, LatencyMs: 120})

	if err := f.pro.RunCheck(context.Background(), checkView(f)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.alerts.calls != 1 {
		t.Fatalf("expected recovery alert, got %d calls", f.alerts.calls)
	}
	if f.alerts.gotStatus != monitor.StatusUp {
		t.Errorf("expected UP alert, got %s", f.alerts.gotStatus)
	}
	if f.detector.calls != 0 {
		t.Errorf("anomaly detection must not run on a transition cycle")
	}
}

func TestRunCheckSteadyUpRunsDetection(t *testing.T) {
	f := newFixture(monitor.StatusUp, prober.Outcome{IsUp: true, StatusCode: 200, LatencyMs: 95})

	if err := f.pro.RunCheck(context.Background(), checkView(f)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.alerts.calls != 0 {
		t.Errorf("no transition means no alert, got %d calls", f.alerts.calls)
	}
	if f.detector.calls != 1 {
		t.Errorf("expected anomaly detection on steady UP, got %d calls", f.detector.calls)
	}
}

func TestRunCheckSteadyDownStaysQuiet(t *testing.T) {
	f := newFixture(monitor.StatusDown, prober.Outcome{IsUp: false, StatusCode: 0, LatencyMs: 10000})

	if err := f.pro.RunCheck(context.Background(), checkView(f)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.alerts.calls != 0 {
		t.Errorf("repeated DOWN must not re-alert, got %d calls", f.alerts.calls)
	}
	if f.detector.calls != 0 {
		t.Errorf("anomaly detection must not run while down")
	}
}

func TestRunCheckFromPausedNeverAlerts(t *testing.T) {
	for _, out := range []prober.Outcome{
		{IsUp: true, StatusCode: 200, LatencyMs: 50},
		{IsUp: false, StatusCode: 500, LatencyMs: 50},
	} {
		f := newFixture(monitor.StatusPaused, out)

		if err := f.pro.RunCheck(context.Background(), checkView(f)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.alerts.calls != 0 {
			t.Errorf("first check after PAUSED must not alert (isUp=%v)", out.IsUp)
		}
	}
}

func TestRunCheckRecordsResult(t *testing.T) {
	f := newFixture(monitor.StatusUp, prober.Outcome{IsUp: false, StatusCode: 503, LatencyMs: 40})

	if err := f.pro.RunCheck(context.Background(), checkView(f)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.store.appendCalls != 1 {
		t.Fatalf("expected 1 result row, got %d", f.store.appendCalls)
	}
	if f.store.gotCode == nil || *f.store.gotCode != 503 {
		t.Errorf("expected status code 503 recorded, got %v", f.store.gotCode)
	}
	if f.store.gotLatency == nil || *f.store.gotLatency != 40 {
		t.Errorf("expected latency 40 recorded, got %v", f.store.gotLatency)
	}
	if f.store.gotIsUp {
		t.Errorf("expected is_up false")
	}
}

func TestRunCheckTransportFailureRecordsNoCode(t *testing.T) {
	f := newFixture(monitor.StatusUp, prober.Outcome{IsUp: false, StatusCode: 0, LatencyMs: 10000})

	if err := f.pro.RunCheck(context.Background(), checkView(f)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.store.gotCode != nil {
		t.Errorf("transport failure must record a NULL status code, got %d", *f.store.gotCode)
	}
}

func TestRunCheckDispatchFailureIsSwallowed(t *testing.T) {
	f := newFixture(monitor.StatusUp, prober.Outcome{IsUp: false, StatusCode: 503, LatencyMs: 40})
	f.alerts.err = errors.New("queue unavailable")

	if err := f.pro.RunCheck(context.Background(), checkView(f)); err != nil {
		t.Fatalf("alert delivery failure must not fail the cycle, got %v", err)
	}
	if f.store.setCalls != 1 {
		t.Errorf("status must still be persisted")
	}
}

func TestRunCheckDetectorFailureIsSwallowed(t *testing.T) {
	f := newFixture(monitor.StatusUp, prober.Outcome{IsUp: true, StatusCode: 200, LatencyMs: 95})
	f.detector.err = errors.New("history unavailable")

	if err := f.pro.RunCheck(context.Background(), checkView(f)); err != nil {
		t.Fatalf("detector failure must not fail the cycle, got %v", err)
	}
}

func TestRunCheckPersistenceFailurePropagates(t *testing.T) {
	f := newFixture(monitor.StatusUp, prober.Outcome{IsUp: true, StatusCode: 200, LatencyMs: 95})
	f.store.appendErr = errors.New("db down")

	if err := f.pro.RunCheck(context.Background(), checkView(f)); err == nil {
		t.Fatal("expected persistence failure to propagate")
	}
	if f.alerts.calls != 0 || f.detector.calls != 0 {
		t.Errorf("no side effects after a failed write")
	}
}

func TestRunCheckLoadFailurePropagates(t *testing.T) {
	f := newFixture(monitor.StatusUp, prober.Outcome{IsUp: true, StatusCode: 200})
	f.store.viewErr = errors.New("db down")

	if err := f.pro.RunCheck(context.Background(), checkView(f)); err == nil {
		t.Fatal("expected load failure to propagate")
	}
	if f.store.appendCalls != 0 {
		t.Errorf("no result row without a loaded monitor")
	}
}

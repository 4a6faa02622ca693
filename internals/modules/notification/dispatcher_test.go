package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pulsewatch/internals/modules/monitor"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockChannelLister struct {
	channels []Channel
	err      error
}

func (m *mockChannelLister) ListActiveByUser(_ context.Context, _ uuid.UUID) ([]Channel, error) {
	return m.channels, m.err
}

type recordingEnqueuer struct {
	args    []SendArgs
	failFor map[uuid.UUID]error
}

func (m *recordingEnqueuer) Enqueue(_ context.Context, task string, args any, delay time.Duration) error {
	sa := args.(SendArgs)
	if err, ok := m.failFor[sa.ChannelID]; ok {
		return err
	}
	if task != TaskSendNotification {
		return errors.New("unexpected task " + task)
	}
	if delay != 0 {
		return errors.New("alerts must not be delayed")
	}
	m.args = append(m.args, sa)
	return nil
}

func statusView() monitor.StatusView {
	return monitor.StatusView{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Name:   "api",
		URL:    "https://api.example.com",
		Status: monitor.StatusUp,
	}
}

func newTestDispatcher(lister *mockChannelLister, queue *recordingEnqueuer) *Dispatcher {
	logger := zerolog.Nop()
	return NewDispatcher(lister, queue, &logger)
}

func TestDispatchStatusChangeFansOut(t *testing.T) {
	chans := []Channel{
		{ID: uuid.New(), Provider: ProviderSlack, Active: true},
		{ID: uuid.New(), Provider: ProviderEmail, Active: true},
		{ID: uuid.New(), Provider: ProviderWebhook, Active: true},
	}
	queue := &recordingEnqueuer{}
	d := newTestDispatcher(&mockChannelLister{channels: chans}, queue)

	err := d.DispatchStatusChange(context.Background(), statusView(), monitor.StatusDown, 503, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(queue.args) != len(chans) {
		t.Fatalf("expected one task per channel, got %d", len(queue.args))
	}
	for i, sa := range queue.args {
		if sa.ChannelID != chans[i].ID {
			t.Errorf("task %d targets wrong channel", i)
		}
	}
}

func TestDispatchDownMessageWithStatusCode(t *testing.T) {
	queue := &recordingEnqueuer{}
	d := newTestDispatcher(&mockChannelLister{channels: []Channel{{ID: uuid.New()}}}, queue)

	if err := d.DispatchStatusChange(context.Background(), statusView(), monitor.StatusDown, 503, 40); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sa := queue.args[0]
	if sa.Subject != "Monitor api is DOWN" {
		t.Errorf("wrong subject: %q", sa.Subject)
	}
	if !strings.Contains(sa.Message, "Reason: 503 Error") {
		t.Errorf("down message must carry the status code, got %q", sa.Message)
	}
}

func TestDispatchDownMessageTimeout(t *testing.T) {
	queue := &recordingEnqueuer{}
	d := newTestDispatcher(&mockChannelLister{channels: []Channel{{ID: uuid.New()}}}, queue)

	if err := d.DispatchStatusChange(context.Background(), statusView(), monitor.StatusDown, 0, 10000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(queue.args[0].Message, "Reason: Timeout") {
		t.Errorf("a codeless failure reads as a timeout, got %q", queue.args[0].Message)
	}
}

func TestDispatchRecoveryMessage(t *testing.T) {
	queue := &recordingEnqueuer{}
	d := newTestDispatcher(&mockChannelLister{channels: []Channel{{ID: uuid.New()}}}, queue)

	if err := d.DispatchStatusChange(context.Background(), statusView(), monitor.StatusUp, 200, 120); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sa := queue.args[0]
	if sa.Subject != "Monitor api is UP" {
		t.Errorf("wrong subject: %q", sa.Subject)
	}
	if !strings.Contains(sa.Message, "back UP. Response time: 120ms") {
		t.Errorf("recovery message must carry the latency, got %q", sa.Message)
	}
}

func TestDispatchPerformanceWarningMessage(t *testing.T) {
	queue := &recordingEnqueuer{}
	d := newTestDispatcher(&mockChannelLister{channels: []Channel{{ID: uuid.New()}}}, queue)

	if err := d.DispatchPerformanceWarning(context.Background(), statusView(), 900, 102.4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sa := queue.args[0]
	if sa.Subject != "Performance Warning: api" {
		t.Errorf("wrong subject: %q", sa.Subject)
	}
	if !strings.Contains(sa.Message, "spiked to 900ms") {
		t.Errorf("warning must carry the spike, got %q", sa.Message)
	}
	if !strings.Contains(sa.Message, "baseline average 102ms") {
		t.Errorf("warning must carry the rounded baseline, got %q", sa.Message)
	}
}

func TestDispatchNoChannelsDropsAlert(t *testing.T) {
	queue := &recordingEnqueuer{}
	d := newTestDispatcher(&mockChannelLister{}, queue)

	if err := d.DispatchStatusChange(context.Background(), statusView(), monitor.StatusDown, 503, 40); err != nil {
		t.Fatalf("no channels is not an error, got %v", err)
	}
	if len(queue.args) != 0 {
		t.Errorf("nothing to enqueue without channels")
	}
}

func TestDispatchOneFailedEnqueueDoesNotBlockOthers(t *testing.T) {
	bad := Channel{ID: uuid.New()}
	good := Channel{ID: uuid.New()}
	queue := &recordingEnqueuer{failFor: map[uuid.UUID]error{bad.ID: errors.New("broker gone")}}
	d := newTestDispatcher(&mockChannelLister{channels: []Channel{bad, good}}, queue)

	err := d.DispatchStatusChange(context.Background(), statusView(), monitor.StatusDown, 503, 40)
	if err == nil {
		t.Fatal("a failed enqueue must surface")
	}
	if len(queue.args) != 1 || queue.args[0].ChannelID != good.ID {
		t.Errorf("the healthy channel must still be enqueued")
	}
}

func TestDispatchListFailurePropagates(t *testing.T) {
	queue := &recordingEnqueuer{}
	d := newTestDispatcher(&mockChannelLister{err: errors.New("db down")}, queue)

	if err := d.DispatchStatusChange(context.Background(), statusView(), monitor.StatusDown, 503, 40); err == nil {
		t.Fatal("expected list failure to propagate")
	}
}

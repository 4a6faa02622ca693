package monitor

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindHTTP Kind = "HTTP"
	KindPING Kind = "PING"
	KindTCP  Kind = "TCP"
)

type Status string

const (
	StatusUp     Status = "UP"
	StatusDown   Status = "DOWN"
	StatusPaused Status = "PAUSED"
)

// MinIntervalSec is the floor for a monitor's polling interval.
const MinIntervalSec int32 = 30

type Monitor struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          string
	URL           string
	Kind          Kind
	Status        Status
	IntervalSec   int32
	Active        bool
	LastCheckedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CheckView is the narrow load a check cycle starts with: just enough
// to decide whether to probe and when to come back.
type CheckView struct {
	ID          uuid.UUID
	URL         string
	Kind        Kind
	IntervalSec int32
	Active      bool
}

// StatusView is what result processing and alert formatting need.
type StatusView struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string
	URL    string
	Status Status
}

// ScheduleView backs the stalled-loop recovery sweep.
type ScheduleView struct {
	ID            uuid.UUID
	IntervalSec   int32
	LastCheckedAt *time.Time
}

// Result is one immutable probe outcome. StatusCode is nil for
// non-HTTP checks and failed connections; ResponseTimeMs is nil when
// no round trip was measured.
type Result struct {
	ID             int64
	MonitorID      uuid.UUID
	StatusCode     *int32
	ResponseTimeMs *int64
	IsUp           bool
	CheckedAt      time.Time
}

// FailureView is one failed check presented with a human reason.
type FailureView struct {
	CheckedAt  time.Time `json:"checked_at"`
	StatusCode *int32    `json:"status_code,omitempty"`
	Reason     string    `json:"reason"`
}

// Stats is a per-monitor aggregate over a lookback window.
type Stats struct {
	Period           string    `json:"period"`
	TotalChecks      int64     `json:"total_checks"`
	UpCount          int64     `json:"up_count"`
	DownCount        int64     `json:"down_count"`
	UptimePercentage float64   `json:"uptime_percentage"`
	AvgResponseTime  float64   `json:"avg_response_time"`
	LastCheck        time.Time `json:"last_check"`
}

package notification

import (
	"time"

	"github.com/google/uuid"
)

type ProviderKind string

const (
	ProviderEmail    ProviderKind = "email"
	ProviderSlack    ProviderKind = "slack"
	ProviderTelegram ProviderKind = "telegram"
	ProviderWebhook  ProviderKind = "webhook"
	ProviderConsole  ProviderKind = "console"
)

// Channel is one configured alert destination. Config is opaque here;
// each provider validates the keys it needs at send time.
type Channel struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Provider  ProviderKind
	Config    map[string]string
	Active    bool
	CreatedAt time.Time
}

type LogStatus string

const (
	LogPending LogStatus = "pending"
	LogSuccess LogStatus = "success"
	LogFailure LogStatus = "failure"
)

// Log is the audit record of one delivery attempt. It is written as
// pending before the provider call and flipped to success or failure
// afterwards; that single in-place transition is the whole lifecycle.
type Log struct {
	ID           int64
	ChannelID    uuid.UUID
	Subject      string
	Status       LogStatus
	ErrorMessage *string
	Payload      Payload
	CreatedAt    time.Time
}

// Payload is the snapshot of what was handed to the provider.
type Payload struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

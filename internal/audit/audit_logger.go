package audit

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type AuditEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	EventType  string    `json:"event_type"`
	SweepID    string    `json:"sweep_id"`
	DonationID int64     `json:"donation_id,omitempty"`
	ProjectID  int64     `json:"project_id,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Status     string    `json:"status"`
	Details    any       `json:"details,omitempty"`
}

// AuditLogger writes allocation audit events as JSON through zerolog.
type AuditLogger struct {
	logger zerolog.Logger
}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{logger: log.With().Str("component", "audit").Logger()}
}

// NewAuditLoggerWith is NewAuditLogger with an explicit destination logger.
func NewAuditLoggerWith(logger zerolog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.With().Str("component", "audit").Logger()}
}

func (a *AuditLogger) LogTransfer(sweepID string, donationID, projectID, amount int64) {
	a.log(AuditEvent{
		Timestamp:  time.Now(),
		EventType:  "TRANSFER",
		SweepID:    sweepID,
		DonationID: donationID,
		ProjectID:  projectID,
		Amount:     amount,
		Status:     "SUCCESS",
	})
}

func (a *AuditLogger) LogClosed(sweepID, kind string, id int64, closedAt time.Time) {
	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: "CLOSED",
		SweepID:   sweepID,
		Status:    "SUCCESS",
		Details: map[string]string{
			"kind":      kind,
			"closed_at": closedAt.Format(time.RFC3339Nano),
		},
	}
	if kind == "donation" {
		event.DonationID = id
	} else {
		event.ProjectID = id
	}
	a.log(event)
}

func (a *AuditLogger) LogError(sweepID string, err error) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: "ERROR",
		SweepID:   sweepID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	a.logger.Info().RawJSON("event", data).Msg("AUDIT")
}

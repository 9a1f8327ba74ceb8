// Package audit implements the append-only case audit log.
// Entries double as the record of collaborator decisions such as watch mode
// and user context, which are read back through latest-matching queries.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType is the coarse classification stored on every entry.
type EventType string

const (
	EventOCRRun         EventType = "OCR_RUN"
	EventTruthLayerRun  EventType = "TRUTH_LAYER_RUN"
	EventFormatRun      EventType = "FORMAT_RUN"
	EventCaseUpdated    EventType = "CASE_UPDATED"
	EventPipelineFailed EventType = "PIPELINE_FAILED"
)

// Subtypes discriminate CASE_UPDATED and PIPELINE_FAILED entries.
const (
	SubtypeWatchModeSet      = "case_watch_mode_set"
	SubtypeContextSet        = "case_context_set"
	SubtypeReplaySkipped     = "asset_replay_skipped"
	SubtypeReadinessSnapshot = "case_readiness_snapshot"
	SubtypeReminderDelivery  = "push_reminder_delivery"
	SubtypeMessageFailed     = "worker_message_failed"
)

// ActorWorker is the actor type recorded for entries written by this process.
const ActorWorker = "worker"

// Entry is a single audit log row.
type Entry struct {
	ID           uuid.UUID       `json:"id"`
	CaseID       *uuid.UUID      `json:"case_id"`
	AssetID      *uuid.UUID      `json:"asset_id"`
	ExtractionID *uuid.UUID      `json:"extraction_id"`
	VerdictID    *uuid.UUID      `json:"verdict_id"`
	EventType    EventType       `json:"event_type"`
	ActorType    string          `json:"actor_type"`
	Subtype      *string         `json:"subtype"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
}

// PayloadBool reads a boolean field from the payload. Missing or
// non-boolean values report false.
func (e *Entry) PayloadBool(key string) bool {
	var m map[string]any
	if err := json.Unmarshal(e.Payload, &m); err != nil {
		return false
	}
	v, _ := m[key].(bool)
	return v
}

// PayloadString reads a string field from the payload.
func (e *Entry) PayloadString(key string) string {
	var m map[string]any
	if err := json.Unmarshal(e.Payload, &m); err != nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

// WriteCommand describes an entry to append. Nil UUIDs are stored as NULL.
// A non-empty Subtype is also copied into the payload under "subtype".
type WriteCommand struct {
	CaseID       uuid.UUID
	AssetID      uuid.UUID
	ExtractionID uuid.UUID
	VerdictID    uuid.UUID
	EventType    EventType
	Subtype      string
	Payload      map[string]any
}

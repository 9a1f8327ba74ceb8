// Package cases owns the merged case state produced by the pipeline.
// Truth results are folded in with monotonic rules: classification
// confidence never decreases and the earliest deadline only moves earlier.
package cases

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/truth"
)

// ConfidenceEpsilon absorbs float noise when comparing confidences.
const ConfidenceEpsilon = 1e-6

// Case is the aggregate that owns assets and carries merged state.
type Case struct {
	ID                       uuid.UUID  `json:"id"`
	UserID                   uuid.UUID  `json:"user_id"`
	Title                    *string    `json:"title"`
	DocumentType             *string    `json:"document_type"`
	ClassificationConfidence *float64   `json:"classification_confidence"`
	TimeSensitive            bool       `json:"time_sensitive"`
	EarliestDeadline         *time.Time `json:"earliest_deadline"`
	PlainEnglishExplanation  *string    `json:"plain_english_explanation"`
	NonLegalAdviceDisclaimer *string    `json:"non_legal_advice_disclaimer"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// EarliestDeadlineISO returns the earliest deadline as YYYY-MM-DD, or "".
func (c *Case) EarliestDeadlineISO() string {
	if c.EarliestDeadline == nil {
		return ""
	}
	return c.EarliestDeadline.UTC().Format(time.DateOnly)
}

// State is the mergeable part of a case.
type State struct {
	DocumentType             *string
	ClassificationConfidence *float64
	TimeSensitive            bool
	EarliestDeadlineISO      string
}

// State extracts the mergeable fields of c.
func (c *Case) State() State {
	return State{
		DocumentType:             c.DocumentType,
		ClassificationConfidence: c.ClassificationConfidence,
		TimeSensitive:            c.TimeSensitive,
		EarliestDeadlineISO:      c.EarliestDeadlineISO(),
	}
}

// Merge folds a truth result into the current state. Classification is
// replaced only when the new confidence is not lower than the current one.
// Time sensitivity is OR-merged and the earliest deadline is min-merged.
func Merge(current State, r truth.Result) State {
	next := current

	if current.ClassificationConfidence == nil ||
		r.ClassificationConfidence >= *current.ClassificationConfidence-ConfidenceEpsilon {
		docType := r.DocumentType
		conf := r.ClassificationConfidence
		next.DocumentType = &docType
		next.ClassificationConfidence = &conf
	}

	next.TimeSensitive = current.TimeSensitive || r.TimeSensitive

	if r.EarliestDeadlineISO != "" &&
		(current.EarliestDeadlineISO == "" || r.EarliestDeadlineISO < current.EarliestDeadlineISO) {
		next.EarliestDeadlineISO = r.EarliestDeadlineISO
	}

	return next
}

// ApplyTruthCommand identifies the extraction whose truth result is merged.
type ApplyTruthCommand struct {
	CaseID       uuid.UUID
	AssetID      uuid.UUID
	ExtractionID uuid.UUID
	Result       truth.Result
}

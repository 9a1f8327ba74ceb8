// Package truth classifies extracted document text and derives deadline signals.
// Build is a pure function: identical inputs always produce identical results.
package truth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Version = "v1"
	Source  = "deterministic_truth_layer"

	// TimeSensitiveWindowDays is the distance from extraction within which
	// the earliest deadline marks a document as time sensitive.
	TimeSensitiveWindowDays = 45
)

// Input carries an extraction together with its identifying context.
type Input struct {
	CaseID              uuid.UUID
	AssetID             uuid.UUID
	ExtractionID        uuid.UUID
	ExtractionEngine    string
	ExtractionCreatedAt time.Time
	RawText             string
	StructuredFacts     map[string]any
}

// Result is the classification and deadline analysis of a single extraction.
type Result struct {
	DocumentType             string         `json:"documentType"`
	ClassificationConfidence float64        `json:"classificationConfidence"`
	MatchedKeywords          []string       `json:"matchedKeywords"`
	TimeSensitive            bool           `json:"timeSensitive"`
	EarliestDeadlineISO      string         `json:"earliestDeadlineIso,omitempty"`
	DeadlineSignals          []Signal       `json:"deadlineSignals"`
	Facts                    map[string]any `json:"facts"`
}

// HasDeadline reports whether any dated signal was found.
func (r *Result) HasDeadline() bool {
	return r.EarliestDeadlineISO != ""
}

// Build runs classification and deadline extraction over the raw text and
// every scalar leaf of the structured facts.
func Build(in Input) Result {
	fragments := collectFragments(in.StructuredFacts, nil)
	text := normalize(strings.Join(append([]string{in.RawText}, fragments...), "\n"))

	class := classify(text)

	absolute := absoluteDateSignals(text)
	relative := relativeDaySignals(text, in.ExtractionCreatedAt)
	urgent := urgentSignals(text)

	signals := make([]Signal, 0, len(absolute)+len(relative)+len(urgent))
	signals = append(signals, absolute...)
	signals = append(signals, relative...)
	signals = append(signals, urgent...)

	earliest := earliestDate(signals)

	timeSensitive := len(urgent) > 0
	if earliest != "" {
		if d, err := time.Parse(time.DateOnly, earliest); err == nil {
			if diffDays(in.ExtractionCreatedAt, d) <= TimeSensitiveWindowDays {
				timeSensitive = true
			}
		}
	}

	var earliestFact any
	if earliest != "" {
		earliestFact = earliest
	}

	return Result{
		DocumentType:             class.documentType,
		ClassificationConfidence: class.confidence,
		MatchedKeywords:          class.matched,
		TimeSensitive:            timeSensitive,
		EarliestDeadlineISO:      earliest,
		DeadlineSignals:          signals,
		Facts: map[string]any{
			"truthLayerVersion":        Version,
			"source":                   Source,
			"sourceCaseId":             in.CaseID.String(),
			"sourceAssetId":            in.AssetID.String(),
			"sourceExtractionId":       in.ExtractionID.String(),
			"sourceExtractionEngine":   in.ExtractionEngine,
			"extractionCreatedAt":      in.ExtractionCreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
			"documentType":             class.documentType,
			"classificationConfidence": class.confidence,
			"matchedKeywords":          class.matched,
			"timeSensitive":            timeSensitive,
			"earliestDeadlineIso":      earliestFact,
			"deadlineSignals":          signals,
		},
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func earliestDate(signals []Signal) string {
	var earliest string
	for _, s := range signals {
		if s.DateISO == "" {
			continue
		}
		if earliest == "" || s.DateISO < earliest {
			earliest = s.DateISO
		}
	}
	return earliest
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func diffDays(from, to time.Time) int {
	return int(startOfDay(to).Sub(startOfDay(from)).Hours() / 24)
}

// Package formatter renders truth layer results into a deterministic verdict.
package formatter

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/truth"
)

const (
	ProviderDeterministic = "deterministic"

	Model      = "deterministic-formatter-v1"
	Disclaimer = "ClearCase provides legal information, not legal advice. " +
		"Consider a licensed attorney for advice about your specific situation."

	nonLegalImage   = "non_legal_or_unclear_image"
	weeklyAssurance = "No new time-sensitive changes were detected this week."
)

// ErrUnsupportedProvider is returned by New for any provider other than deterministic.
var ErrUnsupportedProvider = errors.New("unsupported formatter provider")

// ReminderOffsets are the day offsets before a deadline that the deadline guard lists.
var ReminderOffsets = []int{14, 7, 3, 1}

// Input identifies the extraction being formatted and carries its truth result.
type Input struct {
	CaseID       uuid.UUID
	ExtractionID uuid.UUID
	Truth        truth.Result
}

// Output is a rendered verdict.
type Output struct {
	LLMModel                 string
	InputHash                string
	PlainEnglishExplanation  string
	NonLegalAdviceDisclaimer string
	OutputJSON               []byte
}

// Formatter renders a verdict from a truth result.
type Formatter interface {
	Format(in Input) (*Output, error)
}

type deterministic struct{}

// New returns the formatter for provider. An empty provider selects the
// deterministic formatter; any other name is rejected.
func New(provider string) (Formatter, error) {
	switch provider {
	case "", ProviderDeterministic:
		return deterministic{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
}

func (deterministic) Format(in Input) (*Output, error) {
	t := in.Truth
	label := documentLabel(t.DocumentType)
	esc := escalation(t.DocumentType, t.TimeSensitive)

	var explanation string
	if t.DocumentType == nonLegalImage {
		explanation = strings.Join([]string{
			fmt.Sprintf("This upload appears to be %s.", label),
			"We did not detect strong legal-document signals in the extracted content.",
			"Add anything not visible in the document (what happened, when, where) and upload related notices or letters for better continuity.",
			"This summary is informational and based only on extracted structured facts.",
		}, " ")
	} else {
		explanation = strings.Join([]string{
			fmt.Sprintf("This document appears to be %s.", label),
			deadlineSummary(t),
			esc.Reason,
			"This summary is informational and based only on extracted structured facts.",
		}, " ")
	}

	signals := receiptSignals(t.DeadlineSignals)
	var earliest *string
	if t.HasDeadline() {
		earliest = &t.EarliestDeadlineISO
	}

	doc := document{
		Version:     "v1",
		GeneratedBy: "deterministic_structured_formatter_stub",
		Tone:        "calm_non_alarming",
		Summary:     explanation,
		WhatThisUsuallyMeans: []string{
			fmt.Sprintf("People receiving %s often choose to track dates and keep copies of related records.", label),
			"The next practical step is to organize documents and verify facts before responding.",
		},
		Deadlines: deadlines{
			TimeSensitive:       t.TimeSensitive,
			EarliestDeadlineISO: earliest,
			Signals:             signals,
		},
		EvidenceToGather: evidenceChecklist(t.DocumentType),
		EscalationSignal: esc,
		Uncertainty: uncertainty{
			ClassificationConfidence:     t.ClassificationConfidence,
			ClassificationConfidenceBand: ConfidenceBand(t.ClassificationConfidence),
			Notes:                        uncertaintyNotes(t),
		},
		DeadlineGuard: buildDeadlineGuard(t.EarliestDeadlineISO),
		ConsultPacket: consultPacket{
			Sections:          []string{"facts", "dates", "parties", "evidence", "openQuestions"},
			AccessControlHint: "Share links can be time-limited and disabled.",
		},
		Receipts: receipts{
			CaseID:          in.CaseID.String(),
			ExtractionID:    in.ExtractionID.String(),
			DocumentType:    t.DocumentType,
			MatchedKeywords: nonNil(t.MatchedKeywords),
			DeadlineSignals: signals,
		},
		Disclaimer: Disclaimer,
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode verdict: %w", err)
	}

	hash, err := InputHash(in.CaseID, in.ExtractionID, t.Facts)
	if err != nil {
		return nil, err
	}

	return &Output{
		LLMModel:                 Model,
		InputHash:                hash,
		PlainEnglishExplanation:  explanation,
		NonLegalAdviceDisclaimer: Disclaimer,
		OutputJSON:               out,
	}, nil
}

// InputHash returns the sha256 hex digest of the canonical JSON encoding of
// the case id, extraction id, and truth facts.
func InputHash(caseID, extractionID uuid.UUID, facts map[string]any) (string, error) {
	canonical, err := CanonicalJSON(map[string]any{
		"caseId":       caseID.String(),
		"extractionId": extractionID.String(),
		"truth":        facts,
	})
	if err != nil {
		return "", fmt.Errorf("canonicalize input: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalJSON encodes v with object keys sorted at every depth.
// Numbers keep their original textual form.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	// Maps marshal with sorted keys.
	return json.Marshal(generic)
}

// ConfidenceBand buckets a classification confidence.
func ConfidenceBand(v float64) string {
	switch {
	case v >= 0.85:
		return "high"
	case v >= 0.6:
		return "medium"
	default:
		return "low"
	}
}

func deadlineSummary(t truth.Result) string {
	switch {
	case t.HasDeadline():
		return fmt.Sprintf("Earliest detected date: %s.", t.EarliestDeadlineISO)
	case t.TimeSensitive:
		return "Time-sensitive language was detected, but no exact date was extracted."
	default:
		return "No deadline signal was detected from current structured facts."
	}
}

func uncertaintyNotes(t truth.Result) []string {
	var notes []string
	if t.ClassificationConfidence < 0.7 {
		notes = append(notes, "Document classification confidence is moderate or low.")
	}
	if !t.HasDeadline() {
		notes = append(notes, "No explicit calendar date was detected in the extracted text.")
	}
	if len(t.MatchedKeywords) == 0 {
		notes = append(notes, "Classification was inferred from general legal-language patterns.")
	}
	if len(notes) == 0 {
		notes = append(notes, "No major uncertainty flags were detected in this formatting pass.")
	}
	return notes
}

func receiptSignals(signals []truth.Signal) []receiptSignal {
	out := make([]receiptSignal, len(signals))
	for i, s := range signals {
		out[i] = receiptSignal{
			Kind:               string(s.Kind),
			SourceText:         s.SourceText,
			Confidence:         s.Confidence,
			DaysFromExtraction: s.DaysFromExtraction,
		}
		if s.DateISO != "" {
			date := s.DateISO
			out[i].DateISO = &date
		}
	}
	return out
}

func buildDeadlineGuard(earliest string) deadlineGuard {
	guard := deadlineGuard{
		Reminders:       []guardReminder{},
		WeeklyAssurance: weeklyAssurance,
	}

	base, err := time.Parse(time.DateOnly, earliest)
	if earliest == "" || err != nil {
		return guard
	}

	guard.HasTrackedDeadline = true
	guard.DeadlineISO = earliest
	for _, offset := range ReminderOffsets {
		guard.Reminders = append(guard.Reminders, guardReminder{
			Label:           fmt.Sprintf("T-%d", offset),
			ReminderDateISO: base.AddDate(0, 0, -offset).Format(time.DateOnly),
		})
	}
	return guard
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

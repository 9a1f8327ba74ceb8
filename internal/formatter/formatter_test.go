package formatter_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/formatter"
	"github.com/clearcase/worker/internal/truth"
)

var (
	caseID       = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	assetID      = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
	extractionID = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000003")
)

func truthFor(text string) truth.Result {
	return truth.Build(truth.Input{
		CaseID:              caseID,
		AssetID:             assetID,
		ExtractionID:        extractionID,
		ExtractionEngine:    "stub-deterministic-ocr",
		ExtractionCreatedAt: time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC),
		RawText:             text,
		StructuredFacts: map[string]any{
			"source":   "deterministic_stub",
			"fileName": "summons-deadline-2026-03-01.jpg",
			"mimeType": "image/jpeg",
		},
	})
}

func mustFormatter(t *testing.T) formatter.Formatter {
	t.Helper()
	f, err := formatter.New(formatter.ProviderDeterministic)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return m
}

func TestNewProviders(t *testing.T) {
	for _, name := range []string{"", "deterministic"} {
		if _, err := formatter.New(name); err != nil {
			t.Errorf("New(%q): %v", name, err)
		}
	}
	for _, name := range []string{"stub", "openai", "Deterministic"} {
		_, err := formatter.New(name)
		if !errors.Is(err, formatter.ErrUnsupportedProvider) {
			t.Errorf("New(%q) error = %v, want ErrUnsupportedProvider", name, err)
		}
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	f := mustFormatter(t)
	in := formatter.Input{CaseID: caseID, ExtractionID: extractionID, Truth: truthFor("SUMMONS COMPLAINT. Respond by 2026-03-01.")}

	first, err := f.Format(in)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	second, err := f.Format(in)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	if first.InputHash != second.InputHash {
		t.Error("input hash differs across calls")
	}
	if !bytes.Equal(first.OutputJSON, second.OutputJSON) {
		t.Error("output json differs across calls")
	}
	if first.PlainEnglishExplanation != second.PlainEnglishExplanation {
		t.Error("explanation differs across calls")
	}
	if len(first.InputHash) != 64 {
		t.Errorf("input hash length = %d, want 64", len(first.InputHash))
	}
	if first.LLMModel != formatter.Model {
		t.Errorf("model = %q", first.LLMModel)
	}
}

func TestInputHashChangesWithInputs(t *testing.T) {
	facts := truthFor("summons").Facts

	base, err := formatter.InputHash(caseID, extractionID, facts)
	if err != nil {
		t.Fatal(err)
	}
	other, err := formatter.InputHash(caseID, uuid.New(), facts)
	if err != nil {
		t.Fatal(err)
	}
	if base == other {
		t.Error("hash should depend on extraction id")
	}
}

func TestCanonicalJSONSortsKeys(t *testing.T) {
	got, err := formatter.CanonicalJSON(map[string]any{
		"b": 1,
		"a": map[string]any{"z": true, "m": []any{map[string]any{"y": 1, "x": 2}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"a":{"m":[{"x":2,"y":1}],"z":true},"b":1}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestFormatSummonsVerdict(t *testing.T) {
	f := mustFormatter(t)
	out, err := f.Format(formatter.Input{CaseID: caseID, ExtractionID: extractionID, Truth: truthFor("SUMMONS COMPLAINT. Respond by 2026-03-01.")})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(out.PlainEnglishExplanation, "This document appears to be a court summons or complaint.") {
		t.Errorf("explanation = %q", out.PlainEnglishExplanation)
	}
	if !strings.Contains(out.PlainEnglishExplanation, "Earliest detected date: 2026-03-01.") {
		t.Errorf("explanation missing deadline: %q", out.PlainEnglishExplanation)
	}
	if out.NonLegalAdviceDisclaimer != formatter.Disclaimer {
		t.Errorf("disclaimer = %q", out.NonLegalAdviceDisclaimer)
	}

	doc := decode(t, out.OutputJSON)

	esc := doc["escalationSignal"].(map[string]any)
	if esc["recommended"] != true {
		t.Error("summons should recommend escalation")
	}

	evidence := doc["evidenceToGather"].([]any)
	if len(evidence) != 5 {
		t.Errorf("evidence items = %d, want 5", len(evidence))
	}

	guard := doc["deadlineGuard"].(map[string]any)
	if guard["hasTrackedDeadline"] != true || guard["deadlineIso"] != "2026-03-01" {
		t.Errorf("deadline guard = %v", guard)
	}
	reminders := guard["reminders"].([]any)
	wantDates := []string{"2026-02-15", "2026-02-22", "2026-02-26", "2026-02-28"}
	if len(reminders) != len(wantDates) {
		t.Fatalf("reminders = %d, want %d", len(reminders), len(wantDates))
	}
	for i, r := range reminders {
		if got := r.(map[string]any)["reminderDateIso"]; got != wantDates[i] {
			t.Errorf("reminder %d date = %v, want %s", i, got, wantDates[i])
		}
	}

	receipts := doc["receipts"].(map[string]any)
	if receipts["caseId"] != caseID.String() || receipts["extractionId"] != extractionID.String() {
		t.Errorf("receipts = %v", receipts)
	}
}

func TestFormatWithoutDeadline(t *testing.T) {
	f := mustFormatter(t)
	tr := truth.Build(truth.Input{
		CaseID:              caseID,
		AssetID:             assetID,
		ExtractionID:        extractionID,
		ExtractionCreatedAt: time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC),
		RawText:             "a letter about something",
	})

	out, err := f.Format(formatter.Input{CaseID: caseID, ExtractionID: extractionID, Truth: tr})
	if err != nil {
		t.Fatal(err)
	}
	doc := decode(t, out.OutputJSON)

	deadlines := doc["deadlines"].(map[string]any)
	if v, ok := deadlines["earliestDeadlineIso"]; !ok || v != nil {
		t.Errorf("earliestDeadlineIso = %v (present %v), want explicit null", v, ok)
	}

	guard := doc["deadlineGuard"].(map[string]any)
	if guard["hasTrackedDeadline"] != false {
		t.Error("guard should not track a deadline")
	}
	if _, ok := guard["deadlineIso"]; ok {
		t.Error("guard should omit deadlineIso")
	}

	unc := doc["uncertainty"].(map[string]any)
	if unc["classificationConfidenceBand"] != "low" {
		t.Errorf("band = %v", unc["classificationConfidenceBand"])
	}
	if notes := unc["notes"].([]any); len(notes) != 3 {
		t.Errorf("notes = %v, want 3", notes)
	}
	if !strings.Contains(out.PlainEnglishExplanation, "No deadline signal was detected") {
		t.Errorf("explanation = %q", out.PlainEnglishExplanation)
	}
}

func TestConfidenceBand(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0.95, "high"},
		{0.85, "high"},
		{0.84, "medium"},
		{0.6, "medium"},
		{0.55, "low"},
	}
	for _, tt := range tests {
		if got := formatter.ConfidenceBand(tt.v); got != tt.want {
			t.Errorf("ConfidenceBand(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestEvictionEscalationNeedsTimeSensitivity(t *testing.T) {
	f := mustFormatter(t)

	calm := truth.Result{DocumentType: "eviction_notice", ClassificationConfidence: 0.68, MatchedKeywords: []string{"eviction"}}
	urgent := calm
	urgent.TimeSensitive = true

	for _, tc := range []struct {
		in   truth.Result
		want bool
	}{{calm, false}, {urgent, true}} {
		out, err := f.Format(formatter.Input{CaseID: caseID, ExtractionID: extractionID, Truth: tc.in})
		if err != nil {
			t.Fatal(err)
		}
		esc := decode(t, out.OutputJSON)["escalationSignal"].(map[string]any)
		if esc["recommended"] != tc.want {
			t.Errorf("timeSensitive=%v: recommended = %v, want %v", tc.in.TimeSensitive, esc["recommended"], tc.want)
		}
	}
}

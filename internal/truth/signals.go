package truth

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SignalKind distinguishes how a deadline signal was detected.
type SignalKind string

const (
	KindAbsoluteDate SignalKind = "absolute_date"
	KindRelativeDays SignalKind = "relative_days"
	KindUrgentPhrase SignalKind = "urgent_phrase"
)

const (
	isoConfidence       = 0.92
	slashConfidence     = 0.88
	monthNameConfidence = 0.86
	relativeConfidence  = 0.7
	urgentConfidence    = 0.6

	maxRelativeDays = 365
)

// Signal is a single piece of deadline evidence found in the text.
type Signal struct {
	Kind               SignalKind `json:"kind"`
	SourceText         string     `json:"sourceText"`
	Confidence         float64    `json:"confidence"`
	DateISO            string     `json:"dateIso,omitempty"`
	DaysFromExtraction *int       `json:"daysFromExtraction,omitempty"`
}

var (
	isoPattern       = regexp.MustCompile(`\b(20\d{2})-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])\b`)
	slashPattern     = regexp.MustCompile(`\b(0?[1-9]|1[0-2])[/\-](0?[1-9]|[12]\d|3[01])[/\-](20\d{2})\b`)
	monthNamePattern = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+([0-3]?\d),?\s+(20\d{2})\b`)

	relativePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bwithin\s+(\d{1,3})\s+days?\b`),
		regexp.MustCompile(`\b(?:in|after)\s+(\d{1,3})\s+days?\b`),
	}

	urgentPhrases = []string{
		"urgent",
		"immediately",
		"final notice",
		"court date",
		"hearing",
		"deadline",
		"respond by",
		"pay or quit",
	}

	months = map[string]time.Month{
		"january":   time.January,
		"february":  time.February,
		"march":     time.March,
		"april":     time.April,
		"may":       time.May,
		"june":      time.June,
		"july":      time.July,
		"august":    time.August,
		"september": time.September,
		"october":   time.October,
		"november":  time.November,
		"december":  time.December,
	}
)

func absoluteDateSignals(text string) []Signal {
	var signals []Signal

	for _, m := range isoPattern.FindAllStringSubmatch(text, -1) {
		if d, ok := calendarDate(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3])); ok {
			signals = append(signals, dated(KindAbsoluteDate, m[0], isoConfidence, d))
		}
	}

	for _, m := range slashPattern.FindAllStringSubmatch(text, -1) {
		if d, ok := calendarDate(atoi(m[3]), time.Month(atoi(m[1])), atoi(m[2])); ok {
			signals = append(signals, dated(KindAbsoluteDate, m[0], slashConfidence, d))
		}
	}

	for _, m := range monthNamePattern.FindAllStringSubmatch(text, -1) {
		month, ok := months[m[1]]
		if !ok {
			continue
		}
		if d, ok := calendarDate(atoi(m[3]), month, atoi(m[2])); ok {
			signals = append(signals, dated(KindAbsoluteDate, m[0], monthNameConfidence, d))
		}
	}

	return dedupe(signals)
}

func relativeDaySignals(text string, extractedAt time.Time) []Signal {
	var signals []Signal
	base := startOfDay(extractedAt)

	for _, p := range relativePatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			days := atoi(m[1])
			if days < 0 || days > maxRelativeDays {
				continue
			}
			s := dated(KindRelativeDays, m[0], relativeConfidence, base.AddDate(0, 0, days))
			s.DaysFromExtraction = &days
			signals = append(signals, s)
		}
	}

	return dedupe(signals)
}

func urgentSignals(text string) []Signal {
	var signals []Signal
	for _, phrase := range urgentPhrases {
		if strings.Contains(text, phrase) {
			signals = append(signals, Signal{
				Kind:       KindUrgentPhrase,
				SourceText: phrase,
				Confidence: urgentConfidence,
			})
		}
	}
	return signals
}

func dated(kind SignalKind, source string, confidence float64, d time.Time) Signal {
	return Signal{
		Kind:       kind,
		SourceText: source,
		Confidence: confidence,
		DateISO:    d.Format(time.DateOnly),
	}
}

// calendarDate rejects dates that do not exist, such as February 30.
func calendarDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func dedupe(signals []Signal) []Signal {
	seen := make(map[string]struct{}, len(signals))
	out := make([]Signal, 0, len(signals))
	for _, s := range signals {
		date := s.DateISO
		if date == "" {
			date = "none"
		}
		key := string(s.Kind) + ":" + date + ":" + strings.ToLower(s.SourceText)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

package formatter

// Field order in these types is the serialized key order of the verdict.

type document struct {
	Version              string        `json:"version"`
	GeneratedBy          string        `json:"generatedBy"`
	Tone                 string        `json:"tone"`
	Summary              string        `json:"summary"`
	WhatThisUsuallyMeans []string      `json:"whatThisUsuallyMeans"`
	Deadlines            deadlines     `json:"deadlines"`
	EvidenceToGather     []string      `json:"evidenceToGather"`
	EscalationSignal     Escalation    `json:"escalationSignal"`
	Uncertainty          uncertainty   `json:"uncertainty"`
	DeadlineGuard        deadlineGuard `json:"deadlineGuard"`
	ConsultPacket        consultPacket `json:"consultPacket"`
	Receipts             receipts      `json:"receipts"`
	Disclaimer           string        `json:"disclaimer"`
}

type deadlines struct {
	TimeSensitive       bool            `json:"timeSensitive"`
	EarliestDeadlineISO *string         `json:"earliestDeadlineIso"`
	Signals             []receiptSignal `json:"signals"`
}

type receiptSignal struct {
	Kind               string  `json:"kind"`
	SourceText         string  `json:"sourceText"`
	Confidence         float64 `json:"confidence"`
	DateISO            *string `json:"dateIso"`
	DaysFromExtraction *int    `json:"daysFromExtraction"`
}

// Escalation recommends whether the document warrants prompt legal review.
type Escalation struct {
	Recommended bool   `json:"recommended"`
	Reason      string `json:"reason"`
}

type uncertainty struct {
	ClassificationConfidence     float64  `json:"classificationConfidence"`
	ClassificationConfidenceBand string   `json:"classificationConfidenceBand"`
	Notes                        []string `json:"notes"`
}

type deadlineGuard struct {
	HasTrackedDeadline bool            `json:"hasTrackedDeadline"`
	DeadlineISO        string          `json:"deadlineIso,omitempty"`
	Reminders          []guardReminder `json:"reminders"`
	WeeklyAssurance    string          `json:"weeklyAssurance"`
}

type guardReminder struct {
	Label           string `json:"label"`
	ReminderDateISO string `json:"reminderDateIso"`
}

type consultPacket struct {
	Sections          []string `json:"sections"`
	AccessControlHint string   `json:"accessControlHint"`
}

type receipts struct {
	CaseID          string          `json:"caseId"`
	ExtractionID    string          `json:"extractionId"`
	DocumentType    string          `json:"documentType"`
	MatchedKeywords []string        `json:"matchedKeywords"`
	DeadlineSignals []receiptSignal `json:"deadlineSignals"`
}

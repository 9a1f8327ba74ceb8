package extraction

import (
	"context"
	"strings"
)

const (
	StubEngine        = "stub-deterministic-ocr"
	StubEngineVersion = "v1"
)

type stub struct{}

// NewStub returns a provider that builds text from the request fields only.
// The storage key is never part of its output.
func NewStub() Provider {
	return stub{}
}

func (stub) Extract(_ context.Context, in Input) (*Result, error) {
	lines := []string{
		"CLEARCASE OCR STUB OUTPUT",
		"CASE: " + in.CaseID.String(),
		"ASSET: " + in.AssetID.String(),
		"FILE: " + in.FileName,
		"MIME: " + in.MimeType,
	}

	facts := map[string]any{
		"source":   "deterministic_stub",
		"fileName": in.FileName,
		"mimeType": in.MimeType,
	}

	if desc := strings.TrimSpace(in.UserDescription); desc != "" {
		lines = append(lines, "CONTEXT: "+desc)
		facts["userDescription"] = desc
	}

	return &Result{
		Engine:          StubEngine,
		EngineVersion:   StubEngineVersion,
		RawText:         strings.Join(lines, "\n"),
		StructuredFacts: facts,
		Metadata: Metadata{
			ProcessingPath:   PathStub,
			PageUnitEstimate: 1,
		},
	}, nil
}

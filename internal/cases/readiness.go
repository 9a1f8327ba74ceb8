package cases

import "math"

// ReadinessInput is the raw material for a readiness snapshot.
type ReadinessInput struct {
	Case            *Case
	AssetCount      int
	ExtractionCount int
	VerdictCount    int
	HasContext      bool
}

// Components lists the readiness checks in a fixed order.
type Components struct {
	DocumentType    bool `json:"documentType"`
	DeadlineSignal  bool `json:"deadlineSignal"`
	Summary         bool `json:"summary"`
	Context         bool `json:"context"`
	Assets          bool `json:"assets"`
	Extraction      bool `json:"extraction"`
	Verdict         bool `json:"verdict"`
	ConfidenceKnown bool `json:"confidenceKnown"`
}

func (c Components) met() int {
	n := 0
	for _, ok := range []bool{
		c.DocumentType, c.DeadlineSignal, c.Summary, c.Context,
		c.Assets, c.Extraction, c.Verdict, c.ConfidenceKnown,
	} {
		if ok {
			n++
		}
	}
	return n
}

const componentCount = 8

// Readiness is a percentage score over the components.
type Readiness struct {
	Score      int        `json:"score"`
	Components Components `json:"components"`
}

// ComputeReadiness scores how complete a case is for a consult.
func ComputeReadiness(in ReadinessInput) Readiness {
	var c Components
	if in.Case != nil {
		c.DocumentType = in.Case.DocumentType != nil && *in.Case.DocumentType != ""
		c.DeadlineSignal = in.Case.EarliestDeadline != nil
		c.Summary = in.Case.PlainEnglishExplanation != nil && *in.Case.PlainEnglishExplanation != ""
		c.ConfidenceKnown = in.Case.ClassificationConfidence != nil
	}
	c.Context = in.HasContext
	c.Assets = in.AssetCount >= 2
	c.Extraction = in.ExtractionCount > 0
	c.Verdict = in.VerdictCount > 0

	return Readiness{
		Score:      int(math.Round(float64(c.met()) / componentCount * 100)),
		Components: c,
	}
}

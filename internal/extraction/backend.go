package extraction

import (
	"context"
	"os/exec"
)

// Backend performs OCR on document bytes.
type Backend interface {
	// Engine returns the engine name and version recorded on extractions.
	Engine() (name, version string)
	Annotate(ctx context.Context, data []byte, mimeType string) (*Annotation, error)
}

// Annotation is the full-text result of an OCR run.
type Annotation struct {
	Text  string
	Pages []AnnotatedPage
}

// AnnotatedPage is the structure reported for a single page.
type AnnotatedPage struct {
	Width      int
	Height     int
	Confidence float64
	Blocks     int
	Words      int
}

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func summarize(ann *Annotation) *OCRSummary {
	s := &OCRSummary{Pages: make([]PageSummary, len(ann.Pages))}
	var total float64
	for i, p := range ann.Pages {
		s.Pages[i] = PageSummary{
			Width:      p.Width,
			Height:     p.Height,
			Confidence: p.Confidence,
			Blocks:     p.Blocks,
			Words:      p.Words,
		}
		total += p.Confidence
	}
	if len(ann.Pages) > 0 {
		s.AverageConfidence = total / float64(len(ann.Pages))
	}
	return s
}

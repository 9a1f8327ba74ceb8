package cases

import (
	"github.com/clearcase/worker/pkg/query"
	"github.com/clearcase/worker/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "cases", "c").
	Project("id", "ID").
	Project("user_id", "UserID").
	Project("title", "Title").
	Project("document_type", "DocumentType").
	Project("classification_confidence", "ClassificationConfidence").
	Project("time_sensitive", "TimeSensitive").
	Project("earliest_deadline", "EarliestDeadline").
	Project("plain_english_explanation", "PlainEnglishExplanation").
	Project("non_legal_advice_disclaimer", "NonLegalAdviceDisclaimer").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

func scanCase(s repository.Scanner) (Case, error) {
	var c Case
	err := s.Scan(
		&c.ID,
		&c.UserID,
		&c.Title,
		&c.DocumentType,
		&c.ClassificationConfidence,
		&c.TimeSensitive,
		&c.EarliestDeadline,
		&c.PlainEnglishExplanation,
		&c.NonLegalAdviceDisclaimer,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

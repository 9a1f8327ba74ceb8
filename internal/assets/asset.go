// Package assets persists uploaded assets and the extractions and verdicts
// derived from them. Extractions are append-only; the most recent one is the
// current extraction for its asset. A verdict marks its extraction complete.
package assets

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Asset is an uploaded file belonging to a case.
type Asset struct {
	ID          uuid.UUID `json:"id"`
	CaseID      uuid.UUID `json:"case_id"`
	StorageKey  string    `json:"storage_key"`
	FileName    string    `json:"file_name"`
	MimeType    string    `json:"mime_type"`
	ByteSize    int64     `json:"byte_size"`
	ContentHash *string   `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Extraction is a text extraction result for an asset.
type Extraction struct {
	ID               uuid.UUID       `json:"id"`
	CaseID           uuid.UUID       `json:"case_id"`
	AssetID          uuid.UUID       `json:"asset_id"`
	Engine           string          `json:"engine"`
	EngineVersion    string          `json:"engine_version"`
	RawText          string          `json:"raw_text"`
	StructuredFacts  map[string]any  `json:"structured_facts"`
	ProviderMetadata json.RawMessage `json:"provider_metadata"`
	PageUnitEstimate int             `json:"page_unit_estimate"`
	ContentHash      *string         `json:"content_hash"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Verdict is the formatted result for an extraction.
type Verdict struct {
	ID           uuid.UUID       `json:"id"`
	CaseID       uuid.UUID       `json:"case_id"`
	ExtractionID uuid.UUID       `json:"extraction_id"`
	LLMModel     string          `json:"llm_model"`
	InputHash    string          `json:"input_hash"`
	OutputJSON   json.RawMessage `json:"output_json"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CreateExtractionCommand carries a provider result to persist.
// A non-empty ContentHash is back-filled onto the asset when it has none.
type CreateExtractionCommand struct {
	CaseID           uuid.UUID
	AssetID          uuid.UUID
	Engine           string
	EngineVersion    string
	RawText          string
	StructuredFacts  map[string]any
	ProviderMetadata any
	PageUnitEstimate int
	ContentHash      string
	// ProcessingPath is recorded on the OCR_RUN audit entry.
	ProcessingPath string
}

// CreateVerdictCommand carries formatter output to persist. The case's
// explanation and disclaimer are updated in the same transaction.
type CreateVerdictCommand struct {
	CaseID                   uuid.UUID
	ExtractionID             uuid.UUID
	LLMModel                 string
	InputHash                string
	OutputJSON               []byte
	PlainEnglishExplanation  string
	NonLegalAdviceDisclaimer string
}

// Counts are per-case row totals used by the readiness snapshot.
type Counts struct {
	Assets      int `json:"assets"`
	Extractions int `json:"extractions"`
	Verdicts    int `json:"verdicts"`
}

package assets

import (
	"encoding/json"

	"github.com/clearcase/worker/pkg/query"
	"github.com/clearcase/worker/pkg/repository"
)

var assetProjection = query.
	NewProjectionMap("public", "assets", "a").
	Project("id", "ID").
	Project("case_id", "CaseID").
	Project("storage_key", "StorageKey").
	Project("file_name", "FileName").
	Project("mime_type", "MimeType").
	Project("byte_size", "ByteSize").
	Project("content_hash", "ContentHash").
	Project("created_at", "CreatedAt")

var extractionProjection = query.
	NewProjectionMap("public", "extractions", "e").
	Project("id", "ID").
	Project("case_id", "CaseID").
	Project("asset_id", "AssetID").
	Project("engine", "Engine").
	Project("engine_version", "EngineVersion").
	Project("raw_text", "RawText").
	Project("structured_facts", "StructuredFacts").
	Project("provider_metadata", "ProviderMetadata").
	Project("page_unit_estimate", "PageUnitEstimate").
	Project("content_hash", "ContentHash").
	Project("created_at", "CreatedAt")

var verdictProjection = query.
	NewProjectionMap("public", "verdicts", "v").
	Project("id", "ID").
	Project("case_id", "CaseID").
	Project("extraction_id", "ExtractionID").
	Project("llm_model", "LLMModel").
	Project("input_hash", "InputHash").
	Project("output_json", "OutputJSON").
	Project("created_at", "CreatedAt")

func scanAsset(s repository.Scanner) (Asset, error) {
	var a Asset
	err := s.Scan(
		&a.ID,
		&a.CaseID,
		&a.StorageKey,
		&a.FileName,
		&a.MimeType,
		&a.ByteSize,
		&a.ContentHash,
		&a.CreatedAt,
	)
	return a, err
}

func scanExtraction(s repository.Scanner) (Extraction, error) {
	var (
		e        Extraction
		facts    []byte
		metadata []byte
	)
	err := s.Scan(
		&e.ID,
		&e.CaseID,
		&e.AssetID,
		&e.Engine,
		&e.EngineVersion,
		&e.RawText,
		&facts,
		&metadata,
		&e.PageUnitEstimate,
		&e.ContentHash,
		&e.CreatedAt,
	)
	if err != nil {
		return e, err
	}

	e.ProviderMetadata = metadata
	if len(facts) > 0 {
		if err := json.Unmarshal(facts, &e.StructuredFacts); err != nil {
			return e, err
		}
	}
	return e, nil
}

func scanVerdict(s repository.Scanner) (Verdict, error) {
	var (
		v      Verdict
		output []byte
	)
	err := s.Scan(
		&v.ID,
		&v.CaseID,
		&v.ExtractionID,
		&v.LLMModel,
		&v.InputHash,
		&output,
		&v.CreatedAt,
	)
	v.OutputJSON = output
	return v, err
}

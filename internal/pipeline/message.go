package pipeline

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MessageTypeAssetUploaded is the only message type the worker handles.
const MessageTypeAssetUploaded = "asset_uploaded"

//go:embed message.schema.json
var messageSchemaJSON []byte

var messageSchema = compileSchema()

func compileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("message.json", bytes.NewReader(messageSchemaJSON)); err != nil {
		panic(fmt.Sprintf("add message schema: %v", err))
	}
	return compiler.MustCompile("message.json")
}

// Message is an asset_uploaded queue message.
type Message struct {
	Type            string        `json:"type"`
	CaseID          uuid.UUID     `json:"caseId"`
	AssetID         uuid.UUID     `json:"assetId"`
	UserDescription string        `json:"userDescription,omitempty"`
	ContextReuse    *ContextReuse `json:"contextReuse,omitempty"`
	ForceFail       bool          `json:"forceFail,omitempty"`
}

// ContextReuse names the case a reused description came from.
type ContextReuse struct {
	SourceCaseID *uuid.UUID `json:"sourceCaseId,omitempty"`
}

// ParseMessage decodes and validates a queue message body.
func ParseMessage(body []byte) (*Message, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fail(StageParse, nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err))
	}

	if obj, ok := raw.(map[string]any); ok && obj["forceFail"] == true {
		msg := &Message{}
		_ = json.Unmarshal(body, msg)
		return nil, fail(StageValidate, msg, ErrForcedFailure)
	}

	if err := messageSchema.Validate(raw); err != nil {
		return nil, fail(StageValidate, nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err))
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fail(StageValidate, nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err))
	}
	return &msg, nil
}

package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clearcase/worker/internal/assets"
	"github.com/clearcase/worker/internal/cases"
	"github.com/clearcase/worker/pkg/repository"
	"github.com/clearcase/worker/pkg/storage"
)

// Stage names a step of message handling.
type Stage string

const (
	StageHandle           Stage = "handle_message"
	StageParse            Stage = "parse"
	StageValidate         Stage = "validate"
	StageLoadAsset        Stage = "load_asset"
	StageIdempotencyCheck Stage = "idempotency_check"
	StageOCR              Stage = "ocr_stage"
	StageTruth            Stage = "truth_stage"
	StageFormatter        Stage = "formatter_stage"
	StageSyncReminders    Stage = "sync_reminders"
	StageDeleteMessage    Stage = "delete_message"
)

// Code is the stable classification of a failure.
type Code string

const (
	CodeInvalidMessage     Code = "INVALID_MESSAGE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeBackendAuthOrQuota Code = "BACKEND_AUTH_OR_QUOTA"
	CodeStorageConstraint  Code = "STORAGE_CONSTRAINT"
	CodeTransient          Code = "TRANSIENT"
	CodeForcedFailure      Code = "FORCED_FAILURE"
	CodeInternal           Code = "INTERNAL"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrForcedFailure  = errors.New("forced message failure")
	ErrAssetMismatch  = errors.New("asset does not belong to case")
	ErrHandlerPanic   = errors.New("message handler panicked")
)

// authOrQuotaPatterns mark extraction backend failures that retrying cannot fix.
var authOrQuotaPatterns = []string{
	"permission denied",
	"unauthenticated",
	"unauthorized",
	"credential",
	"quota",
	"billing",
	"resource exhausted",
	"api key",
}

// StageError is a failure normalized with its stage and retry policy.
type StageError struct {
	Stage      Stage
	Code       Code
	Retryable  bool
	CaseID     uuid.UUID
	AssetID    uuid.UUID
	Message    string
	Constraint repository.Constraint
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Code, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Classify normalizes err raised at stage. An error that is already a
// StageError is returned as is.
func Classify(stage Stage, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}

	se = &StageError{
		Stage:   stage,
		Code:    CodeTransient,
		Message: err.Error(),
		Err:     err,
	}

	switch {
	case errors.Is(err, ErrForcedFailure):
		se.Code = CodeForcedFailure
		se.Retryable = true
	case errors.Is(err, ErrHandlerPanic):
		se.Code = CodeInternal
	case errors.Is(err, ErrInvalidMessage):
		se.Code = CodeInvalidMessage
	case errors.Is(err, assets.ErrNotFound),
		errors.Is(err, cases.ErrNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, ErrAssetMismatch):
		se.Code = CodeNotFound
	case errors.Is(err, storage.ErrPermissionDenied):
		se.Code = CodeBackendAuthOrQuota
	default:
		if c, ok := repository.ConstraintViolation(err); ok {
			se.Code = CodeStorageConstraint
			se.Constraint = c
		} else if stage == StageOCR && matchesAuthOrQuota(err) {
			se.Code = CodeBackendAuthOrQuota
		} else {
			se.Retryable = true
		}
	}

	return se
}

func matchesAuthOrQuota(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, p := range authOrQuotaPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// fail wraps err for stage with the message identifiers attached.
func fail(stage Stage, msg *Message, err error) *StageError {
	se := Classify(stage, err)
	if msg != nil {
		if se.CaseID == uuid.Nil {
			se.CaseID = msg.CaseID
		}
		if se.AssetID == uuid.Nil {
			se.AssetID = msg.AssetID
		}
	}
	return se
}

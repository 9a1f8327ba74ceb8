package assets

import "errors"

var (
	ErrNotFound           = errors.New("asset not found")
	ErrExtractionNotFound = errors.New("extraction not found")
	ErrVerdictNotFound    = errors.New("verdict not found")
	ErrDuplicate          = errors.New("asset record already exists")
)

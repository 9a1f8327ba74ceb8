package cases

import "errors"

var ErrNotFound = errors.New("case not found")

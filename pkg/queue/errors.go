package queue

import "errors"

var (
	ErrEmptyBody      = errors.New("message body is empty")
	ErrInvalidReceipt = errors.New("receipt does not match the current delivery")
)

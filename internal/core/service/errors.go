package service

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrPermissionDenied = errors.New("permission denied")
	ErrCheckoutMismatch = errors.New("checkout does not match cart")
	ErrQueueClosed      = errors.New("order queue closed")
)

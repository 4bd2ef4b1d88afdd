package service

import "errors"

// Sentinel errors mapped to HTTP statuses by the handler layer
var (
	ErrNotFound       = errors.New("resource not found")
	ErrForbidden      = errors.New("forbidden")
	ErrTerminalStatus = errors.New("request is in a terminal status")
	ErrNotEditable    = errors.New("request is not editable in its current status")
	ErrInvalidInput   = errors.New("invalid input")
)

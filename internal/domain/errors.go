package domain

import "errors"

var (
	ErrNoTarget             = errors.New("no video target selected")
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrAlreadyActive        = errors.New("session already active")
	ErrTargetLost           = errors.New("video target lost")
	ErrCaptureFailed        = errors.New("frame capture failed")
	ErrNotConnected         = errors.New("not connected")
	ErrClosed               = errors.New("session closed")
	ErrUnknownSource        = errors.New("unknown video source")
	ErrUnknownAlert         = errors.New("unknown alert")
)

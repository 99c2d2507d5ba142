package model

import "errors"

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrUnauthorized        = errors.New("authentication required")
	ErrDraftNotFound       = errors.New("wizard draft not found")
	ErrUpstreamUnreachable = errors.New("upstream API unreachable")
)

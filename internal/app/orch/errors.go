package orch

import (
	"errors"
	"fmt"
)

var (
	ErrConnect        = errors.New("connect error")
	ErrDisconnect     = errors.New("disconnect error")
	ErrSend           = errors.New("send error")
	ErrMessage        = errors.New("message error")
	ErrUpdateSession  = errors.New("update session error")
	ErrNoSessionFound = errors.New("no session found")
)

// wrap keeps both kind and cause visible to errors.Is.
func wrap(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}

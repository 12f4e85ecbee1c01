package protocol

import (
	"errors"
	"fmt"
)

var ErrProtocol = errors.New("protocol error")

// ProtocolError describes a message that could not be decoded. It matches
// ErrProtocol with errors.Is.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocol
}

func protocolErrorf(format string, args ...any) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

package control

import (
	"errors"
	"fmt"
)

// Precondition errors abort the operation before any state changes.
var (
	ErrAlreadyOpen      = errors.New("connection already open")
	ErrNotOpen          = errors.New("connection is not open")
	ErrAlreadyStreaming = errors.New("already streaming")
	ErrNothingQueued    = errors.New("no commands queued for streaming")
	ErrActiveCommands   = errors.New("cannot stream while commands are active")
)

// ErrUnexpectedResponse is returned when a device response arrives with
// nothing awaiting one.
var ErrUnexpectedResponse = errors.New("response received with no command awaiting")

// ErrUnsupported is returned for device operations the configured
// device does not provide.
var ErrUnsupported = errors.New("operation not supported by device")

// CommandTooLongError rejects a single command from an append batch.
// The sequence number is still consumed.
type CommandTooLongError struct {
	Number int
	Length int
	Max    int
	Text   string
}

func (e *CommandTooLongError) Error() string {
	return fmt.Sprintf("command #%d too long: (%d > %d) %s", e.Number, e.Length, e.Max, e.Text)
}

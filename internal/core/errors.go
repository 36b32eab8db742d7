package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMember means an event referenced an id the room has no entry for.
	// It indicates a session-layer bug and stops the room.
	ErrUnknownMember = errors.New("unknown member")
	// ErrDuplicateMember means an id arrived while already registered.
	ErrDuplicateMember = errors.New("duplicate member")
	// ErrRoomStopped is returned by Send once the room actor has exited.
	ErrRoomStopped = errors.New("room stopped")
	// ErrBusClosed is returned by a subscription after the bus is closed and drained.
	ErrBusClosed = errors.New("broadcast bus closed")
	// ErrEmpty is returned by TryRecv when nothing is pending.
	ErrEmpty = errors.New("no pending message")
	// ErrInvalidName is used in session logs for rejected names.
	ErrInvalidName = errors.New("invalid display name")
)

// LagError reports that a subscriber fell behind and lost messages.
// The subscription keeps working after it is returned.
type LagError struct {
	Missed uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("subscriber lagged, %d messages dropped", e.Missed)
}

// IsLag reports whether err is a *LagError.
func IsLag(err error) bool {
	var lag *LagError
	return errors.As(err, &lag)
}

package rooms

import "errors"

var (
	// ErrRoomNotFound is returned when an operation references a room code
	// that has no live room. Recoverable: Join resolves it by creating the
	// room on demand.
	ErrRoomNotFound = errors.New("room not found")

	// ErrInvalidRoomCode is returned when a client-supplied code fails the
	// format check. Surfaced to the requester only, never broadcast.
	ErrInvalidRoomCode = errors.New("invalid room code")
)

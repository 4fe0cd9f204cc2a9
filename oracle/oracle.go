// Package oracle provides the randomness source the schedulers commit
// against: values are bound to future beacon rounds and become determinable
// only once the round is reached, then expire after a bounded validity
// window. Callers must treat a value that never materializes as an expected
// failure mode and recover, never block.
package oracle

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotYetAvailable is returned while the requested round is still in
	// the future. It is a normal retry signal, not a failure.
	ErrNotYetAvailable = errors.New("randomness not yet available for round")

	// ErrExpired is returned once the validity window after the requested
	// round has elapsed. The value is permanently unavailable.
	ErrExpired = errors.New("randomness expired for round")

	// ErrRoundNotFuture is returned when a request targets a round that has
	// already been reached.
	ErrRoundNotFuture = errors.New("requested round is not in the future")
)

// RequestHandle is the opaque receipt for a randomness request.
type RequestHandle struct {
	ID          uuid.UUID `json:"id"`
	Round       uint64    `json:"round"`
	RequestedAt time.Time `json:"requested_at"`
}

// Client is the interface every scheduler consumes.
type Client interface {
	// CurrentRound reports the latest reached round of the underlying
	// sequence. Rounds are monotonically increasing.
	CurrentRound() uint64

	// RequestAt registers interest in the value for a future round.
	RequestAt(round uint64) (RequestHandle, error)

	// ValueFor returns the 256-bit value bound to a round, ErrNotYetAvailable
	// before the round is reached, or ErrExpired once the validity window has
	// passed.
	ValueFor(round uint64) ([32]byte, error)
}

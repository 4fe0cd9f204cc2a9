package oracle

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// Beacon is a time-derived randomness beacon: round N is reached at
// genesis + N*period, and its value is the Keccak-256 of the beacon secret
// and the round number. Values answer only inside [round, round+window].
type Beacon struct {
	genesis time.Time
	period  time.Duration
	window  uint64
	secret  [32]byte
	now     func() time.Time
}

func NewBeacon(genesis time.Time, period time.Duration, window uint64, secret [32]byte) *Beacon {
	return &Beacon{
		genesis: genesis,
		period:  period,
		window:  window,
		secret:  secret,
		now:     time.Now,
	}
}

// NewBeaconWithClock is NewBeacon with an injectable clock for tests.
func NewBeaconWithClock(genesis time.Time, period time.Duration, window uint64, secret [32]byte, now func() time.Time) *Beacon {
	b := NewBeacon(genesis, period, window, secret)
	b.now = now
	return b
}

func (b *Beacon) CurrentRound() uint64 {
	elapsed := b.now().Sub(b.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / b.period)
}

func (b *Beacon) RequestAt(round uint64) (RequestHandle, error) {
	if round <= b.CurrentRound() {
		return RequestHandle{}, ErrRoundNotFuture
	}
	return RequestHandle{
		ID:          uuid.New(),
		Round:       round,
		RequestedAt: b.now(),
	}, nil
}

func (b *Beacon) ValueFor(round uint64) ([32]byte, error) {
	current := b.CurrentRound()
	if current < round {
		return [32]byte{}, ErrNotYetAvailable
	}
	if current > round+b.window {
		return [32]byte{}, ErrExpired
	}

	h := sha3.NewLegacyKeccak256()
	h.Write(b.secret[:])
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], round)
	h.Write(buf[:])

	var value [32]byte
	copy(value[:], h.Sum(nil))
	return value, nil
}

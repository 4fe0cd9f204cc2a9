package oracle

import (
	"errors"
	"testing"
	"time"
)

func testBeacon(window uint64) (*Beacon, *time.Time) {
	genesis := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := genesis
	secret := [32]byte{1, 2, 3}
	b := NewBeaconWithClock(genesis, time.Minute, window, secret, func() time.Time { return now })
	return b, &now
}

func TestBeaconCurrentRound(t *testing.T) {
	b, now := testBeacon(5)

	if got := b.CurrentRound(); got != 0 {
		t.Fatalf("round at genesis = %d, want 0", got)
	}
	*now = now.Add(3*time.Minute + 30*time.Second)
	if got := b.CurrentRound(); got != 3 {
		t.Fatalf("round after 3.5 periods = %d, want 3", got)
	}

	*now = b.genesis.Add(-time.Hour)
	if got := b.CurrentRound(); got != 0 {
		t.Fatalf("round before genesis = %d, want 0", got)
	}
}

func TestBeaconRequestAt(t *testing.T) {
	b, now := testBeacon(5)
	*now = now.Add(10 * time.Minute) // round 10

	if _, err := b.RequestAt(10); !errors.Is(err, ErrRoundNotFuture) {
		t.Fatalf("RequestAt(current): %v, want ErrRoundNotFuture", err)
	}
	if _, err := b.RequestAt(4); !errors.Is(err, ErrRoundNotFuture) {
		t.Fatalf("RequestAt(past): %v, want ErrRoundNotFuture", err)
	}

	h, err := b.RequestAt(12)
	if err != nil {
		t.Fatalf("RequestAt(12): %v", err)
	}
	if h.Round != 12 {
		t.Fatalf("handle round = %d, want 12", h.Round)
	}
}

func TestBeaconValueLifecycle(t *testing.T) {
	b, now := testBeacon(5)

	if _, err := b.ValueFor(3); !errors.Is(err, ErrNotYetAvailable) {
		t.Fatalf("value before round: %v, want ErrNotYetAvailable", err)
	}

	*now = now.Add(3 * time.Minute)
	v1, err := b.ValueFor(3)
	if err != nil {
		t.Fatalf("value at round: %v", err)
	}

	// Stable across the whole validity window.
	*now = now.Add(5 * time.Minute)
	v2, err := b.ValueFor(3)
	if err != nil {
		t.Fatalf("value at window edge: %v", err)
	}
	if v1 != v2 {
		t.Fatal("value changed within validity window")
	}

	*now = now.Add(time.Minute)
	if _, err := b.ValueFor(3); !errors.Is(err, ErrExpired) {
		t.Fatalf("value past window: %v, want ErrExpired", err)
	}
}

func TestBeaconValuesDifferPerRound(t *testing.T) {
	b, now := testBeacon(10)
	*now = now.Add(10 * time.Minute)

	v3, err := b.ValueFor(3)
	if err != nil {
		t.Fatal(err)
	}
	v4, err := b.ValueFor(4)
	if err != nil {
		t.Fatal(err)
	}
	if v3 == v4 {
		t.Fatal("distinct rounds produced identical values")
	}
}

package models

import "time"

// QueueEntry is a competitor waiting for the next run, together with the
// loadout chosen at enqueue time. A competitor appears in the queue at most
// once.
type QueueEntry struct {
	CompetitorID int64     `json:"competitor_id"`
	Loadout      Loadout   `json:"loadout"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

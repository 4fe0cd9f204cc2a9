package models

// RatingEntry is one row of the per-period rating ledger. Points only ever
// accumulate; there is no operation that decreases them.
type RatingEntry struct {
	CompetitorID int64 `json:"competitor_id" db:"competitor_id"`
	Period       int   `json:"period" db:"period"`
	Points       int   `json:"points" db:"points"`
}

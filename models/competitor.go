package models

import "time"

// StatBlock are the combat attributes the combat oracle consumes for a
// single bout.
type StatBlock struct {
	Attack   int `json:"attack"`
	Defense  int `json:"defense"`
	Vitality int `json:"vitality"`
	Speed    int `json:"speed"`
}

// Power is the aggregate weight of a stat block, used by power-weighted
// combat resolution.
func (s StatBlock) Power() int {
	return s.Attack + s.Defense + s.Vitality + s.Speed
}

// Loadout is the cosmetic/stance selection a competitor enters the queue
// with. It is captured at enqueue time and validated again at execution.
type Loadout struct {
	SkinID   int64 `json:"skin_id"`
	StanceID int64 `json:"stance_id"`
}

// Competitor is the registry view of a fighter: ownership, retirement and
// lifetime counters live in the competitor registry, not in run records.
type Competitor struct {
	ID         int64     `json:"id" db:"id"`
	OwnerID    int64     `json:"owner_id" db:"owner_id"`
	Name       string    `json:"name" db:"name"`
	Retired    bool      `json:"retired" db:"retired"`
	Stats      StatBlock `json:"stats"`
	Appearance string    `json:"appearance" db:"appearance"`
	Wins       int       `json:"wins" db:"wins"`
	Losses     int       `json:"losses" db:"losses"`
	Kills      int       `json:"kills" db:"kills"`
	Experience int       `json:"experience" db:"experience"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// StandIn is a synthetic participant substituted for a competitor that
// became ineligible between selection and execution.
type StandIn struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Stats      StatBlock `json:"stats"`
	Appearance string    `json:"appearance"`
}

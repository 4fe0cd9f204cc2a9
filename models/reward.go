package models

// RewardWeightTotal is the fixed total the weights of a placement tier's
// reward policy must sum to (10,000 = 100.00%).
const RewardWeightTotal = 10000

// PlacementTier groups finishing positions for rating and reward lookup.
type PlacementTier string

const (
	TierChampion     PlacementTier = "champion"
	TierRunnerUp     PlacementTier = "runner_up"
	TierSemifinalist PlacementTier = "semifinalist"
)

// RewardCategory names a reward ticket category. CategoryNone is the valid
// "no reward" outcome.
type RewardCategory string

const (
	CategoryNone   RewardCategory = "none"
	CategoryGolden RewardCategory = "golden_ticket"
	CategorySilver RewardCategory = "silver_ticket"
	CategoryBronze RewardCategory = "bronze_ticket"
)

// RewardSlot is one (category, weight) pair of a placement tier's policy.
// A zero weight marks the end of the slot list.
type RewardSlot struct {
	Category RewardCategory `json:"category" db:"category"`
	Weight   int            `json:"weight" db:"weight"`
}

package models

// Event types broadcast over the websocket hub for operators and indexers.
const (
	EventQueueJoined         = "QUEUE_JOINED"
	EventQueueLeft           = "QUEUE_LEFT"
	EventRunCommitted        = "RUN_COMMITTED"
	EventRunSelected         = "RUN_SELECTED"
	EventRunStarted          = "RUN_STARTED"
	EventRunCompleted        = "RUN_COMPLETED"
	EventParticipantReplaced = "PARTICIPANT_REPLACED"
	EventRunRecovered        = "RUN_RECOVERED"
	EventRatingAwarded       = "RATING_AWARDED"
	EventRewardDistributed   = "REWARD_DISTRIBUTED"
	EventDuelResolved        = "DUEL_RESOLVED"
	EventDuelRecovered       = "DUEL_RECOVERED"
)

// Event is the envelope every hub broadcast uses.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

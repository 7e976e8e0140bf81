package types

const (
	// EventCreatedName is the name of the notification of a new event.
	EventCreatedName = "EventCreated"
	// VoteCastName is the name of the notification of an accepted vote.
	VoteCastName = "VoteCast"
	// EventDeactivatedName is the name of the notification of a closed event.
	EventDeactivatedName = "EventDeactivated"
)

// EventCreated is emitted when an event is created.
type EventCreated struct {
	ID    uint64 `json:"id"`
	Title string `json:"title"`
}

// VoteCast is emitted when a vote is accepted. The voter is the normalized
// address of the author.
type VoteCast struct {
	EventID   uint64 `json:"eventId"`
	Voter     string `json:"voter"`
	Candidate int    `json:"candidate"`
}

// EventDeactivated is emitted when an event is closed by the owner.
type EventDeactivated struct {
	ID uint64 `json:"id"`
}

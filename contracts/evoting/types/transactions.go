package types

// CandidateSpec is a candidate as provided when creating an event.
type CandidateSpec struct {
	Name string `json:"name"`
	Bio  string `json:"bio,omitempty"`
}

// CreateEventTransaction is the payload of the command that creates an event.
// A zero start time means the event starts at the execution time. The
// whitelist is only used when the event is secure.
type CreateEventTransaction struct {
	Title           string          `json:"title"`
	Candidates      []CandidateSpec `json:"candidates"`
	DurationMinutes uint64          `json:"durationMinutes"`
	StartTime       int64           `json:"startTime,omitempty"`
	IsSecure        bool            `json:"isSecure"`
	Whitelist       []string        `json:"whitelist,omitempty"`
}

// VoteTransaction is the payload of the command that casts a vote.
type VoteTransaction struct {
	EventID   uint64 `json:"eventId"`
	Candidate int    `json:"candidate"`
}

// DeactivateEventTransaction is the payload of the command that closes an
// event before its end time.
type DeactivateEventTransaction struct {
	EventID uint64 `json:"eventId"`
}

package types

// CountResponse is the response of the number of events.
type CountResponse struct {
	Count uint64 `json:"count"`
}

// VoterResponse is the response of the status of a voter in an event.
type VoterResponse struct {
	EventID     uint64 `json:"eventId"`
	Voter       string `json:"voter"`
	HasVoted    bool   `json:"hasVoted"`
	Whitelisted bool   `json:"whitelisted"`
}

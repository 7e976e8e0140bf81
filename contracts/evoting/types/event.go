// Package types defines the records, the transaction payloads and the
// notifications of the evoting contract.
package types

import (
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// Status is the phase of an event. It is derived from the time and the active
// flag, and never stored.
type Status int

const (
	// NotStarted is the phase before the start time.
	NotStarted Status = iota
	// Active is the phase when votes are accepted.
	Active
	// Ended is the phase after the end time or after a deactivation.
	Ended
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Active:
		return "Active"
	case Ended:
		return "Ended"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for _, status := range []Status{NotStarted, Active, Ended} {
		if status.String() == string(text) {
			*s = status
			return nil
		}
	}

	return xerrors.Errorf("unknown status '%s'", text)
}

// Candidate is an option of an event with its current tally.
type Candidate struct {
	Name      string `json:"name"`
	Bio       string `json:"bio,omitempty"`
	VoteCount uint64 `json:"voteCount"`
}

// Event is an election with a fixed list of candidates and a time window. The
// time bounds are unix timestamps in seconds.
type Event struct {
	ID         uint64      `json:"id"`
	Title      string      `json:"title"`
	Candidates []Candidate `json:"candidates"`
	StartTime  int64       `json:"startTime"`
	EndTime    int64       `json:"endTime"`
	Active     bool        `json:"active"`
	IsSecure   bool        `json:"isSecure"`
}

// StatusAt returns the phase of the event at the given time. Both bounds are
// inclusive.
func (e Event) StatusAt(now time.Time) Status {
	if !e.Active {
		return Ended
	}

	ts := now.Unix()

	switch {
	case ts < e.StartTime:
		return NotStarted
	case ts > e.EndTime:
		return Ended
	default:
		return Active
	}
}

// TotalVotes returns the sum of the tallies of the candidates.
func (e Event) TotalVotes() uint64 {
	total := uint64(0)
	for _, c := range e.Candidates {
		total += c.VoteCount
	}

	return total
}

// EventView is the representation of an event for the clients, with the phase
// evaluated at a given time.
type EventView struct {
	Event

	Status Status `json:"status"`
}

// NewEventView returns the view of the event at the given time.
func NewEventView(e Event, now time.Time) EventView {
	return EventView{Event: e, Status: e.StatusAt(now)}
}

// ParseCandidate parses a candidate in the "name[:bio]" format.
func ParseCandidate(text string) CandidateSpec {
	parts := strings.SplitN(text, ":", 2)

	candidate := CandidateSpec{Name: strings.TrimSpace(parts[0])}
	if len(parts) == 2 {
		candidate.Bio = strings.TrimSpace(parts[1])
	}

	return candidate
}

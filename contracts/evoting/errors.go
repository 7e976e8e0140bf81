package evoting

import (
	"fmt"

	"golang.org/x/xerrors"
)

// ErrorKind is the stable category of a rejection of the contract.
type ErrorKind string

const (
	// Unauthorized is returned when a non-owner uses an owner command.
	Unauthorized ErrorKind = "Unauthorized"
	// InvalidInput is returned when the arguments of a command are malformed.
	InvalidInput ErrorKind = "InvalidInput"
	// EventNotFound is returned when the event does not exist.
	EventNotFound ErrorKind = "EventNotFound"
	// VotingNotOpen is returned when the event is not in the active phase.
	VotingNotOpen ErrorKind = "VotingNotOpen"
	// NotWhitelisted is returned when the voter is not in the whitelist of a
	// secure event.
	NotWhitelisted ErrorKind = "NotWhitelisted"
	// InvalidCandidate is returned when the candidate index is out of range.
	InvalidCandidate ErrorKind = "InvalidCandidate"
	// AlreadyVoted is returned when the voter has already voted in the event.
	AlreadyVoted ErrorKind = "AlreadyVoted"
)

// Details of a VotingNotOpen error.
const (
	DetailNotStarted  = "not started"
	DetailEnded       = "ended"
	DetailDeactivated = "deactivated"
)

var (
	// ErrUnauthorized matches any error of kind Unauthorized.
	ErrUnauthorized = Error{Kind: Unauthorized}
	// ErrInvalidInput matches any error of kind InvalidInput.
	ErrInvalidInput = Error{Kind: InvalidInput}
	// ErrEventNotFound matches any error of kind EventNotFound.
	ErrEventNotFound = Error{Kind: EventNotFound}
	// ErrVotingNotOpen matches any error of kind VotingNotOpen.
	ErrVotingNotOpen = Error{Kind: VotingNotOpen}
	// ErrNotWhitelisted matches any error of kind NotWhitelisted.
	ErrNotWhitelisted = Error{Kind: NotWhitelisted}
	// ErrInvalidCandidate matches any error of kind InvalidCandidate.
	ErrInvalidCandidate = Error{Kind: InvalidCandidate}
	// ErrAlreadyVoted matches any error of kind AlreadyVoted.
	ErrAlreadyVoted = Error{Kind: AlreadyVoted}
)

// Error is a rejection of the contract. Two errors are the same when they have
// the same kind, whatever the detail.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func newError(kind ErrorKind, format string, args ...interface{}) Error {
	return Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Error implements error.
func (e Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}

	return string(e.Kind) + ": " + e.Detail
}

// Is returns true when the target is an error of the same kind.
func (e Error) Is(target error) bool {
	other, ok := target.(Error)
	if !ok {
		return false
	}

	return other.Kind == e.Kind
}

// KindOf returns the kind of the contract error in the chain, or an empty kind
// if there is none.
func KindOf(err error) ErrorKind {
	var e Error
	if xerrors.As(err, &e) {
		return e.Kind
	}

	return ""
}

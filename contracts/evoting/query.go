package evoting

import (
	"go.ezyvote.org/ezyvote/contracts/evoting/types"
	"go.ezyvote.org/ezyvote/core/access/wallet"
	"go.ezyvote.org/ezyvote/core/store"
	"go.ezyvote.org/ezyvote/core/store/prefixed"
)

// The queries read the state of the contract and never write to it. The
// addresses are normalized before the lookup, and a malformed address is an
// InvalidInput error.

// GetEvent returns the event with its current tally, or an EventNotFound
// error.
func GetEvent(r store.Readable, id uint64) (types.Event, error) {
	return newReadState(r).event(id)
}

// EventCount returns the number of events in the registry.
func EventCount(r store.Readable) (uint64, error) {
	return newReadState(r).count()
}

// HasVoted returns true if the address has voted in the event. An unknown
// event has no voter.
func HasVoted(r store.Readable, addr string, id uint64) (bool, error) {
	voter, err := normalize(addr)
	if err != nil {
		return false, err
	}

	return newReadState(r).hasVoted(id, voter)
}

// IsWhitelisted returns true if the address can vote in the event, which is
// always the case for an event that is not secure. It returns an EventNotFound
// error for an unknown event.
func IsWhitelisted(r store.Readable, id uint64, addr string) (bool, error) {
	voter, err := normalize(addr)
	if err != nil {
		return false, err
	}

	s := newReadState(r)

	event, err := s.event(id)
	if err != nil {
		return false, err
	}

	if !event.IsSecure {
		return true, nil
	}

	return s.isWhitelisted(id, voter)
}

func newReadState(r store.Readable) readState {
	return readState{prefixed.NewReadable(ContractUID, r)}
}

func normalize(addr string) (string, error) {
	text, err := wallet.Normalize(addr)
	if err != nil {
		return "", newError(InvalidInput, "%v", err)
	}

	return text, nil
}

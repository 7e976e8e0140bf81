package evoting

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"go.ezyvote.org/ezyvote/contracts/evoting/types"
	"go.ezyvote.org/ezyvote/core/access/wallet"
	"go.ezyvote.org/ezyvote/core/store"
	"golang.org/x/xerrors"
)

// Layout of the keys in the namespace of the contract:
//
//	count                     number of events, big-endian uint64
//	event:<id>                JSON encoded types.Event
//	whitelist:<id>:<address>  present when the address can vote in a secure event
//	voted:<id>:<address>      present when the address has voted
var countKey = []byte("count")

var marker = []byte{1}

func eventKey(id uint64) []byte {
	return []byte(fmt.Sprintf("event:%d", id))
}

func whitelistKey(id uint64, addr string) []byte {
	return []byte(fmt.Sprintf("whitelist:%d:%s", id, addr))
}

func votedKey(id uint64, voter string) []byte {
	return []byte(fmt.Sprintf("voted:%d:%s", id, voter))
}

// readState reads the registry and the ledger of the voters from the state of
// the contract.
type readState struct {
	store.Readable
}

// state extends readState with the writes of the commands.
type state struct {
	readState
	w store.Writable
}

func newState(snap store.Snapshot) state {
	return state{readState: readState{snap}, w: snap}
}

func (s readState) count() (uint64, error) {
	value, err := s.Get(countKey)
	if err != nil {
		return 0, xerrors.Errorf("failed to read count: %v", err)
	}

	if len(value) != 8 {
		return 0, nil
	}

	return binary.BigEndian.Uint64(value), nil
}

func (s readState) event(id uint64) (types.Event, error) {
	value, err := s.Get(eventKey(id))
	if err != nil {
		return types.Event{}, xerrors.Errorf("failed to read event: %v", err)
	}

	if value == nil {
		return types.Event{}, newError(EventNotFound, "event %d", id)
	}

	var event types.Event

	err = json.Unmarshal(value, &event)
	if err != nil {
		return types.Event{}, xerrors.Errorf("failed to unmarshal event: %v", err)
	}

	return event, nil
}

func (s readState) isWhitelisted(id uint64, addr string) (bool, error) {
	value, err := s.Get(whitelistKey(id, addr))
	if err != nil {
		return false, xerrors.Errorf("failed to read whitelist: %v", err)
	}

	return value != nil, nil
}

func (s readState) hasVoted(id uint64, voter string) (bool, error) {
	value, err := s.Get(votedKey(id, voter))
	if err != nil {
		return false, xerrors.Errorf("failed to read ledger: %v", err)
	}

	return value != nil, nil
}

func (s state) setCount(count uint64) error {
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, count)

	err := s.w.Set(countKey, value)
	if err != nil {
		return xerrors.Errorf("failed to store count: %v", err)
	}

	return nil
}

func (s state) setEvent(event types.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return xerrors.Errorf("failed to marshal event: %v", err)
	}

	err = s.w.Set(eventKey(event.ID), value)
	if err != nil {
		return xerrors.Errorf("failed to store event: %v", err)
	}

	return nil
}

func (s state) setWhitelisted(id uint64, addr string) error {
	err := s.w.Set(whitelistKey(id, addr), marker)
	if err != nil {
		return xerrors.Errorf("failed to store whitelist: %v", err)
	}

	return nil
}

func (s state) setVoted(id uint64, voter string) error {
	err := s.w.Set(votedKey(id, voter), marker)
	if err != nil {
		return xerrors.Errorf("failed to store vote: %v", err)
	}

	return nil
}

// normalizeWhitelist returns the sorted set of the normalized addresses. It
// returns an InvalidInput error if the list is empty or if an address is
// malformed.
func normalizeWhitelist(list []string) ([]string, error) {
	if len(list) == 0 {
		return nil, newError(InvalidInput, "whitelist of a secure event is empty")
	}

	set := make(map[string]struct{}, len(list))

	for _, text := range list {
		addr, err := wallet.Normalize(text)
		if err != nil {
			return nil, newError(InvalidInput, "whitelist: %v", err)
		}

		set[addr] = struct{}{}
	}

	addrs := make([]string, 0, len(set))
	for addr := range set {
		addrs = append(addrs, addr)
	}

	sort.Strings(addrs)

	return addrs, nil
}

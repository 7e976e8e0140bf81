// Package evoting implements the native contract of the EzyVote ledger.
//
// The contract holds the registry of the events, the tally of their candidates
// and the ledger of the voters. The owner of the ledger creates the events and
// can close them early, while any wallet can vote once per event during its
// time window, as long as it is in the whitelist of a secure event.
//
// Every command runs inside a transaction of the ordering service: a rejected
// command returns a contract Error and leaves no trace in the state.
package evoting

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
	"go.ezyvote.org/ezyvote"
	"go.ezyvote.org/ezyvote/contracts/evoting/types"
	"go.ezyvote.org/ezyvote/core/access"
	"go.ezyvote.org/ezyvote/core/execution"
	"go.ezyvote.org/ezyvote/core/execution/native"
	"go.ezyvote.org/ezyvote/core/store"
	"go.ezyvote.org/ezyvote/core/store/prefixed"
	"golang.org/x/xerrors"
)

// commands defines the commands of the evoting contract. This interface helps
// in testing the contract.
type commands interface {
	createEvent(snap store.Snapshot, step execution.Step) error
	vote(snap store.Snapshot, step execution.Step) error
	deactivateEvent(snap store.Snapshot, step execution.Step) error
}

const (
	// ContractName is the name of the contract.
	ContractName = "evoting"

	// ContractUID is the namespace of the contract in the state.
	ContractUID = "EVOT"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "evoting:command"

	// CreateEventArg is the argument's name of the JSON encoded
	// types.CreateEventTransaction.
	CreateEventArg = "evoting:createEvent"

	// VoteArg is the argument's name of the JSON encoded types.VoteTransaction.
	VoteArg = "evoting:vote"

	// DeactivateEventArg is the argument's name of the JSON encoded
	// types.DeactivateEventTransaction.
	DeactivateEventArg = "evoting:deactivateEvent"

	// credentialAdminCommand is the credential command that the owner
	// commands require.
	credentialAdminCommand = "admin"

	// maxDurationMinutes bounds the duration so that the end time does not
	// overflow.
	maxDurationMinutes = 1 << 32
)

// Command defines a type of command for the evoting contract.
type Command string

const (
	// CmdCreateEvent defines the command to create an event.
	CmdCreateEvent Command = "CREATE_EVENT"

	// CmdVote defines the command to cast a vote.
	CmdVote Command = "VOTE"

	// CmdDeactivateEvent defines the command to close an event early.
	CmdDeactivateEvent Command = "DEACTIVATE_EVENT"
)

// NewCreds creates the credential of the owner commands.
func NewCreds(id []byte) access.Credential {
	return access.NewContractCreds(id, ContractName, credentialAdminCommand)
}

// RegisterContract registers the contract to the given execution service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the voting contract.
//
// - implements native.Contract
type Contract struct {
	// access is the access control service that knows the owner.
	access access.Service

	// accessKey is the identifier of the permission of the owner.
	accessKey []byte

	logger zerolog.Logger

	// cmd provides the commands that can be executed by this contract.
	cmd commands
}

// NewContract creates a new evoting contract. The access key identifies the
// permission that lists the owner in the access service.
func NewContract(aKey []byte, srvc access.Service) Contract {
	contract := Contract{
		access:    srvc,
		accessKey: aKey,
		logger:    ezyvote.Logger.With().Str("contract", ContractName).Logger(),
	}

	contract.cmd = evotingCommand{Contract: &contract}

	return contract
}

// UID implements native.Contract.
func (c Contract) UID() string {
	return ContractUID
}

// GrantOwner grants the owner commands to the identity. It is meant to run in
// the genesis of the ledger.
func (c Contract) GrantOwner(snap store.Snapshot, owner access.Identity) error {
	err := c.access.Grant(snap, NewCreds(c.accessKey), owner)
	if err != nil {
		return xerrors.Errorf("failed to grant owner: %v", err)
	}

	return nil
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return newError(InvalidInput, "'%s' not found in tx arg", CmdArg)
	}

	var err error

	switch Command(cmd) {
	case CmdCreateEvent:
		err = c.cmd.createEvent(snap, step)
	case CmdVote:
		err = c.cmd.vote(snap, step)
	case CmdDeactivateEvent:
		err = c.cmd.deactivateEvent(snap, step)
	default:
		return newError(InvalidInput, "unknown command: %s", cmd)
	}

	if err != nil {
		kind := KindOf(err)
		if kind != "" {
			promRejections.WithLabelValues(string(kind)).Inc()
		}

		return xerrors.Errorf("failed to %s: %w", cmd, err)
	}

	return nil
}

// checkOwner returns an Unauthorized error if the author of the transaction is
// not the owner.
func (c Contract) checkOwner(snap store.Readable, step execution.Step) error {
	ident := step.Current.GetIdentity()

	err := c.access.Match(snap, NewCreds(c.accessKey), ident)
	if err != nil {
		return newError(Unauthorized, "identity %v: %v", ident, err)
	}

	return nil
}

// evotingCommand implements the commands of the evoting contract.
//
// - implements commands
type evotingCommand struct {
	*Contract
}

// createEvent implements commands. It performs the CREATE_EVENT command.
func (e evotingCommand) createEvent(snap store.Snapshot, step execution.Step) error {
	err := e.checkOwner(snap, step)
	if err != nil {
		return err
	}

	var tx types.CreateEventTransaction

	err = decodeArg(step, CreateEventArg, &tx)
	if err != nil {
		return err
	}

	now := step.Time.Unix()

	event, whitelist, err := newEvent(tx, now)
	if err != nil {
		return err
	}

	state := newState(prefixed.NewSnapshot(ContractUID, snap))

	count, err := state.count()
	if err != nil {
		return err
	}

	event.ID = count + 1

	err = state.setEvent(event)
	if err != nil {
		return err
	}

	for _, addr := range whitelist {
		err = state.setWhitelisted(event.ID, addr)
		if err != nil {
			return err
		}
	}

	err = state.setCount(event.ID)
	if err != nil {
		return err
	}

	step.Emit(ContractName, types.EventCreatedName, types.EventCreated{
		ID:    event.ID,
		Title: event.Title,
	})

	promEvents.Inc()

	e.logger.Info().
		Uint64("event", event.ID).
		Str("title", event.Title).
		Int("candidates", len(event.Candidates)).
		Bool("secure", event.IsSecure).
		Msg("event created")

	return nil
}

// vote implements commands. It performs the VOTE command. The preconditions
// are checked in order and the first failure rejects the vote.
func (e evotingCommand) vote(snap store.Snapshot, step execution.Step) error {
	var tx types.VoteTransaction

	err := decodeArg(step, VoteArg, &tx)
	if err != nil {
		return err
	}

	voter, err := identityText(step.Current.GetIdentity())
	if err != nil {
		return err
	}

	state := newState(prefixed.NewSnapshot(ContractUID, snap))

	event, err := state.event(tx.EventID)
	if err != nil {
		return err
	}

	err = checkOpen(event, step)
	if err != nil {
		return err
	}

	if event.IsSecure {
		listed, err := state.isWhitelisted(event.ID, voter)
		if err != nil {
			return err
		}

		if !listed {
			return newError(NotWhitelisted, "%s in event %d", voter, event.ID)
		}
	}

	if tx.Candidate < 0 || tx.Candidate >= len(event.Candidates) {
		return newError(InvalidCandidate, "index %d out of [0, %d)",
			tx.Candidate, len(event.Candidates))
	}

	voted, err := state.hasVoted(event.ID, voter)
	if err != nil {
		return err
	}

	if voted {
		return newError(AlreadyVoted, "%s in event %d", voter, event.ID)
	}

	event.Candidates[tx.Candidate].VoteCount++

	err = state.setEvent(event)
	if err != nil {
		return err
	}

	err = state.setVoted(event.ID, voter)
	if err != nil {
		return err
	}

	step.Emit(ContractName, types.VoteCastName, types.VoteCast{
		EventID:   event.ID,
		Voter:     voter,
		Candidate: tx.Candidate,
	})

	promVotes.Inc()

	e.logger.Info().
		Uint64("event", event.ID).
		Str("voter", voter).
		Int("candidate", tx.Candidate).
		Msg("vote cast")

	return nil
}

// deactivateEvent implements commands. It performs the DEACTIVATE_EVENT
// command.
func (e evotingCommand) deactivateEvent(snap store.Snapshot, step execution.Step) error {
	err := e.checkOwner(snap, step)
	if err != nil {
		return err
	}

	var tx types.DeactivateEventTransaction

	err = decodeArg(step, DeactivateEventArg, &tx)
	if err != nil {
		return err
	}

	state := newState(prefixed.NewSnapshot(ContractUID, snap))

	event, err := state.event(tx.EventID)
	if err != nil {
		return err
	}

	if !event.Active {
		return newError(VotingNotOpen, "event %d %s", event.ID, DetailDeactivated)
	}

	event.Active = false

	err = state.setEvent(event)
	if err != nil {
		return err
	}

	step.Emit(ContractName, types.EventDeactivatedName, types.EventDeactivated{ID: event.ID})

	e.logger.Info().Uint64("event", event.ID).Msg("event deactivated")

	return nil
}

// newEvent validates the payload and returns the event, without its
// identifier, and the normalized whitelist.
func newEvent(tx types.CreateEventTransaction, now int64) (types.Event, []string, error) {
	title := strings.TrimSpace(tx.Title)
	if title == "" {
		return types.Event{}, nil, newError(InvalidInput, "title is empty")
	}

	if len(tx.Candidates) < 2 {
		return types.Event{}, nil, newError(InvalidInput,
			"at least 2 candidates required, got %d", len(tx.Candidates))
	}

	candidates := make([]types.Candidate, len(tx.Candidates))
	for i, spec := range tx.Candidates {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return types.Event{}, nil, newError(InvalidInput, "candidate %d has no name", i)
		}

		candidates[i] = types.Candidate{Name: name, Bio: strings.TrimSpace(spec.Bio)}
	}

	if tx.DurationMinutes == 0 || tx.DurationMinutes > maxDurationMinutes {
		return types.Event{}, nil, newError(InvalidInput,
			"invalid duration: %d minutes", tx.DurationMinutes)
	}

	start := tx.StartTime
	if start == 0 {
		start = now
	}

	if start < now {
		return types.Event{}, nil, newError(InvalidInput,
			"start time %d is in the past", start)
	}

	var whitelist []string

	if tx.IsSecure {
		var err error

		whitelist, err = normalizeWhitelist(tx.Whitelist)
		if err != nil {
			return types.Event{}, nil, err
		}
	}

	event := types.Event{
		Title:      title,
		Candidates: candidates,
		StartTime:  start,
		EndTime:    start + int64(tx.DurationMinutes)*60,
		Active:     true,
		IsSecure:   tx.IsSecure,
	}

	return event, whitelist, nil
}

// checkOpen returns a VotingNotOpen error if the event is not active at the
// time of the step.
func checkOpen(event types.Event, step execution.Step) error {
	switch event.StatusAt(step.Time) {
	case types.Active:
		return nil
	case types.NotStarted:
		return newError(VotingNotOpen, "event %d %s", event.ID, DetailNotStarted)
	default:
		if !event.Active {
			return newError(VotingNotOpen, "event %d %s", event.ID, DetailDeactivated)
		}

		return newError(VotingNotOpen, "event %d %s", event.ID, DetailEnded)
	}
}

func decodeArg(step execution.Step, key string, v interface{}) error {
	arg := step.Current.GetArg(key)
	if len(arg) == 0 {
		return newError(InvalidInput, "'%s' not found in tx arg", key)
	}

	err := json.Unmarshal(arg, v)
	if err != nil {
		return newError(InvalidInput, "failed to decode '%s': %v", key, err)
	}

	return nil
}

// identityText returns the normalized text form of the identity.
func identityText(ident access.Identity) (string, error) {
	if ident == nil {
		return "", newError(InvalidInput, "identity is missing")
	}

	text, err := ident.MarshalText()
	if err != nil {
		return "", newError(InvalidInput, "invalid identity: %v", err)
	}

	return strings.ToLower(string(text)), nil
}

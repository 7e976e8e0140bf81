package evoting

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.ezyvote.org/ezyvote/contracts/evoting/types"
	"go.ezyvote.org/ezyvote/core/access"
	"go.ezyvote.org/ezyvote/core/access/darc"
	"go.ezyvote.org/ezyvote/core/access/wallet"
	"go.ezyvote.org/ezyvote/core/execution"
	"go.ezyvote.org/ezyvote/core/execution/native"
	"go.ezyvote.org/ezyvote/core/store"
	"go.ezyvote.org/ezyvote/internal/testing/fake"
	"golang.org/x/xerrors"
)

var (
	testTime = time.Unix(1700000000, 0)
	testKey  = []byte(ContractUID)
)

func TestRegisterContract(t *testing.T) {
	exec := native.NewExecution()
	RegisterContract(exec, NewContract(testKey, darc.NewService()))

	require.Equal(t, []string{ContractName}, exec.Names())
	require.Equal(t, ContractUID, NewContract(testKey, darc.NewService()).UID())
}

func TestContract_GrantOwner(t *testing.T) {
	srvc := fake.NewAccessService()
	contract := NewContract(testKey, srvc)

	owner := newAddress(t)

	err := contract.GrantOwner(fake.NewSnapshot(), owner)
	require.NoError(t, err)
	require.Equal(t, 1, srvc.Grants.Len())
	require.Equal(t, NewCreds(testKey), srvc.Grants.Get(0, 0))

	contract = NewContract(testKey, fake.NewBadAccessService())
	err = contract.GrantOwner(fake.NewSnapshot(), owner)
	require.EqualError(t, err, fake.Err("failed to grant owner"))
}

func TestContract_Execute(t *testing.T) {
	contract := NewContract(testKey, fake.NewAccessService())
	contract.cmd = fakeCmd{}

	ident := newAddress(t)

	err := contract.Execute(fake.NewSnapshot(), makeStep(t, ident))
	require.EqualError(t, err, "InvalidInput: 'evoting:command' not found in tx arg")
	require.True(t, xerrors.Is(err, ErrInvalidInput))

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, ident, CmdArg, "fake"))
	require.EqualError(t, err, "InvalidInput: unknown command: fake")

	for _, cmd := range []Command{CmdCreateEvent, CmdVote, CmdDeactivateEvent} {
		err = contract.Execute(fake.NewSnapshot(), makeStep(t, ident, CmdArg, string(cmd)))
		require.NoError(t, err)
	}

	contract.cmd = fakeCmd{err: newError(AlreadyVoted, "fake")}

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, ident, CmdArg, string(CmdVote)))
	require.EqualError(t, err, "failed to VOTE: AlreadyVoted: fake")
	require.True(t, xerrors.Is(err, ErrAlreadyVoted))
	require.Equal(t, AlreadyVoted, KindOf(err))

	contract.cmd = fakeCmd{err: fake.GetError()}

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, ident, CmdArg, string(CmdCreateEvent)))
	require.EqualError(t, err, fake.Err("failed to CREATE_EVENT"))
	require.Equal(t, ErrorKind(""), KindOf(err))
}

func TestCommand_CreateEvent(t *testing.T) {
	snap := fake.NewSnapshot()
	owner := newAddress(t)
	voter := newAddress(t)

	contract := newDarcContract(t, snap, owner)

	log := &execution.EventLog{}
	step := createStep(t, owner, types.CreateEventTransaction{
		Title:           " Election A ",
		Candidates:      []types.CandidateSpec{{Name: "Alice", Bio: "bio"}, {Name: "Bob"}},
		DurationMinutes: 60,
		IsSecure:        true,
		Whitelist:       []string{voter.String(), upper(voter.String())},
	})
	step.Log = log

	err := contract.Execute(snap, step)
	require.NoError(t, err)

	count, err := EventCount(snap)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)

	event, err := GetEvent(snap, 1)
	require.NoError(t, err)
	require.Equal(t, types.Event{
		ID:    1,
		Title: "Election A",
		Candidates: []types.Candidate{
			{Name: "Alice", Bio: "bio"},
			{Name: "Bob"},
		},
		StartTime: testTime.Unix(),
		EndTime:   testTime.Unix() + 3600,
		Active:    true,
		IsSecure:  true,
	}, event)

	listed, err := IsWhitelisted(snap, 1, upper(voter.String()))
	require.NoError(t, err)
	require.True(t, listed)

	listed, err = IsWhitelisted(snap, 1, owner.String())
	require.NoError(t, err)
	require.False(t, listed)

	require.Equal(t, []execution.Event{{
		Contract: ContractName,
		Name:     types.EventCreatedName,
		Value:    types.EventCreated{ID: 1, Title: "Election A"},
	}}, log.Events())

	// The identifiers are sequential.
	err = contract.Execute(snap, createStep(t, owner, types.CreateEventTransaction{
		Title:           "Election B",
		Candidates:      []types.CandidateSpec{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		DurationMinutes: 1,
		StartTime:       testTime.Unix() + 100,
		Whitelist:       []string{"ignored"},
	}))
	require.NoError(t, err)

	event, err = GetEvent(snap, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), event.ID)
	require.Equal(t, testTime.Unix()+100, event.StartTime)
	require.Equal(t, testTime.Unix()+160, event.EndTime)
	require.Equal(t, types.NotStarted, event.StatusAt(testTime))

	listed, err = IsWhitelisted(snap, 2, owner.String())
	require.NoError(t, err)
	require.True(t, listed)
}

func TestCommand_CreateEvent_Unauthorized(t *testing.T) {
	snap := fake.NewSnapshot()
	owner := newAddress(t)
	other := newAddress(t)

	contract := newDarcContract(t, snap, owner)

	err := contract.Execute(snap, createStep(t, other, validCreate()))
	require.Error(t, err)
	require.Equal(t, Unauthorized, KindOf(err))

	count, err := EventCount(snap)
	require.NoError(t, err)
	require.Equal(t, uint64(0), count)

	// A ledger without owner refuses every owner command.
	empty := fake.NewSnapshot()
	err = NewContract(testKey, darc.NewService()).Execute(empty, createStep(t, owner, validCreate()))
	require.Equal(t, Unauthorized, KindOf(err))
}

func TestCommand_CreateEvent_InvalidInput(t *testing.T) {
	owner := newAddress(t)

	invalid := map[string]func(tx *types.CreateEventTransaction){
		"empty title":      func(tx *types.CreateEventTransaction) { tx.Title = "  " },
		"one candidate":    func(tx *types.CreateEventTransaction) { tx.Candidates = tx.Candidates[:1] },
		"no candidate":     func(tx *types.CreateEventTransaction) { tx.Candidates = nil },
		"unnamed":          func(tx *types.CreateEventTransaction) { tx.Candidates[1].Name = "" },
		"zero duration":    func(tx *types.CreateEventTransaction) { tx.DurationMinutes = 0 },
		"huge duration":    func(tx *types.CreateEventTransaction) { tx.DurationMinutes = maxDurationMinutes + 1 },
		"past start":       func(tx *types.CreateEventTransaction) { tx.StartTime = testTime.Unix() - 1 },
		"secure and empty": func(tx *types.CreateEventTransaction) { tx.IsSecure = true },
		"malformed address": func(tx *types.CreateEventTransaction) {
			tx.IsSecure = true
			tx.Whitelist = []string{"0xAAA"}
		},
	}

	for name, fn := range invalid {
		t.Run(name, func(t *testing.T) {
			snap := fake.NewSnapshot()
			contract := newDarcContract(t, snap, owner)

			tx := validCreate()
			fn(&tx)

			err := contract.Execute(snap, createStep(t, owner, tx))
			require.Error(t, err)
			require.True(t, xerrors.Is(err, ErrInvalidInput), err.Error())

			count, err := EventCount(snap)
			require.NoError(t, err)
			require.Equal(t, uint64(0), count)
		})
	}

	snap := fake.NewSnapshot()
	contract := newDarcContract(t, snap, owner)

	err := contract.Execute(snap, makeStep(t, owner, CmdArg, string(CmdCreateEvent)))
	require.EqualError(t, err,
		"failed to CREATE_EVENT: InvalidInput: 'evoting:createEvent' not found in tx arg")

	err = contract.Execute(snap, makeStep(t, owner, CmdArg, string(CmdCreateEvent),
		CreateEventArg, "{"))
	require.Equal(t, InvalidInput, KindOf(err))
}

func TestCommand_CreateEvent_StoreFailures(t *testing.T) {
	owner := newAddress(t)

	snap := fake.NewSnapshot()
	contract := NewContract(testKey, fake.NewAccessService())

	snap.ErrRead = fake.GetError()

	err := contract.Execute(snap, createStep(t, owner, validCreate()))
	require.EqualError(t, err, fake.Err("failed to CREATE_EVENT: failed to read count"))

	snap = fake.NewSnapshot()
	snap.ErrWrite = fake.GetError()

	err = contract.Execute(snap, createStep(t, owner, validCreate()))
	require.EqualError(t, err, fake.Err("failed to CREATE_EVENT: failed to store event"))
}

func TestCommand_Vote(t *testing.T) {
	snap := fake.NewSnapshot()
	owner := newAddress(t)
	voter := newAddress(t)

	contract := newDarcContract(t, snap, owner)

	err := contract.Execute(snap, createStep(t, owner, validCreate()))
	require.NoError(t, err)

	log := &execution.EventLog{}
	step := voteStep(t, voter, 1, 1, testTime.Add(time.Minute))
	step.Log = log

	err = contract.Execute(snap, step)
	require.NoError(t, err)

	event, err := GetEvent(snap, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(0), event.Candidates[0].VoteCount)
	require.Equal(t, uint64(1), event.Candidates[1].VoteCount)

	voted, err := HasVoted(snap, upper(voter.String()), 1)
	require.NoError(t, err)
	require.True(t, voted)

	voted, err = HasVoted(snap, owner.String(), 1)
	require.NoError(t, err)
	require.False(t, voted)

	require.Equal(t, []execution.Event{{
		Contract: ContractName,
		Name:     types.VoteCastName,
		Value:    types.VoteCast{EventID: 1, Voter: voter.String(), Candidate: 1},
	}}, log.Events())

	err = contract.Execute(snap, voteStep(t, voter, 1, 0, testTime.Add(time.Minute)))
	require.True(t, xerrors.Is(err, ErrAlreadyVoted))

	event, err = GetEvent(snap, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), event.TotalVotes())
}

func TestCommand_Vote_Preconditions(t *testing.T) {
	snap := fake.NewSnapshot()
	owner := newAddress(t)
	listed := newAddress(t)
	other := newAddress(t)

	contract := newDarcContract(t, snap, owner)

	secure := validCreate()
	secure.IsSecure = true
	secure.Whitelist = []string{listed.String()}

	err := contract.Execute(snap, createStep(t, owner, secure))
	require.NoError(t, err)

	start := testTime
	end := testTime.Add(time.Hour)

	err = contract.Execute(snap, voteStep(t, listed, 2, 0, start))
	require.EqualError(t, err, "failed to VOTE: EventNotFound: event 2")

	// Time-gating wins over the other preconditions.
	err = contract.Execute(snap, voteStep(t, other, 1, 5, start.Add(-time.Second)))
	require.EqualError(t, err, "failed to VOTE: VotingNotOpen: event 1 not started")

	err = contract.Execute(snap, voteStep(t, other, 1, 5, end.Add(time.Second)))
	require.EqualError(t, err, "failed to VOTE: VotingNotOpen: event 1 ended")

	err = contract.Execute(snap, voteStep(t, other, 1, 5, start))
	require.Equal(t, NotWhitelisted, KindOf(err))

	err = contract.Execute(snap, voteStep(t, listed, 1, 2, start))
	require.EqualError(t, err, "failed to VOTE: InvalidCandidate: index 2 out of [0, 2)")

	err = contract.Execute(snap, voteStep(t, listed, 1, -1, start))
	require.Equal(t, InvalidCandidate, KindOf(err))

	// Both bounds of the window are inclusive.
	err = contract.Execute(snap, voteStep(t, listed, 1, 0, end))
	require.NoError(t, err)

	err = contract.Execute(snap, voteStep(t, listed, 1, 0, start))
	require.Equal(t, AlreadyVoted, KindOf(err))

	err = contract.Execute(snap, makeStep(t, listed, CmdArg, string(CmdVote)))
	require.Equal(t, InvalidInput, KindOf(err))

	step := voteStep(t, listed, 1, 0, start)
	step.Current = fake.NewTransaction(nil, CmdArg, string(CmdVote), VoteArg, `{"eventId":1}`)

	err = contract.Execute(snap, step)
	require.EqualError(t, err, "failed to VOTE: InvalidInput: identity is missing")
}

func TestCommand_DeactivateEvent(t *testing.T) {
	snap := fake.NewSnapshot()
	owner := newAddress(t)
	voter := newAddress(t)

	contract := newDarcContract(t, snap, owner)

	err := contract.Execute(snap, createStep(t, owner, validCreate()))
	require.NoError(t, err)

	err = contract.Execute(snap, deactivateStep(t, voter, 1))
	require.Equal(t, Unauthorized, KindOf(err))

	err = contract.Execute(snap, deactivateStep(t, owner, 3))
	require.Equal(t, EventNotFound, KindOf(err))

	log := &execution.EventLog{}
	step := deactivateStep(t, owner, 1)
	step.Log = log

	err = contract.Execute(snap, step)
	require.NoError(t, err)

	require.Equal(t, []execution.Event{{
		Contract: ContractName,
		Name:     types.EventDeactivatedName,
		Value:    types.EventDeactivated{ID: 1},
	}}, log.Events())

	event, err := GetEvent(snap, 1)
	require.NoError(t, err)
	require.False(t, event.Active)
	require.Equal(t, types.Ended, event.StatusAt(testTime))

	err = contract.Execute(snap, voteStep(t, voter, 1, 0, testTime))
	require.EqualError(t, err, "failed to VOTE: VotingNotOpen: event 1 deactivated")

	err = contract.Execute(snap, deactivateStep(t, owner, 1))
	require.EqualError(t, err, "failed to DEACTIVATE_EVENT: VotingNotOpen: event 1 deactivated")
}

func TestQueries(t *testing.T) {
	snap := fake.NewSnapshot()
	addr := newAddress(t)

	_, err := GetEvent(snap, 1)
	require.True(t, xerrors.Is(err, ErrEventNotFound))

	count, err := EventCount(snap)
	require.NoError(t, err)
	require.Equal(t, uint64(0), count)

	voted, err := HasVoted(snap, addr.String(), 1)
	require.NoError(t, err)
	require.False(t, voted)

	_, err = HasVoted(snap, "0xAAA", 1)
	require.Equal(t, InvalidInput, KindOf(err))

	_, err = IsWhitelisted(snap, 1, addr.String())
	require.Equal(t, EventNotFound, KindOf(err))

	_, err = IsWhitelisted(snap, 1, "bad")
	require.Equal(t, InvalidInput, KindOf(err))

	snap.ErrRead = fake.GetError()

	_, err = GetEvent(snap, 1)
	require.EqualError(t, err, fake.Err("failed to read event"))

	_, err = EventCount(snap)
	require.EqualError(t, err, fake.Err("failed to read count"))

	_, err = HasVoted(snap, addr.String(), 1)
	require.EqualError(t, err, fake.Err("failed to read ledger"))

	// Reads never write.
	require.Equal(t, 0, snap.Len())
}

func TestError(t *testing.T) {
	err := newError(AlreadyVoted, "voter %d", 1)
	require.EqualError(t, err, "AlreadyVoted: voter 1")
	require.EqualError(t, ErrAlreadyVoted, "AlreadyVoted")

	require.True(t, xerrors.Is(err, ErrAlreadyVoted))
	require.False(t, xerrors.Is(err, ErrInvalidCandidate))
	require.False(t, err.Is(fake.GetError()))

	require.Equal(t, ErrorKind(""), KindOf(nil))
	require.Equal(t, AlreadyVoted, KindOf(xerrors.Errorf("wrapped: %w", err)))
}

// -----------------------------------------------------------------------------
// Utility functions

func newAddress(t *testing.T) wallet.Address {
	signer, err := wallet.Generate()
	require.NoError(t, err)

	return signer.GetAddress()
}

func upper(addr string) string {
	return "0x" + strings.ToUpper(addr[2:])
}

func newDarcContract(t *testing.T, snap store.Snapshot, owner access.Identity) Contract {
	contract := NewContract(testKey, darc.NewService())
	require.NoError(t, contract.GrantOwner(snap, owner))

	return contract
}

func validCreate() types.CreateEventTransaction {
	return types.CreateEventTransaction{
		Title:           "Election A",
		Candidates:      []types.CandidateSpec{{Name: "Alice"}, {Name: "Bob"}},
		DurationMinutes: 60,
	}
}

func makeStep(t *testing.T, ident access.Identity, args ...string) execution.Step {
	return execution.Step{
		Current: fake.NewTransaction(ident, args...),
		Time:    testTime,
	}
}

func encode(t *testing.T, v interface{}) string {
	data, err := json.Marshal(v)
	require.NoError(t, err)

	return string(data)
}

func createStep(t *testing.T, ident access.Identity, tx types.CreateEventTransaction) execution.Step {
	return makeStep(t, ident, CmdArg, string(CmdCreateEvent), CreateEventArg, encode(t, tx))
}

func voteStep(t *testing.T, ident access.Identity, id uint64, candidate int, now time.Time) execution.Step {
	step := makeStep(t, ident, CmdArg, string(CmdVote),
		VoteArg, encode(t, types.VoteTransaction{EventID: id, Candidate: candidate}))
	step.Time = now

	return step
}

func deactivateStep(t *testing.T, ident access.Identity, id uint64) execution.Step {
	return makeStep(t, ident, CmdArg, string(CmdDeactivateEvent),
		DeactivateEventArg, encode(t, types.DeactivateEventTransaction{EventID: id}))
}

type fakeCmd struct {
	err error
}

func (c fakeCmd) createEvent(snap store.Snapshot, step execution.Step) error {
	return c.err
}

func (c fakeCmd) vote(snap store.Snapshot, step execution.Step) error {
	return c.err
}

func (c fakeCmd) deactivateEvent(snap store.Snapshot, step execution.Step) error {
	return c.err
}

package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"go.ezyvote.org/ezyvote/cli/node"
	"go.ezyvote.org/ezyvote/contracts/evoting"
	"go.ezyvote.org/ezyvote/contracts/evoting/types"
	"go.ezyvote.org/ezyvote/core/access/wallet/loader"
	"go.ezyvote.org/ezyvote/core/execution"
	"go.ezyvote.org/ezyvote/core/execution/native"
	"go.ezyvote.org/ezyvote/core/ordering"
	"go.ezyvote.org/ezyvote/core/store"
	"go.ezyvote.org/ezyvote/core/txn"
	"go.ezyvote.org/ezyvote/core/txn/signed"
	"golang.org/x/xerrors"
)

type createAction struct{}

// Execute implements node.ActionTemplate. It submits the creation of an
// event signed by the key.
func (createAction) Execute(ctx node.Context) error {
	candidates := ctx.Flags.StringSlice("candidate")

	tx := types.CreateEventTransaction{
		Title:           ctx.Flags.String("title"),
		Candidates:      make([]types.CandidateSpec, len(candidates)),
		DurationMinutes: uint64(max(ctx.Flags.Int("duration"), 0)),
		StartTime:       int64(ctx.Flags.Int("start")),
		IsSecure:        ctx.Flags.Bool("secure"),
		Whitelist:       ctx.Flags.StringSlice("whitelist"),
	}

	for i, text := range candidates {
		tx.Candidates[i] = types.ParseCandidate(text)
	}

	res, err := submit(ctx, evoting.CmdCreateEvent, evoting.CreateEventArg, tx)
	if err != nil {
		return err
	}

	for _, created := range notifications[types.EventCreated](res.Events, types.EventCreatedName) {
		fmt.Fprintf(ctx.Out, "event %d created\n", created.ID)
	}

	return nil
}

type voteAction struct{}

// Execute implements node.ActionTemplate. It submits a vote signed by the key.
func (voteAction) Execute(ctx node.Context) error {
	id, err := eventID(ctx)
	if err != nil {
		return err
	}

	tx := types.VoteTransaction{
		EventID:   id,
		Candidate: ctx.Flags.Int("candidate"),
	}

	res, err := submit(ctx, evoting.CmdVote, evoting.VoteArg, tx)
	if err != nil {
		return err
	}

	for _, vote := range notifications[types.VoteCast](res.Events, types.VoteCastName) {
		fmt.Fprintf(ctx.Out, "vote of %s cast in event %d\n", vote.Voter, vote.EventID)
	}

	return nil
}

type deactivateAction struct{}

// Execute implements node.ActionTemplate. It submits the deactivation of an
// event signed by the key.
func (deactivateAction) Execute(ctx node.Context) error {
	id, err := eventID(ctx)
	if err != nil {
		return err
	}

	_, err = submit(ctx, evoting.CmdDeactivateEvent, evoting.DeactivateEventArg,
		types.DeactivateEventTransaction{EventID: id})
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "event %d deactivated\n", id)

	return nil
}

type showAction struct{}

// Execute implements node.ActionTemplate. It prints the event and its tally.
func (showAction) Execute(ctx node.Context) error {
	id, err := eventID(ctx)
	if err != nil {
		return err
	}

	var event types.Event

	err = view(ctx, func(r store.Readable) error {
		event, err = evoting.GetEvent(r, id)
		return err
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(types.NewEventView(event, clock()), "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to marshal event: %v", err)
	}

	fmt.Fprintln(ctx.Out, string(data))

	return nil
}

type countAction struct{}

// Execute implements node.ActionTemplate.
func (countAction) Execute(ctx node.Context) error {
	var count uint64

	err := view(ctx, func(r store.Readable) error {
		var err error
		count, err = evoting.EventCount(r)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(ctx.Out, count)

	return nil
}

type votedAction struct{}

// Execute implements node.ActionTemplate.
func (votedAction) Execute(ctx node.Context) error {
	id, err := eventID(ctx)
	if err != nil {
		return err
	}

	var voted bool

	err = view(ctx, func(r store.Readable) error {
		voted, err = evoting.HasVoted(r, ctx.Flags.String("voter"), id)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(ctx.Out, voted)

	return nil
}

type whitelistedAction struct{}

// Execute implements node.ActionTemplate.
func (whitelistedAction) Execute(ctx node.Context) error {
	id, err := eventID(ctx)
	if err != nil {
		return err
	}

	var listed bool

	err = view(ctx, func(r store.Readable) error {
		listed, err = evoting.IsWhitelisted(r, id, ctx.Flags.String("voter"))
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(ctx.Out, listed)

	return nil
}

type watchAction struct{}

// notificationJSON is a notification printed by the watch command.
type notificationJSON struct {
	Index uint64      `json:"index"`
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Execute implements node.ActionTemplate. It prints the notifications of the
// contract, one JSON object per line, until the duration is over or the
// daemon closes.
func (watchAction) Execute(ctx node.Context) error {
	srvc, err := resolve(ctx)
	if err != nil {
		return err
	}

	wctx, cancel := withDone(ctx.Done)
	defer cancel()

	wctx, cancelTimeout := context.WithTimeout(wctx, ctx.Flags.Duration("duration"))
	defer cancelTimeout()

	enc := json.NewEncoder(ctx.Out)

	for evt := range srvc.Watch(wctx) {
		for _, n := range evt.Events {
			if n.Contract != evoting.ContractName {
				continue
			}

			err = enc.Encode(notificationJSON{Index: evt.Index, Name: n.Name, Value: n.Value})
			if err != nil {
				return xerrors.Errorf("failed to write notification: %v", err)
			}
		}
	}

	return nil
}

func resolve(ctx node.Context) (ordering.Service, error) {
	var srvc ordering.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return nil, xerrors.Errorf("injector: %v", err)
	}

	return srvc, nil
}

func view(ctx node.Context, fn func(store.Readable) error) error {
	srvc, err := resolve(ctx)
	if err != nil {
		return err
	}

	return srvc.View(fn)
}

// submit signs the command with the key of the flags and adds it to the
// ledger.
func submit(ctx node.Context, cmd evoting.Command, key string, payload interface{}) (execution.Result, error) {
	srvc, err := resolve(ctx)
	if err != nil {
		return execution.Result{}, err
	}

	signer, err := loader.LoadSigner(loader.NewFileLoader(ctx.Flags.Path("key")))
	if err != nil {
		return execution.Result{}, err
	}

	arg, err := json.Marshal(payload)
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to marshal payload: %v", err)
	}

	mgr := signed.NewManager(signer, srvc)

	err = mgr.Sync()
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to sync manager: %v", err)
	}

	tx, err := mgr.Make(
		txn.Arg{Key: native.ContractArg, Value: []byte(evoting.ContractName)},
		txn.Arg{Key: evoting.CmdArg, Value: []byte(cmd)},
		txn.Arg{Key: key, Value: arg},
	)
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to make transaction: %v", err)
	}

	actx, cancel := withDone(ctx.Done)
	defer cancel()

	return srvc.Add(actx, tx)
}

func eventID(ctx node.Context) (uint64, error) {
	id := ctx.Flags.Int("event")
	if id <= 0 {
		return 0, xerrors.Errorf("invalid event: %d", id)
	}

	return uint64(id), nil
}

// notifications returns the values of the notifications with the name.
func notifications[T any](events []execution.Event, name string) []T {
	var values []T

	for _, evt := range events {
		if evt.Contract != evoting.ContractName || evt.Name != name {
			continue
		}

		value, ok := evt.Value.(T)
		if ok {
			values = append(values, value)
		}
	}

	return values
}

// withDone returns a context that is cancelled when the channel is closed.
func withDone(done <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	if done != nil {
		go func() {
			select {
			case <-done:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	return ctx, cancel
}


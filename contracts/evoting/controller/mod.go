// Package controller implements the initializer of the evoting contract. It
// registers the contract, applies the genesis that grants the owner, and
// exposes the commands and the read-only HTTP routes of the contract.
package controller

import (
	"time"

	"go.ezyvote.org/ezyvote"
	"go.ezyvote.org/ezyvote/cli"
	"go.ezyvote.org/ezyvote/cli/node"
	"go.ezyvote.org/ezyvote/contracts/evoting"
	"go.ezyvote.org/ezyvote/core/access"
	"go.ezyvote.org/ezyvote/core/access/wallet"
	"go.ezyvote.org/ezyvote/core/execution/native"
	"go.ezyvote.org/ezyvote/core/ordering/serial"
	"go.ezyvote.org/ezyvote/core/store"
	"go.ezyvote.org/ezyvote/internal/config"
	"go.ezyvote.org/ezyvote/proxy"
	"golang.org/x/xerrors"
)

// accessKey is the identifier of the permission of the owner.
var accessKey = []byte(evoting.ContractUID)

// clock is the source of the time used to evaluate the status of the events
// in the views.
var clock = time.Now

// NewController returns the initializer of the evoting contract.
func NewController() node.Initializer {
	return controller{}
}

// controller is the initializer of the evoting contract.
//
// - implements node.Initializer
type controller struct{}

// SetCommands implements node.Initializer.
func (controller) SetCommands(builder node.Builder) {
	keyFlag := cli.StringFlag{
		Name:     "key",
		Usage:    "path to the wallet signer file, as seen by the node",
		Required: true,
	}

	eventFlag := cli.IntFlag{
		Name:     "event",
		Usage:    "identifier of the event",
		Required: true,
	}

	voterFlag := cli.StringFlag{
		Name:     "voter",
		Usage:    "wallet address of the voter",
		Required: true,
	}

	cmd := builder.SetCommand("evoting")
	cmd.SetDescription("create events, vote, and read the registry")

	sub := cmd.SetSubCommand("create")
	sub.SetDescription("create an event, only for the owner")
	sub.SetFlags(keyFlag,
		cli.StringFlag{
			Name:     "title",
			Usage:    "title of the event",
			Required: true,
		},
		cli.StringSliceFlag{
			Name:     "candidate",
			Usage:    "candidate in the format name[:bio], at least two",
			Required: true,
		},
		cli.IntFlag{
			Name:     "duration",
			Usage:    "duration of the event in minutes",
			Value:    60,
			Required: false,
		},
		cli.IntFlag{
			Name:     "start",
			Usage:    "start time in unix seconds, now if not provided",
			Required: false,
		},
		cli.BoolFlag{
			Name:     "secure",
			Usage:    "only the whitelist can vote",
			Required: false,
		},
		cli.StringSliceFlag{
			Name:     "whitelist",
			Usage:    "wallet address allowed to vote in a secure event",
			Required: false,
		},
	)
	sub.SetAction(builder.MakeAction(createAction{}))

	sub = cmd.SetSubCommand("vote")
	sub.SetDescription("cast a vote")
	sub.SetFlags(keyFlag, eventFlag, cli.IntFlag{
		Name:     "candidate",
		Usage:    "index of the candidate, starting at 0",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(voteAction{}))

	sub = cmd.SetSubCommand("deactivate")
	sub.SetDescription("close an event before its end, only for the owner")
	sub.SetFlags(keyFlag, eventFlag)
	sub.SetAction(builder.MakeAction(deactivateAction{}))

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("print an event with its tally")
	sub.SetFlags(eventFlag)
	sub.SetAction(builder.MakeAction(showAction{}))

	sub = cmd.SetSubCommand("count")
	sub.SetDescription("print the number of events")
	sub.SetAction(builder.MakeAction(countAction{}))

	sub = cmd.SetSubCommand("voted")
	sub.SetDescription("print if the voter has voted in the event")
	sub.SetFlags(eventFlag, voterFlag)
	sub.SetAction(builder.MakeAction(votedAction{}))

	sub = cmd.SetSubCommand("whitelisted")
	sub.SetDescription("print if the voter can vote in the event")
	sub.SetFlags(eventFlag, voterFlag)
	sub.SetAction(builder.MakeAction(whitelistedAction{}))

	sub = cmd.SetSubCommand("watch")
	sub.SetDescription("print the notifications of the contract")
	sub.SetFlags(cli.DurationFlag{
		Name:     "duration",
		Usage:    "how long to watch",
		Value:    time.Minute,
		Required: false,
	})
	sub.SetAction(builder.MakeAction(watchAction{}))
}

// OnStart implements node.Initializer. It registers the contract and applies
// the genesis when the ledger is new.
func (controller) OnStart(flags cli.Flags, inj node.Injector) error {
	var cfg config.Config
	err := inj.Resolve(&cfg)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var exec *native.Service
	err = inj.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var accessSrvc access.Service
	err = inj.Resolve(&accessSrvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var srvc *serial.Service
	err = inj.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	contract := evoting.NewContract(accessKey, accessSrvc)
	evoting.RegisterContract(exec, contract)

	applied, err := srvc.Init(func(snap store.Snapshot) error {
		if cfg.Owner == "" {
			return xerrors.New("owner is not configured")
		}

		owner, err := wallet.ParseAddress(cfg.Owner)
		if err != nil {
			return xerrors.Errorf("invalid owner: %v", err)
		}

		return contract.GrantOwner(snap, owner)
	})
	if err != nil {
		return xerrors.Errorf("genesis: %v", err)
	}

	if applied {
		ezyvote.Logger.Info().Str("owner", cfg.Owner).Msg("owner granted")
	}

	inj.Inject(contract)

	var srv proxy.Proxy
	err = inj.Resolve(&srv)
	if err == nil {
		registerRoutes(srv, srvc)
	}

	return nil
}

// OnStop implements node.Initializer.
func (controller) OnStop(node.Injector) error {
	return nil
}

// Package controller implements the initializer of the ordering service. It
// creates the execution and access services, starts the ordering service on
// top of the database, and exposes the transaction routes on the proxy when
// it is running.
package controller

import (
	"go.ezyvote.org/ezyvote"
	"go.ezyvote.org/ezyvote/cli"
	"go.ezyvote.org/ezyvote/cli/node"
	"go.ezyvote.org/ezyvote/core/access/darc"
	"go.ezyvote.org/ezyvote/core/execution/native"
	"go.ezyvote.org/ezyvote/core/ordering/serial"
	"go.ezyvote.org/ezyvote/core/store/kv"
	"go.ezyvote.org/ezyvote/internal/config"
	"go.ezyvote.org/ezyvote/proxy"
	"golang.org/x/xerrors"
)

// controller is the initializer of the ordering service.
//
// - implements node.Initializer
type controller struct{}

// NewController returns the initializer of the ordering service.
func NewController() node.Initializer {
	return controller{}
}

// SetCommands implements node.Initializer.
func (controller) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("ordering")
	cmd.SetDescription("inspect the ledger")

	sub := cmd.SetSubCommand("nonce")
	sub.SetDescription("print the next nonce of an address")
	sub.SetFlags(cli.StringFlag{
		Name:     "address",
		Usage:    "wallet address",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(nonceAction{}))

	sub = cmd.SetSubCommand("height")
	sub.SetDescription("print the number of committed transactions")
	sub.SetAction(builder.MakeAction(heightAction{}))

	sub = cmd.SetSubCommand("record")
	sub.SetDescription("print the record of a committed transaction")
	sub.SetFlags(cli.IntFlag{
		Name:     "height",
		Usage:    "height of the transaction, starting at 1",
		Required: true,
	})
	sub.SetAction(builder.MakeAction(recordAction{}))
}

// OnStart implements node.Initializer. It injects the execution service, the
// access service and the ordering service.
func (controller) OnStart(flags cli.Flags, inj node.Injector) error {
	var cfg config.Config
	err := inj.Resolve(&cfg)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var db kv.DB
	err = inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	exec := native.NewExecution()
	access := darc.NewService()

	srvc, err := serial.NewService(db, exec, serial.WithEventBuffer(cfg.EventBuffer))
	if err != nil {
		return xerrors.Errorf("ordering: %v", err)
	}

	inj.Inject(exec)
	inj.Inject(access)
	inj.Inject(srvc)

	var srv proxy.Proxy
	err = inj.Resolve(&srv)
	if err == nil {
		registerRoutes(srv, srvc)
	}

	ezyvote.Logger.Info().Uint64("height", srvc.GetHeight()).Msg("ordering service started")

	return nil
}

// OnStop implements node.Initializer. It refuses the new transactions.
func (controller) OnStop(inj node.Injector) error {
	var srvc *serial.Service
	err := inj.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = srvc.Close()
	if err != nil {
		return xerrors.Errorf("while closing service: %v", err)
	}

	return nil
}

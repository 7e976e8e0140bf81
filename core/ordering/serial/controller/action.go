package controller

import (
	"encoding/json"
	"fmt"

	"go.ezyvote.org/ezyvote/cli/node"
	"go.ezyvote.org/ezyvote/core/access/wallet"
	"go.ezyvote.org/ezyvote/core/ordering/serial"
	"golang.org/x/xerrors"
)

type nonceAction struct{}

// Execute implements node.ActionTemplate. It prints the nonce the next
// transaction of the address must use.
func (nonceAction) Execute(ctx node.Context) error {
	var srvc *serial.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	addr, err := wallet.ParseAddress(ctx.Flags.String("address"))
	if err != nil {
		return xerrors.Errorf("invalid address: %v", err)
	}

	nonce, err := srvc.GetNonce(addr)
	if err != nil {
		return xerrors.Errorf("failed to read nonce: %v", err)
	}

	fmt.Fprintln(ctx.Out, nonce)

	return nil
}

type heightAction struct{}

// Execute implements node.ActionTemplate.
func (heightAction) Execute(ctx node.Context) error {
	var srvc *serial.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	fmt.Fprintln(ctx.Out, srvc.GetHeight())

	return nil
}

type recordAction struct{}

// Execute implements node.ActionTemplate. It prints the JSON record of the
// transaction committed at the height.
func (recordAction) Execute(ctx node.Context) error {
	var srvc *serial.Service
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	height := ctx.Flags.Int("height")
	if height <= 0 {
		return xerrors.Errorf("invalid height: %d", height)
	}

	record, err := srvc.GetRecord(uint64(height))
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to marshal record: %v", err)
	}

	fmt.Fprintln(ctx.Out, string(data))

	return nil
}

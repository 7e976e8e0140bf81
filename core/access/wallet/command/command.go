// Package command defines the cli commands to manage wallet signers.
package command

import (
	"os"

	"go.ezyvote.org/ezyvote/cli"
	"go.ezyvote.org/ezyvote/core/access/wallet/loader"
)

// Initializer implements the wallet initializer for the crypto CLI.
//
// - implements cli.Initializer
type Initializer struct{}

// SetCommands implements cli.Initializer.
func (i Initializer) SetCommands(provider cli.Provider) {
	action := action{
		printer: os.Stdout,

		genSigner: loader.SignerGenerator{}.Generate,
		readFile:  os.ReadFile,
		saveFile:  saveToFile,
	}

	cmd := provider.SetCommand("wallet")
	cmd.SetDescription("manage the wallet keys of the ledger identities")

	signer := cmd.SetSubCommand("signer")

	new := signer.SetSubCommand("new")
	new.SetDescription("create a new wallet signer")
	new.SetFlags(cli.StringFlag{
		Name:     "save",
		Usage:    "if provided, save the signer to that file",
		Required: false,
	}, cli.BoolFlag{
		Name:     "force",
		Usage:    "in the case it saves the signer, will overwrite if needed",
		Required: false,
	})
	new.SetAction(action.newSignerAction)

	read := signer.SetSubCommand("read")
	read.SetDescription("read a signer")
	read.SetFlags(cli.StringFlag{
		Name:     "path",
		Usage:    "path to the signer's file",
		Required: true,
	}, cli.StringFlag{
		Name:     "format",
		Usage:    "output format: [ADDRESS | PUBKEY | HEX]",
		Value:    Address,
		Required: false,
	})
	read.SetAction(action.loadSignerAction)
}

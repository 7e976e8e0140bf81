package command

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"go.ezyvote.org/ezyvote/cli"
	"go.ezyvote.org/ezyvote/core/access/wallet"
	"golang.org/x/xerrors"
)

// Formats of the read command.
const (
	Address = "ADDRESS"
	Pubkey  = "PUBKEY"
	Hex     = "HEX"
)

// action defines the different cli actions of the wallet commands. Defining
// functions and printer helps in testing the commands.
type action struct {
	printer io.Writer

	genSigner func() ([]byte, error)

	readFile func(filename string) ([]byte, error)
	saveFile func(path string, force bool, data []byte) error
}

func (a action) newSignerAction(flags cli.Flags) error {
	data, err := a.genSigner()
	if err != nil {
		return xerrors.Errorf("failed to marshal signer: %v", err)
	}

	switch flags.String("save") {
	case "":
		fmt.Fprintln(a.printer, string(data))
	default:
		err := a.saveFile(flags.String("save"), flags.Bool("force"), data)
		if err != nil {
			return xerrors.Errorf("failed to save files: %v", err)
		}
	}

	return nil
}

func (a action) loadSignerAction(flags cli.Flags) error {
	data, err := a.readFile(flags.Path("path"))
	if err != nil {
		return xerrors.Errorf("failed to read data: %v", err)
	}

	signer, err := wallet.NewSigner(string(data))
	if err != nil {
		return xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	var out string

	switch flags.String("format") {
	case Address:
		out = signer.GetAddress().String()
	case Pubkey:
		out = hex.EncodeToString(signer.GetPublicKey())
	case Hex:
		text, err := signer.MarshalText()
		if err != nil {
			return xerrors.Errorf("failed to marshal signer: %v", err)
		}

		out = string(text)
	default:
		return xerrors.Errorf("unknown format '%s'", flags.String("format"))
	}

	fmt.Fprintln(a.printer, out)

	return nil
}

// saveToFile writes the key in a file that only the current user can read.
func saveToFile(path string, force bool, data []byte) error {
	if !force && fileExist(path) {
		return xerrors.Errorf("file '%s' already exist, use --force if you "+
			"want to overwrite", path)
	}

	err := os.WriteFile(path, data, 0600)
	if err != nil {
		return xerrors.Errorf("failed to write file: %v", err)
	}

	return nil
}

func fileExist(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

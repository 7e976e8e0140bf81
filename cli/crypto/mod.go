// Package main provides a cli for the wallet keys, like generating a signer or
// displaying its address.
package main

import (
	"fmt"
	"io"
	"os"

	"go.ezyvote.org/ezyvote/cli"
	"go.ezyvote.org/ezyvote/cli/ucli"
	wallet "go.ezyvote.org/ezyvote/core/access/wallet/command"
)

var builder cli.Builder = ucli.NewBuilder("crypto", nil)
var printer io.Writer = os.Stderr

func main() {
	err := run(os.Args, wallet.Initializer{})
	if err != nil {
		fmt.Fprintf(printer, "%+v\n", err)
	}
}

func run(args []string, inits ...cli.Initializer) error {
	for _, init := range inits {
		init.SetCommands(builder)
	}

	app := builder.Build()
	err := app.Run(args)
	if err != nil {
		return err
	}

	return nil
}

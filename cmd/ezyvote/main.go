// Package main implements the EzyVote node.
//
// Unix example:
//
//	# Create the wallet of the owner and configure the node with it.
//	ezyvote wallet signer new --save owner.key
//	EZYVOTE_OWNER=$(ezyvote wallet signer read --path owner.key) \
//	  ezyvote --config /tmp/node1 start
//
//	# Create an event and vote.
//	ezyvote --config /tmp/node1 evoting create --key owner.key \
//	  --title "Election A" --candidate Alice --candidate Bob
//	ezyvote --config /tmp/node1 evoting vote --key voter.key \
//	  --event 1 --candidate 0
//	ezyvote --config /tmp/node1 evoting show --event 1
package main

import (
	"fmt"
	"io"
	"os"

	"go.ezyvote.org/ezyvote/cli/node"
	evoting "go.ezyvote.org/ezyvote/contracts/evoting/controller"
	access "go.ezyvote.org/ezyvote/core/access/wallet/command"
	ordering "go.ezyvote.org/ezyvote/core/ordering/serial/controller"
	db "go.ezyvote.org/ezyvote/core/store/kv/controller"
	proxy "go.ezyvote.org/ezyvote/proxy/http/controller"
)

type config struct {
	Channel chan os.Signal
	Writer  io.Writer
}

func main() {
	err := run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	return runWithCfg(args, config{Writer: os.Stdout})
}

func runWithCfg(args []string, cfg config) error {
	builder := node.NewBuilderWithCfg(
		cfg.Channel,
		cfg.Writer,
		db.NewController(),
		proxy.NewController(),
		ordering.NewController(),
		evoting.NewController(),
	)

	// The wallet commands run in the CLI process and need no daemon.
	access.Initializer{}.SetCommands(builder)

	app := builder.Build()

	return app.Run(args)
}

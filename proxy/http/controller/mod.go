// Package controller implements the initializer that starts the HTTP proxy of
// the node and the commands to extend it.
package controller

import (
	"time"

	"go.ezyvote.org/ezyvote"
	"go.ezyvote.org/ezyvote/cli"
	"go.ezyvote.org/ezyvote/cli/node"
	"go.ezyvote.org/ezyvote/internal/config"
	"go.ezyvote.org/ezyvote/proxy"
	"go.ezyvote.org/ezyvote/proxy/http"
	"golang.org/x/xerrors"
)

const defaultProm = "/metrics"

var (
	defaultRetry = 100
	retryDelay   = 50 * time.Millisecond
)

var proxyFac = func(addr string) proxy.Proxy {
	return http.NewHTTP(addr)
}

// controller starts the proxy on the address of the configuration.
//
// - implements node.Initializer
type controller struct{}

// NewController returns the initializer of the HTTP proxy.
func NewController() node.Initializer {
	return controller{}
}

// SetCommands implements node.Initializer.
func (controller) SetCommands(builder node.Builder) {
	cmd := builder.SetCommand("proxy")
	cmd.SetDescription("manage the http proxy of the node")

	sub := cmd.SetSubCommand("addr")
	sub.SetDescription("print the address of the http proxy")
	sub.SetAction(builder.MakeAction(addrAction{}))

	sub = cmd.SetSubCommand("prom")
	sub.SetDescription("registers the collectors and starts a prometheus handler. " +
		"Will fail if the path is used more than once.")
	sub.SetFlags(cli.StringFlag{
		Name:     "path",
		Required: false,
		Usage:    "the handler path",
		Value:    defaultProm,
	})
	sub.SetAction(builder.MakeAction(promAction{}))
}

// OnStart implements node.Initializer. It starts the proxy and waits until it
// listens before injecting it.
func (controller) OnStart(flags cli.Flags, inj node.Injector) error {
	var cfg config.Config
	err := inj.Resolve(&cfg)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	srv := proxyFac(cfg.HTTPAddr)

	go srv.Listen()

	for i := 0; i < defaultRetry && srv.GetAddr() == nil; i++ {
		time.Sleep(retryDelay)
	}

	if srv.GetAddr() == nil {
		return xerrors.Errorf("failed to start proxy server on '%s'", cfg.HTTPAddr)
	}

	ezyvote.Logger.Info().Stringer("addr", srv.GetAddr()).Msg("proxy started")

	inj.Inject(srv)

	return nil
}

// OnStop implements node.Initializer. It stops the http server.
func (controller) OnStop(inj node.Injector) error {
	var srv proxy.Proxy
	err := inj.Resolve(&srv)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	srv.Stop()

	return nil
}

package controller

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.ezyvote.org/ezyvote"
	"go.ezyvote.org/ezyvote/cli/node"
	"go.ezyvote.org/ezyvote/proxy"
	"golang.org/x/xerrors"
)

var registerer prometheus.Registerer = prometheus.DefaultRegisterer

type addrAction struct{}

// Execute implements node.ActionTemplate. It prints the address the proxy
// listens on.
func (addrAction) Execute(ctx node.Context) error {
	var srv proxy.Proxy
	err := ctx.Injector.Resolve(&srv)
	if err != nil {
		return xerrors.Errorf("failed to resolve the proxy: %v", err)
	}

	addr := srv.GetAddr()
	if addr == nil {
		return xerrors.New("proxy is not listening")
	}

	fmt.Fprintln(ctx.Out, addr.String())

	return nil
}

type promAction struct{}

// Execute implements node.ActionTemplate. It registers the Prometheus handler.
func (promAction) Execute(ctx node.Context) error {
	var srv proxy.Proxy
	err := ctx.Injector.Resolve(&srv)
	if err != nil {
		return xerrors.Errorf("failed to resolve the proxy: %v", err)
	}

	path := ctx.Flags.String("path")

	for _, c := range ezyvote.PromCollectors {
		err = registerer.Register(c)
		if err != nil {
			fmt.Fprintf(ctx.Out, "ERROR: failed to register: %v\n", err)
		}
	}

	srv.RegisterHandler(path, promhttp.HandlerFor(prometheusGatherer(), promhttp.HandlerOpts{}).ServeHTTP)
	fmt.Fprintf(ctx.Out, "registered prometheus service on %q\n", path)

	return nil
}

func prometheusGatherer() prometheus.Gatherer {
	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		return prometheus.DefaultGatherer
	}

	return gatherer
}

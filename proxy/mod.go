// Package proxy defines the HTTP server that exposes the read-only surface of
// a node to external clients.
package proxy

import (
	"net"
	"net/http"
)

// Proxy defines the primitives to implement an http server that handles
// client side requests.
type Proxy interface {
	// Listen starts the proxy server. This call is blocking until Stop is
	// called.
	Listen()

	// Stop stops the proxy server.
	Stop()

	// GetAddr returns the address the server is listening on, or nil if it is
	// not listening yet.
	GetAddr() net.Addr

	// RegisterHandler registers a handler for the path template. The template
	// can define variables like /events/{id}. When methods are provided, the
	// route only matches them.
	RegisterHandler(path string, handler http.HandlerFunc, methods ...string)
}

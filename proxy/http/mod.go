// Package http implements the proxy with a gorilla/mux router.
package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.ezyvote.org/ezyvote"
	"golang.org/x/xerrors"
)

type key int

const (
	requestIDKey key = 0
)

// RequestIDHeader is the header carrying the identifier of a request.
const RequestIDHeader = "X-Request-Id"

const shutdownTimeout = 10 * time.Second

// HTTP is a proxy with a router that accepts new routes while it is serving.
//
// - implements proxy.Proxy
type HTTP struct {
	sync.RWMutex

	router     *mux.Router
	server     *http.Server
	logger     zerolog.Logger
	listenAddr string
	ln         net.Listener
	quit       chan struct{}
	listenFn   func(network, addr string) (net.Listener, error)
}

// NewHTTP creates a new proxy listening on the address. An empty address
// selects a random port.
func NewHTTP(listenAddr string) *HTTP {
	logger := ezyvote.Logger.With().Str("role", "http proxy").Logger()

	h := &HTTP{
		router:     mux.NewRouter(),
		logger:     logger,
		listenAddr: listenAddr,
		quit:       make(chan struct{}, 1),
		listenFn:   net.Listen,
	}

	h.server = &http.Server{
		Handler:           tracing(nextRequestID)(logging(logger)(h)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return h
}

// Listen implements proxy.Proxy. The server cannot be restarted once stopped.
func (h *HTTP) Listen() {
	ln, err := h.listenFn("tcp", h.listenAddr)
	if err != nil {
		h.logger.Err(err).Str("addr", h.listenAddr).Msg("failed to create conn")
		return
	}

	h.Lock()
	h.ln = ln
	h.Unlock()

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-h.quit

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		h.server.SetKeepAlivesEnabled(false)

		err := h.server.Shutdown(ctx)
		if err != nil {
			h.logger.Err(err).Msg("could not gracefully shutdown the server")
		}
	}()

	h.logger.Info().Stringer("addr", ln.Addr()).Msg("server is ready to handle requests")

	err = h.server.Serve(ln)
	if err != nil && !xerrors.Is(err, http.ErrServerClosed) {
		h.logger.Err(err).Msg("server failed")
	}

	<-done

	h.Lock()
	h.ln = nil
	h.Unlock()

	h.logger.Info().Msg("server stopped")
}

// Stop implements proxy.Proxy. It returns immediately, the server stops in the
// background.
func (h *HTTP) Stop() {
	select {
	case h.quit <- struct{}{}:
	default:
	}
}

// GetAddr implements proxy.Proxy.
func (h *HTTP) GetAddr() net.Addr {
	h.RLock()
	defer h.RUnlock()

	if h.ln == nil {
		return nil
	}

	return h.ln.Addr()
}

// RegisterHandler implements proxy.Proxy.
func (h *HTTP) RegisterHandler(path string, handler http.HandlerFunc, methods ...string) {
	h.Lock()
	defer h.Unlock()

	route := h.router.HandleFunc(path, handler)
	if len(methods) > 0 {
		route.Methods(methods...)
	}
}

// ServeHTTP implements http.Handler. It dispatches the request to the router.
func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.RLock()
	router := h.router
	h.RUnlock()

	router.ServeHTTP(w, r)
}

// RequestID returns the identifier of the request, or an empty string.
func RequestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

func nextRequestID() string {
	return xid.New().String()
}

// statusWriter records the status code of the response.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// logging logs every request once it has been served.
func logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			defer func() {
				requestID := RequestID(r)
				if requestID == "" {
					requestID = "unknown"
				}

				logger.Info().Str("requestID", requestID).
					Str("method", r.Method).
					Str("url", r.URL.Path).
					Int("status", sw.status).
					Dur("duration", time.Since(start)).
					Str("remoteAddr", r.RemoteAddr).
					Str("agent", r.UserAgent()).Msg("request")
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

// tracing sets the request identifier from the header, or a new one.
func tracing(nextRequestID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = nextRequestID()
			}

			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

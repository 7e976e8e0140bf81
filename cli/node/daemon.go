// This file contains the implementation of a client and a daemon talking
// through a UNIX socket.

package node

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.ezyvote.org/ezyvote"
	"go.ezyvote.org/ezyvote/cli"
	"golang.org/x/xerrors"
)

const ioTimeout = 30 * time.Second

// SocketName is the name of the socket file in the config folder.
const SocketName = "daemon.sock"

// message is sent by the daemon to the client as a JSON object per line. The
// client stops at the first error.
type message struct {
	Err   bool
	Value string
}

// socketClient opens a connection to a unix socket daemon to send commands.
//
// - implements node.Client
type socketClient struct {
	socketpath  string
	out         io.Writer
	dialTimeout time.Duration
	dialFn      func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// Send implements node.Client. It opens a connection and sends the data to the
// daemon, then it prints every message of the daemon until the connection is
// closed.
func (c socketClient) Send(data []byte) error {
	conn, err := c.dialFn("unix", c.socketpath, c.dialTimeout)
	if err != nil {
		return xerrors.Errorf("couldn't open connection: %v", err)
	}

	defer conn.Close()

	_, err = conn.Write(data)
	if err != nil {
		return xerrors.Errorf("couldn't write to daemon: %v", err)
	}

	dec := json.NewDecoder(conn)

	for {
		var msg message

		err = dec.Decode(&msg)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return xerrors.Errorf("failed to decode message: %v", err)
		}

		if msg.Err {
			return xerrors.New(msg.Value)
		}

		fmt.Fprintln(c.out, msg.Value)
	}
}

// socketDaemon is a daemon using a UNIX socket, so that the filesystem
// permissions decide who can send a command.
//
// - implements node.Daemon
type socketDaemon struct {
	sync.WaitGroup

	logger      zerolog.Logger
	socketpath  string
	injector    Injector
	actions     *actionMap
	closing     chan struct{}
	closeOnce   sync.Once
	readTimeout time.Duration
	listenFn    func(network, addr string) (net.Listener, error)
}

// Listen implements node.Daemon. It creates the socket file and serves the
// connections in the background.
func (d *socketDaemon) Listen() error {
	socket, err := d.listenFn("unix", d.socketpath)
	if err != nil {
		return xerrors.Errorf("couldn't bind socket: %v", err)
	}

	d.Add(2)

	go func() {
		defer d.Done()

		<-d.closing
		socket.Close()
	}()

	go func() {
		defer d.Done()

		for {
			conn, err := socket.Accept()
			if err != nil {
				select {
				case <-d.closing:
				default:
					d.logger.Err(err).Msg("daemon closed unexpectedly")
				}
				return
			}

			d.Add(1)
			go func() {
				defer d.Done()
				d.handleConn(conn)
			}()
		}
	}()

	return nil
}

func (d *socketDaemon) handleConn(conn net.Conn) {
	defer conn.Close()

	logger := d.logger.With().Str("request", xid.New().String()).Logger()

	buffer := make([]byte, 2)

	conn.SetReadDeadline(time.Now().Add(d.readTimeout))

	_, err := io.ReadFull(conn, buffer)
	if err == io.EOF {
		// Nothing was sent, which is what a connectivity check does.
		return
	}
	if err != nil {
		d.sendError(logger, conn, xerrors.Errorf("stream corrupted: %v", err))
		return
	}

	fset := make(FlagSet)

	err = json.NewDecoder(conn).Decode(&fset)
	if err != nil {
		d.sendError(logger, conn, xerrors.Errorf("failed to decode flags: %v", err))
		return
	}

	// Long running actions must not be interrupted by the deadline.
	conn.SetReadDeadline(time.Time{})

	id := binary.LittleEndian.Uint16(buffer)

	logger.Debug().
		Uint16("command", id).
		Str("flags", fmt.Sprintf("%v", fset)).
		Msg("received command on the daemon")

	action := d.actions.Get(id)
	if action == nil {
		d.sendError(logger, conn, xerrors.Errorf("unknown command '%d'", id))
		return
	}

	actx := Context{
		Injector: d.injector,
		Flags:    fset,
		Out:      newClientWriter(conn),
		Done:     d.closing,
	}

	err = action.Execute(actx)
	if err != nil {
		d.sendError(logger, conn, xerrors.Errorf("command error: %v", err))
		return
	}
}

func (d *socketDaemon) sendError(logger zerolog.Logger, conn net.Conn, err error) {
	logger.Debug().Err(err).Msg("sending error to client")

	err = json.NewEncoder(conn).Encode(message{Err: true, Value: err.Error()})
	if err != nil {
		logger.Warn().Err(err).Msg("connection to client has error")
	}
}

// Close implements node.Daemon. It closes the daemon and waits for the
// connections to be handled.
func (d *socketDaemon) Close() error {
	d.closeOnce.Do(func() {
		close(d.closing)
	})

	d.Wait()

	return nil
}

// clientWriter wraps the output of an action into messages for the client.
//
// - implements io.Writer
type clientWriter struct {
	enc *json.Encoder
}

func newClientWriter(w io.Writer) *clientWriter {
	return &clientWriter{
		enc: json.NewEncoder(w),
	}
}

// Write implements io.Writer. It returns the length of the input when the
// message has been written.
func (w *clientWriter) Write(data []byte) (int, error) {
	err := w.enc.Encode(message{Value: string(data)})
	if err != nil {
		return 0, xerrors.Errorf("while packing data: %v", err)
	}

	return len(data), nil
}

// socketFactory creates the daemon and the clients from the flags.
//
// - implements node.DaemonFactory
type socketFactory struct {
	injector Injector
	actions  *actionMap
	out      io.Writer
}

// ClientFromContext implements node.DaemonFactory.
func (f socketFactory) ClientFromContext(ctx cli.Flags) (Client, error) {
	client := socketClient{
		socketpath:  f.getSocketPath(ctx),
		out:         f.out,
		dialTimeout: ioTimeout,
		dialFn:      net.DialTimeout,
	}

	return client, nil
}

// DaemonFromContext implements node.DaemonFactory.
func (f socketFactory) DaemonFromContext(ctx cli.Flags) (Daemon, error) {
	socketpath := f.getSocketPath(ctx)

	daemon := &socketDaemon{
		logger:      ezyvote.Logger.With().Str("daemon", socketpath).Logger(),
		socketpath:  socketpath,
		injector:    f.injector,
		actions:     f.actions,
		closing:     make(chan struct{}),
		readTimeout: ioTimeout,
		listenFn:    net.Listen,
	}

	return daemon, nil
}

func (f socketFactory) getSocketPath(ctx cli.Flags) string {
	return filepath.Join(ctx.Path(ConfigFlag), SocketName)
}

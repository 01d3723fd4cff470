package control

import (
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/OpalAayan/kitty-tty/internal/config"
)

// Engine is the tab/pane mutation surface the event loop drives from
// dispatched commands (spec.md §4.7 "Commands"). internal/app.App
// satisfies it; tests can substitute a recording fake.
type Engine interface {
	NewTab()
	Next()
	Prev()
	SplitActive()
	FocusLeft()
	FocusRight()
}

// Dispatch applies cmd to engine, the single point both the real event
// loop and tests route decoded commands through.
func Dispatch(engine Engine, cmd Command) {
	switch cmd {
	case CmdNewTab:
		engine.NewTab()
	case CmdNext:
		engine.Next()
	case CmdPrev:
		engine.Prev()
	case CmdSplitV:
		engine.SplitActive()
	case CmdLeft:
		engine.FocusLeft()
	case CmdRight:
		engine.FocusRight()
	}
}

// Server binds the per-user control-socket path and relays decoded
// commands to the event-loop thread over a channel, so connection
// handling runs on its own goroutine (mirroring server/server.go's
// acceptLoop) while every state mutation still happens on the single
// thread spec.md §4.8 requires.
type Server struct {
	ln  *net.UnixListener
	log *config.Logger

	commands chan Command
	quit     chan struct{}
}

// Listen binds and starts accepting (spec.md §4.7 "Server"). The
// socket is created 0600 so only the invoking user's own client-mode
// processes can reach it.
func Listen(log *config.Logger) (*Server, error) {
	path := config.SocketPath()
	os.RemoveAll(path)

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0600); err != nil {
		ln.Close()
		return nil, err
	}

	s := &Server{
		ln:       ln,
		log:      log,
		commands: make(chan Command, 8),
		quit:     make(chan struct{}),
	}
	go s.acceptLoop()
	return s, nil
}

// Commands is drained by the event loop once per wake (spec.md §4.8
// "For a ready listener, accept and dispatch one command" — dispatch
// itself happens in the caller so it stays on the single thread that
// owns tab/pane state).
func (s *Server) Commands() <-chan Command { return s.commands }

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				continue
			}
		}
		go s.handle(conn)
	}
}

// handle reads at most 63 bytes within a bounded timeout and
// interprets them as a single command token (spec.md §4.7). Unknown
// or truncated payloads are logged and dropped; the server stays up
// (spec.md §7 "Protocol" errors).
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	id := uuid.NewString()

	conn.SetDeadline(time.Now().Add(config.Get().ControlAcceptTimeout))
	buf := make([]byte, 63)
	n, err := conn.Read(buf)
	if n == 0 {
		s.log.Warn("control[%s]: no payload read: %v", id, err)
		return
	}

	cmd, ok := parseWire(string(buf[:n]))
	if !ok {
		s.log.Warn("control[%s]: unknown command %q", id, string(buf[:n]))
		return
	}

	s.log.Info("control[%s]: accepted %s", id, cmd)
	select {
	case s.commands <- cmd:
	default:
		s.log.Warn("control[%s]: command queue full, dropping %s", id, cmd)
	}
}

// Close stops accepting and removes the socket file.
func (s *Server) Close() error {
	close(s.quit)
	err := s.ln.Close()
	os.RemoveAll(s.ln.Addr().String())
	return err
}

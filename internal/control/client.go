package control

import (
	"fmt"
	"net"
	"time"

	"github.com/OpalAayan/kitty-tty/internal/config"
	"github.com/OpalAayan/kitty-tty/internal/pane"
)

// Send dials the control socket and writes cmd, returning false (with
// no error) when no server is reachable — the caller's signal to
// proceed to server mode instead (spec.md §4.8 "Client mode"). It
// reuses pane.WriteFull for the actual write, per spec.md §9's open
// question on the client path's unchecked write: duplicating the
// connection's descriptor into an *os.File lets the control client
// and the server-to-master path share one full-write helper.
func Send(cmd Command) (bool, error) {
	conn, err := net.DialTimeout("unix", config.SocketPath(), 200*time.Millisecond)
	if err != nil {
		return false, nil
	}
	defer conn.Close()

	uconn, ok := conn.(*net.UnixConn)
	if !ok {
		return false, fmt.Errorf("control: unexpected conn type %T", conn)
	}
	f, err := uconn.File()
	if err != nil {
		return false, fmt.Errorf("control: %w", err)
	}
	defer f.Close()

	if err := pane.WriteFull(f, []byte(cmd)); err != nil {
		return false, fmt.Errorf("control: %w", err)
	}
	return true, nil
}

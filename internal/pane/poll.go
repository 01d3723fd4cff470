package pane

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// waitWritable blocks up to timeout for f to become writable, per
// spec.md §4.3's "wait up to 100 ms for writability then resume".
func waitWritable(f *os.File, timeout time.Duration) {
	fds := []unix.PollFd{{Fd: int32(f.Fd()), Events: unix.POLLOUT}}
	unix.Poll(fds, int(timeout.Milliseconds()))
}

package control

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/OpalAayan/kitty-tty/internal/config"
)

func TestHandleDispatchesKnownCommand(t *testing.T) {
	client, srv := net.Pipe()
	s := &Server{log: config.NewLogger(io.Discard), commands: make(chan Command, 1)}

	done := make(chan struct{})
	go func() {
		s.handle(srv)
		close(done)
	}()

	if _, err := client.Write([]byte("split-v")); err != nil {
		t.Fatalf("write: %v", err)
	}
	client.Close()

	select {
	case cmd := <-s.commands:
		if cmd != CmdSplitV {
			t.Fatalf("got %q, want %q", cmd, CmdSplitV)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for dispatched command")
	}
	<-done
}

func TestHandleDropsUnknownCommand(t *testing.T) {
	client, srv := net.Pipe()
	s := &Server{log: config.NewLogger(io.Discard), commands: make(chan Command, 1)}

	go func() {
		client.Write([]byte("frobnicate"))
		client.Close()
	}()
	s.handle(srv)

	select {
	case cmd := <-s.commands:
		t.Fatalf("unexpected dispatched command %q", cmd)
	default:
	}
}

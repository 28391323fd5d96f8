package daemon

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/jamesainslie/dragabyte/pkg/daemon/broadcaster"
	"github.com/jamesainslie/dragabyte/pkg/daemon/protocol"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/logging"
)

// conn is one accepted client: a reader loop on the serving goroutine and a
// writer goroutine draining the client's queue.
type conn struct {
	hub    *Hub
	nc     net.Conn
	client *broadcaster.Client
	log    *logging.Logger
}

func (c *conn) serve() {
	defer c.hub.wg.Done()

	writerDone := make(chan struct{})
	go c.writeLoop(writerDone)

	defer func() {
		c.hub.clients.Unregister(c.client.ID)
		c.client.Close()
		<-writerDone
		_ = c.nc.Close()
		c.hub.forget(c.nc)
		c.log.Debug("client disconnected")
	}()

	reader := protocol.NewLineReader(c.nc, c.hub.cfg.MaxLineBytes)
	for !c.closed() {
		_ = c.nc.SetReadDeadline(time.Now().Add(c.hub.cfg.ReadTimeout))
		line, err := reader.ReadLine()
		if err != nil {
			switch {
			case errors.Is(err, os.ErrDeadlineExceeded):
				continue
			case errors.Is(err, protocol.ErrLineTooLong), errors.Is(err, protocol.ErrInvalidUTF8):
				c.log.Warn("closing connection", "reason", err)
			case errors.Is(err, io.EOF), c.closed():
			default:
				c.log.Debug("read failed", "error", err)
			}
			return
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		c.handle(line)
	}
}

func (c *conn) writeLoop(done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-c.client.Done():
			c.flush()
			return
		case line := <-c.client.Outbox():
			if !c.write(line) {
				c.client.Close()
				return
			}
		}
	}
}

// flush writes whatever is still queued once the client is closed, so a
// final reply such as shutdown reaches the peer.
func (c *conn) flush() {
	for {
		select {
		case line := <-c.client.Outbox():
			if !c.write(line) {
				return
			}
		default:
			return
		}
	}
}

func (c *conn) write(line []byte) bool {
	_ = c.nc.SetWriteDeadline(time.Now().Add(WriteTimeout))
	if _, err := c.nc.Write(line); err != nil {
		c.log.Debug("write failed", "error", err)
		return false
	}
	return true
}

func (c *conn) closed() bool {
	return c.hub.stopping() || c.client.Closed()
}

// reply queues r for this client only.
func (c *conn) reply(r protocol.Reply) {
	line, err := r.Encode()
	if err != nil {
		c.log.Error("dropping reply", "event", r.Event, "error", err)
		return
	}
	c.client.Send(line)
}

// pause sleeps for d unless the connection or hub closes first.
func (c *conn) pause(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.client.Done():
		return false
	case <-c.hub.done:
		return false
	}
}

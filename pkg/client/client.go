// Package client connects outward to a remote dragabyte hub. A Client holds
// at most one live connection, injects the shared token into every request
// and forwards each reply, tagged with the hub address, to a Sink.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jamesainslie/dragabyte/pkg/daemon/protocol"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/logging"
)

var (
	// ErrNotConnected is returned by Send without a live connection.
	ErrNotConnected = errors.New("remote is not connected")

	// ErrPayloadNotObject is returned by Send for payloads that are not JSON
	// objects.
	ErrPayloadNotObject = errors.New("payload must be a JSON object")
)

// AddressKey is added to every forwarded event.
const AddressKey = "_address"

// Connection states reported through Sink.RemoteStatus.
const (
	StatusConnecting   = "connecting"
	StatusConnected    = "connected"
	StatusError        = "error"
	StatusDisconnected = "disconnected"
)

// Status is a connection state change.
type Status struct {
	Status  string  `json:"status"`
	Message *string `json:"message"`
	Address *string `json:"address"`
}

// Sink receives hub replies and connection state changes. Both methods are
// called from the connection's reader goroutine, except for the connecting,
// connected and error states which are reported by Connect itself.
type Sink interface {
	RemoteEvent(event map[string]any)
	RemoteStatus(status Status)
}

// Defaults for Client fields.
const (
	DefaultReadTimeout = 200 * time.Millisecond
	DefaultQueueSize   = 64
)

// Client is the outbound connection manager. The zero value is not usable;
// call New.
type Client struct {
	sink Sink
	log  *logging.Logger

	// ops serializes Connect and Disconnect.
	ops sync.Mutex

	mu      sync.Mutex
	current *session
}

// New returns a disconnected client reporting to sink.
func New(sink Sink) *Client {
	return &Client{sink: sink, log: logging.Get("client")}
}

// Connect dials host:port and replaces any existing connection. token, when
// non-empty, is added to every request that does not carry its own.
func (c *Client) Connect(ctx context.Context, host string, port uint16, token string) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	address := net.JoinHostPort(strings.TrimSpace(host), strconv.Itoa(int(port)))
	c.status(StatusConnecting, "", address)
	c.log.Debug("connecting", "address", address)

	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		c.status(StatusError, fmt.Sprintf("Failed to connect: %v", err), address)
		return fmt.Errorf("connect to %s: %w", address, err)
	}

	if prev := c.detach(nil); prev != nil {
		prev.stop()
	}

	s := &session{
		client:  c,
		nc:      nc,
		address: address,
		token:   token,
		outbox:  make(chan []byte, DefaultQueueSize),
		done:    make(chan struct{}),
	}
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
	s.start()

	c.log.Info("connected", "address", address)
	c.status(StatusConnected, "", address)
	return nil
}

// Disconnect closes the live connection, if any, and waits for its
// goroutines. The reader reports the disconnected state on its way out.
func (c *Client) Disconnect() {
	c.ops.Lock()
	defer c.ops.Unlock()

	if s := c.detach(nil); s != nil {
		s.stop()
	}
}

// Status reports whether a connection is live and its address.
func (c *Client) Status() (connected bool, address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return false, ""
	}
	return true, c.current.address
}

// Send queues payload for the hub. An empty or null payload is sent as {}.
func (c *Client) Send(payload json.RawMessage) error {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s == nil {
		return ErrNotConnected
	}

	line, err := BuildPayload(payload, s.token)
	if err != nil {
		return err
	}
	if !s.send(line) {
		return ErrNotConnected
	}
	c.log.Debug("request queued", "bytes", len(line))
	return nil
}

// BuildPayload validates payload as a JSON object, adds token under "token"
// unless already present and returns the newline terminated line.
func BuildPayload(payload json.RawMessage, token string) ([]byte, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil || fields == nil {
		return nil, ErrPayloadNotObject
	}

	if token != "" {
		if _, ok := fields["token"]; !ok {
			encoded, err := json.Marshal(token)
			if err != nil {
				return nil, err
			}
			fields["token"] = encoded
		}
	}

	line, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

// detach clears the current session when it is s, or unconditionally when
// s is nil, and returns what was cleared.
func (c *Client) detach(s *session) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.current
	if cur == nil || (s != nil && cur != s) {
		return nil
	}
	c.current = nil
	return cur
}

func (c *Client) status(state, message, address string) {
	st := Status{Status: state}
	if message != "" {
		st.Message = &message
	}
	if address != "" {
		st.Address = &address
	}
	c.sink.RemoteStatus(st)
}

// session is one live connection and its reader and writer goroutines.
type session struct {
	client  *Client
	nc      net.Conn
	address string
	token   string

	outbox chan []byte
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func (s *session) start() {
	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()
}

// shutdown closes the socket without waiting, so either goroutine may call
// it.
func (s *session) shutdown() {
	s.once.Do(func() {
		close(s.done)
		_ = s.nc.Close()
	})
}

func (s *session) stop() {
	s.shutdown()
	s.wg.Wait()
}

func (s *session) send(line []byte) bool {
	select {
	case <-s.done:
		return false
	case s.outbox <- line:
		return true
	}
}

func (s *session) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case line := <-s.outbox:
			if _, err := s.nc.Write(line); err != nil {
				s.client.log.Debug("write failed", "address", s.address, "error", err)
				s.shutdown()
				return
			}
		}
	}
}

func (s *session) readLoop() {
	defer s.wg.Done()
	defer func() {
		s.shutdown()
		s.client.detach(s)
		s.client.log.Info("disconnected", "address", s.address)
		s.client.status(StatusDisconnected, "", s.address)
	}()

	reader := protocol.NewLineReader(s.nc, protocol.MaxLineBytes)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		_ = s.nc.SetReadDeadline(time.Now().Add(DefaultReadTimeout))
		line, err := reader.ReadLine()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			return
		}

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		var event map[string]any
		if err := json.Unmarshal(trimmed, &event); err != nil || event == nil {
			continue
		}
		event[AddressKey] = s.address
		s.client.sink.RemoteEvent(event)
	}
}

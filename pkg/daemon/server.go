// Package daemon serves the remote control hub: a TCP listener speaking
// newline-delimited JSON through which authenticated clients list
// directories, query disk usage, read small files and drive one scan at a
// time.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/jamesainslie/dragabyte/pkg/daemon/broadcaster"
	"github.com/jamesainslie/dragabyte/pkg/daemon/protocol"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/logging"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/scanner"
)

// Defaults applied by NewHub to zero Config fields.
const (
	DefaultMaxConnections    = 50
	DefaultReadTimeout       = 200 * time.Millisecond
	DefaultAcceptPoll        = 50 * time.Millisecond
	DefaultUnauthorizedDelay = 2 * time.Second
	DefaultMaxReadBytes      = 5 << 20
)

// WriteTimeout bounds a single write to a client.
const WriteTimeout = 10 * time.Second

// stopGrace is how long Stop lets connections flush before closing them.
const stopGrace = time.Second

// Config holds hub configuration.
type Config struct {
	// Addr is the ip:port to listen on.
	Addr string

	// Token is the shared secret. Empty authorizes every request.
	Token string

	// Headless permits the shutdown action.
	Headless bool

	MaxConnections    int
	ReadTimeout       time.Duration
	AcceptPoll        time.Duration
	UnauthorizedDelay time.Duration
	MaxLineBytes      int
	MaxReadBytes      int64

	// QueueSize is the per-client outbound queue depth.
	QueueSize int

	// Fs backs list and read. Defaults to the OS filesystem.
	Fs afero.Fs
}

func (c Config) withDefaults() Config {
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.AcceptPoll <= 0 {
		c.AcceptPoll = DefaultAcceptPoll
	}
	if c.UnauthorizedDelay < 0 {
		c.UnauthorizedDelay = 0
	} else if c.UnauthorizedDelay == 0 {
		c.UnauthorizedDelay = DefaultUnauthorizedDelay
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = protocol.MaxLineBytes
	}
	if c.MaxReadBytes <= 0 {
		c.MaxReadBytes = DefaultMaxReadBytes
	}
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	return c
}

// Hub is the remote control server.
type Hub struct {
	cfg      Config
	listener net.Listener
	clients  *broadcaster.Broadcaster
	log      *logging.Logger

	// scan holds the cancel token of the running scan, nil when idle.
	scan atomic.Pointer[scanner.Token]

	ctx    context.Context
	cancel context.CancelFunc

	// shutdown is signalled at most once, guarded by shutdownRequested.
	shutdown          chan struct{}
	shutdownRequested atomic.Bool

	done       chan struct{}
	acceptDone chan struct{}
	started    atomic.Bool
	stopOnce   sync.Once

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	// wg tracks connection and scan goroutines.
	wg sync.WaitGroup
}

// NewHub binds cfg.Addr. A bind failure is returned and nothing is left
// running. Set UnauthorizedDelay negative to disable the delay.
func NewHub(cfg Config) (*Hub, error) {
	cfg = cfg.withDefaults()

	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", cfg.Addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		cfg:        cfg,
		listener:   listener,
		clients:    broadcaster.New(cfg.QueueSize),
		log:        logging.Get("hub"),
		ctx:        ctx,
		cancel:     cancel,
		shutdown:   make(chan struct{}, 1),
		done:       make(chan struct{}),
		acceptDone: make(chan struct{}),
		conns:      make(map[net.Conn]struct{}),
	}
	return h, nil
}

// Addr returns the bound listener address.
func (h *Hub) Addr() net.Addr {
	return h.listener.Addr()
}

// Shutdown delivers a value when a remote client requests shutdown of a
// headless process.
func (h *Hub) Shutdown() <-chan struct{} {
	return h.shutdown
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return h.clients.Count()
}

// Scanning reports whether a scan is running.
func (h *Hub) Scanning() bool {
	return h.scan.Load() != nil
}

// Start runs the accept loop in the background. Calling it again is a no-op.
func (h *Hub) Start() {
	if !h.started.CompareAndSwap(false, true) {
		return
	}
	h.log.Info("hub listening", "addr", h.Addr().String(), "auth", h.cfg.Token != "", "headless", h.cfg.Headless)
	go h.acceptLoop()
}

// Stop cancels the running scan, joins the accept loop, lets every
// connection flush its queue and close, and waits for their goroutines. It
// is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.cancel()
		if token := h.scan.Load(); token != nil {
			token.Cancel()
		}

		_ = h.listener.Close()
		if h.started.Load() {
			<-h.acceptDone
		}

		h.clients.Close()

		drained := make(chan struct{})
		go func() {
			h.wg.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(stopGrace):
			h.mu.Lock()
			for nc := range h.conns {
				_ = nc.Close()
			}
			h.mu.Unlock()
			<-drained
		}
		h.log.Info("hub stopped")
	})
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

func (h *Hub) acceptLoop() {
	defer close(h.acceptDone)

	for {
		select {
		case <-h.done:
			return
		default:
		}

		if dl, ok := h.listener.(deadliner); ok {
			_ = dl.SetDeadline(time.Now().Add(h.cfg.AcceptPoll))
		}
		nc, err := h.listener.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			select {
			case <-h.done:
			default:
				h.log.Error("accept failed, remote serving stopped", "error", err)
			}
			return
		}
		h.accept(nc)
	}
}

func (h *Hub) accept(nc net.Conn) {
	remote := nc.RemoteAddr().String()

	if h.clients.Count() >= h.cfg.MaxConnections {
		h.log.Warn("connection limit reached, rejecting", "remote", remote, "limit", h.cfg.MaxConnections)
		_ = nc.Close()
		return
	}

	client, err := h.clients.Register()
	if err != nil {
		_ = nc.Close()
		return
	}

	h.mu.Lock()
	h.conns[nc] = struct{}{}
	h.mu.Unlock()

	h.log.Debug("client connected", "remote", remote, "client", client.ID)
	c := &conn{hub: h, nc: nc, client: client, log: h.log.With("client", client.ID)}

	h.wg.Add(1)
	go c.serve()
}

func (h *Hub) forget(nc net.Conn) {
	h.mu.Lock()
	delete(h.conns, nc)
	h.mu.Unlock()
}

func (h *Hub) stopping() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

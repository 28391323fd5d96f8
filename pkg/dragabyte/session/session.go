// Package session runs scans on behalf of embedding shells. A Registry
// enforces at most one running scan per owner key (a window or connection
// identifier) and tears its entry down when the scan goroutine exits.
package session

import (
	"context"
	"sync"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/logging"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/scanner"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/volume"
)

// Registry tracks running scans by owner key. The zero value is not usable;
// call NewRegistry.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*scanner.Token
	wg       sync.WaitGroup
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*scanner.Token)}
}

// Start launches a scan of root for key and returns once it is running.
// Invalid roots and options are reported synchronously. A scan already
// running for the same key is cancelled first. Failures after the scan has
// started are delivered to emit as a KindError event.
func (r *Registry) Start(ctx context.Context, key, root string, opts scanner.Options, id *string, emit scanner.Emitter) error {
	log := logging.Get("session")

	cfg, err := scanner.NewConfig(opts)
	if err != nil {
		return err
	}
	root, err = scanner.ValidateRoot(root)
	if err != nil {
		return err
	}

	token := scanner.NewToken()

	r.mu.Lock()
	if prev, ok := r.sessions[key]; ok {
		prev.Cancel()
		log.Debug("cancelled previous scan", "key", key)
	}
	r.sessions[key] = token
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer r.release(key, token)

		if err := scanner.Run(ctx, root, cfg, token, emit, id); err != nil {
			log.Warn("scan failed", "key", key, "root", root, "error", err)
			emit.Emit(scanner.Event{Kind: scanner.KindError, Message: err.Error()})
		}
	}()
	return nil
}

// Cancel signals the scan running for key. It reports whether one existed.
func (r *Registry) Cancel(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.sessions[key]
	if ok {
		token.Cancel()
	}
	return ok
}

// Active reports whether a scan is registered for key.
func (r *Registry) Active(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[key]
	return ok
}

// Len returns the number of registered scans.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CancelAll signals every running scan.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.sessions {
		token.Cancel()
	}
}

// Wait blocks until every scan started through r has exited.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// release drops the entry for key unless a newer scan has replaced it.
func (r *Registry) release(key string, token *scanner.Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[key] == token {
		delete(r.sessions, key)
	}
}

// Sink receives named events from a scan, for example a window in a
// desktop shell or the CLI progress view.
type Sink interface {
	Publish(event string, payload any)
}

// MessagePayload is published with scan-cancelled and scan-error events.
type MessagePayload struct {
	ID      *string `json:"id,omitempty"`
	Message string  `json:"message"`
}

// SinkEmitter adapts a Sink to scanner.Emitter. Progress and completion
// publish the summary; errors and cancellation publish a message.
type SinkEmitter struct {
	Sink Sink
	ID   *string
}

// Emit publishes e under its event name.
func (s SinkEmitter) Emit(e scanner.Event) {
	switch e.Kind {
	case scanner.KindProgress, scanner.KindComplete:
		s.Sink.Publish(e.Kind.String(), e.Summary)
	default:
		s.Sink.Publish(e.Kind.String(), MessagePayload{ID: s.ID, Message: e.Message})
	}
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(event string, payload any)

// Publish calls f.
func (f SinkFunc) Publish(event string, payload any) {
	f(event, payload)
}


// DiskUsage reports capacity of the volume holding path for the embedding
// shell. Errors carry volume.ErrPathNotFound or volume.ErrUsageFailed.
func DiskUsage(path string) (types.DiskUsageSnapshot, error) {
	return volume.Usage(path)
}

package daemon

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/jamesainslie/dragabyte/pkg/daemon/protocol"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/scanner"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/volume"
)

var (
	errPathNotFound = errors.New(protocol.CodePathNotFound)
	errNotAFile     = errors.New(protocol.CodeNotAFile)
	errFileTooLarge = errors.New(protocol.CodeFileTooLarge)
	errListFailed   = errors.New("list-failed")
)

// handle decodes, authorizes and dispatches one request line. Lines are
// never logged since they may carry the token.
func (c *conn) handle(line []byte) {
	req, err := protocol.DecodeRequest(line)
	if err != nil {
		c.log.Debug("invalid request", "bytes", len(line))
		c.reply(protocol.ErrorReply(nil, protocol.CodeInvalidJSON))
		return
	}

	if !c.hub.authorized(req.Token) {
		c.log.Warn("unauthorized request", "remote", c.nc.RemoteAddr().String(), "action", req.Action)
		if !c.pause(c.hub.cfg.UnauthorizedDelay) {
			return
		}
		c.reply(protocol.ErrorReply(req.ID, protocol.CodeUnauthorized))
		return
	}

	c.log.Debug("request", "action", req.Action, "id", idValue(req.ID))
	c.hub.dispatch(req, c.reply)
}

// authorized compares token against the configured secret in constant time.
func (h *Hub) authorized(token *string) bool {
	if h.cfg.Token == "" {
		return true
	}
	if token == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*token), []byte(h.cfg.Token)) == 1
}

// dispatch runs an authorized request. Replies to the caller go through
// reply; scan events are broadcast to every client.
func (h *Hub) dispatch(req protocol.Request, reply func(protocol.Reply)) {
	id := req.ID

	switch req.Action {
	case protocol.ActionPing:
		reply(protocol.Reply{Event: protocol.EventPong, ID: id})

	case protocol.ActionList:
		data, err := h.list(req.PathValue())
		if err != nil {
			reply(protocol.Reply{Event: protocol.EventListError, ID: id, Message: err.Error()})
			return
		}
		reply(protocol.Reply{Event: protocol.EventListComplete, ID: id, Data: data})

	case protocol.ActionDisk:
		snapshot, err := volume.Usage(req.PathValue())
		if err != nil {
			reply(protocol.Reply{Event: protocol.EventDiskError, ID: id, Message: err.Error()})
			return
		}
		reply(protocol.Reply{Event: protocol.EventDiskInfo, ID: id, Data: snapshot})

	case protocol.ActionRead:
		data, err := h.read(req.PathValue())
		if err != nil {
			reply(protocol.ErrorReply(id, err.Error()))
			return
		}
		reply(protocol.Reply{Event: protocol.EventReadComplete, ID: id, Data: data})

	case protocol.ActionScan:
		h.startScan(req, reply)

	case protocol.ActionCancel:
		if token := h.scan.Load(); token != nil {
			token.Cancel()
			reply(protocol.Reply{Event: protocol.EventCancelRequested, ID: id})
			return
		}
		reply(protocol.Reply{Event: protocol.EventNoActiveScan, ID: id})

	case protocol.ActionShutdown:
		if !h.cfg.Headless {
			reply(protocol.ErrorReply(id, protocol.CodeShutdownNotAllowed))
			return
		}
		if !h.shutdownRequested.CompareAndSwap(false, true) {
			reply(protocol.ErrorReply(id, protocol.CodeShutdownFailed))
			return
		}
		h.log.Info("shutdown requested by remote client")
		// Queue the reply before signalling so it is flushed on Stop.
		reply(protocol.Reply{Event: protocol.EventShutdown, ID: id})
		h.shutdown <- struct{}{}

	default:
		reply(protocol.ErrorReply(id, protocol.CodeUnknownAction))
	}
}

// list returns the subdirectories of path sorted case-insensitively. An
// empty path lists the platform roots: the drives on windows, "/" elsewhere.
func (h *Hub) list(path string) (protocol.ListData, error) {
	target := strings.TrimSpace(path)

	if volume.OS == "windows" && (target == "" || target == "/" || target == `\`) {
		entries := []protocol.ListEntry{}
		for _, d := range volume.Drives() {
			entries = append(entries, protocol.ListEntry{Name: d.Name, Path: d.Path, IsDir: true})
		}
		return protocol.ListData{Entries: entries, OS: volume.OS}, nil
	}
	if target == "" {
		target = "/"
	}

	if _, err := h.cfg.Fs.Stat(target); err != nil {
		return protocol.ListData{}, errPathNotFound
	}

	infos, err := afero.ReadDir(h.cfg.Fs, target)
	if err != nil {
		return protocol.ListData{}, fmt.Errorf("%w: %v", errListFailed, err)
	}

	entries := []protocol.ListEntry{}
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		entries = append(entries, protocol.ListEntry{
			Name:  info.Name(),
			Path:  filepath.Join(target, info.Name()),
			IsDir: true,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})

	return protocol.ListData{Path: &target, Entries: entries, OS: volume.OS}, nil
}

// read returns the base64 content of a regular file no larger than
// MaxReadBytes.
func (h *Hub) read(path string) (protocol.ReadData, error) {
	info, err := h.cfg.Fs.Stat(path)
	if err != nil {
		return protocol.ReadData{}, errPathNotFound
	}
	if !info.Mode().IsRegular() {
		return protocol.ReadData{}, errNotAFile
	}
	if info.Size() > h.cfg.MaxReadBytes {
		return protocol.ReadData{}, errFileTooLarge
	}

	data, err := afero.ReadFile(h.cfg.Fs, path)
	if err != nil {
		return protocol.ReadData{}, err
	}
	return protocol.ReadData{Path: path, Content: base64.StdEncoding.EncodeToString(data)}, nil
}

// startScan validates the request, claims the scan slot and runs the walk
// in the background. The slot is released when the walk goroutine exits.
func (h *Hub) startScan(req protocol.Request, reply func(protocol.Reply)) {
	id := req.ID

	root, err := scanner.ValidateRoot(req.PathValue())
	if err != nil {
		reply(protocol.ErrorReply(id, err.Error()))
		return
	}

	opts := scanner.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	cfg, err := scanner.NewConfig(opts)
	if err != nil {
		reply(protocol.ErrorReply(id, err.Error()))
		return
	}

	token := scanner.NewToken()
	if !h.scan.CompareAndSwap(nil, token) {
		reply(protocol.ErrorReply(id, protocol.CodeScanInProgress))
		return
	}
	reply(protocol.Reply{Event: protocol.EventScanStarted, ID: id})
	h.log.Info("scan started", "root", root, "id", idValue(id))

	emit := hubEmitter{hub: h, id: id}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.scan.Store(nil)

		if err := scanner.Run(h.ctx, root, cfg, token, emit, id); err != nil {
			h.log.Warn("scan failed", "root", root, "error", err)
			emit.Emit(scanner.Event{Kind: scanner.KindError, Message: err.Error()})
		}
	}()
}

// hubEmitter broadcasts scan events tagged with the originating request id.
type hubEmitter struct {
	hub *Hub
	id  *string
}

func (e hubEmitter) Emit(ev scanner.Event) {
	line, err := protocol.ScanReply(ev, e.id).Encode()
	if err != nil {
		e.hub.log.Error("dropping scan event", "event", ev.Kind.String(), "error", err)
		return
	}
	e.hub.clients.Broadcast(line)
}

func idValue(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

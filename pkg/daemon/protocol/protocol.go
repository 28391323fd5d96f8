// Package protocol defines the newline-delimited JSON messages exchanged
// between the control hub and its remote clients.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/scanner"
)

// MaxLineBytes caps a single framed message, newline included.
const MaxLineBytes = 10 << 20

// Request actions.
const (
	ActionPing     = "ping"
	ActionList     = "list"
	ActionDisk     = "disk"
	ActionRead     = "read"
	ActionScan     = "scan"
	ActionCancel   = "cancel"
	ActionShutdown = "shutdown"
)

// Reply events. Scan events reuse scanner.Kind names.
const (
	EventPong            = "pong"
	EventListComplete    = "list-complete"
	EventListError       = "list-error"
	EventDiskInfo        = "disk-info"
	EventDiskError       = "disk-error"
	EventReadComplete    = "read-complete"
	EventScanStarted     = "scan-started"
	EventCancelRequested = "cancel-requested"
	EventNoActiveScan    = "no-active-scan"
	EventShutdown        = "shutdown"
	EventError           = "error"
)

// Error codes carried in the message of an EventError reply.
const (
	CodeInvalidJSON        = "invalid_json"
	CodeUnauthorized       = "unauthorized"
	CodePathNotFound       = "path-not-found"
	CodeNotADirectory      = "not-a-directory"
	CodeNotAFile           = "not-a-file"
	CodeFileTooLarge       = "file-too-large"
	CodeScanInProgress     = "scan-in-progress"
	CodeShutdownNotAllowed = "shutdown-not-allowed"
	CodeShutdownFailed     = "shutdown-failed"
	CodeUnknownAction      = "unknown-action"
)

// ErrInvalidRequest marks lines that are not a well formed request.
var ErrInvalidRequest = errors.New(CodeInvalidJSON)

// Request is one client message. Path and Options are only meaningful for
// the actions that take them.
type Request struct {
	Token   *string          `json:"token,omitempty"`
	ID      *string          `json:"id,omitempty"`
	Action  string           `json:"action"`
	Path    *string          `json:"path,omitempty"`
	Options *scanner.Options `json:"options,omitempty"`
}

// DecodeRequest parses a line into a Request. JSON errors, a missing action
// and a missing path for disk, read and scan all yield ErrInvalidRequest.
func DecodeRequest(line []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Action == "" {
		return Request{}, fmt.Errorf("%w: missing action", ErrInvalidRequest)
	}
	switch req.Action {
	case ActionDisk, ActionRead, ActionScan:
		if req.Path == nil {
			return Request{}, fmt.Errorf("%w: %s requires a path", ErrInvalidRequest, req.Action)
		}
	}
	return req, nil
}

// Known reports whether the request names a supported action.
func (r Request) Known() bool {
	switch r.Action {
	case ActionPing, ActionList, ActionDisk, ActionRead, ActionScan, ActionCancel, ActionShutdown:
		return true
	}
	return false
}

// PathValue returns the request path or "" when absent.
func (r Request) PathValue() string {
	if r.Path == nil {
		return ""
	}
	return *r.Path
}

// Reply is one hub message. ID is always present on the wire, null when the
// request carried none.
type Reply struct {
	Event   string  `json:"event"`
	ID      *string `json:"id"`
	Data    any     `json:"data,omitempty"`
	Message string  `json:"message,omitempty"`
}

// ErrorReply builds an EventError reply carrying code.
func ErrorReply(id *string, code string) Reply {
	return Reply{Event: EventError, ID: id, Message: code}
}

// Encode renders r as a single newline terminated line.
func (r Reply) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s reply: %w", r.Event, err)
	}
	return append(data, '\n'), nil
}

// ScanReply maps a scanner event onto the wire: progress and completion
// carry the summary as data, errors and cancellation a message.
func ScanReply(e scanner.Event, id *string) Reply {
	r := Reply{Event: e.Kind.String(), ID: id}
	switch e.Kind {
	case scanner.KindProgress, scanner.KindComplete:
		r.Data = e.Summary
	default:
		r.Message = e.Message
	}
	return r
}

// ListEntry is one directory in a list-complete reply.
type ListEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"isDir"`
}

// ListData is the payload of list-complete. Path is null when drives are
// listed.
type ListData struct {
	Path    *string     `json:"path"`
	Entries []ListEntry `json:"entries"`
	OS      string      `json:"os"`
}

// ReadData is the payload of read-complete. Content is standard base64.
type ReadData struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/dragabyte/pkg/client"
	"github.com/jamesainslie/dragabyte/pkg/daemon/protocol"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/config"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/output"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/scanner"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

var remoteCmd = &cobra.Command{
	Use:   "remote <address> <action> [path]",
	Short: "Send one request to a remote hub",
	Long: `Connect to a hub, send one request and print replies until the request
finishes. Actions: ping, list, disk, read, scan, cancel, shutdown.

Replies are printed as JSON lines. With --output, the final disk-info or
scan-complete reply is rendered with that formatter instead.

Ctrl+C during a remote scan asks the hub to cancel it.`,
	Example: `  dragabyte remote 127.0.0.1:4799 ping
  dragabyte remote 10.0.0.5:4799 scan /srv --token s3cret -o pretty
  dragabyte remote 127.0.0.1:4799 scan /srv --payload '{"options":{"priorityMode":"low"}}'`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runRemote,
}

var (
	errRemoteClosed = errors.New("connection closed before the request finished")
	errRemoteFailed = errors.New("request failed")
)

func init() {
	rootCmd.AddCommand(remoteCmd)
	fs := remoteCmd.Flags()
	fs.String("token", os.Getenv(config.EnvTCPToken), "shared secret for the hub")
	fs.String("id", "", "request id (random when empty)")
	fs.String("payload", "", "extra request fields as a JSON object")
	fs.StringP("output", "o", "", "render the final reply: "+strings.Join(output.Available(), ", "))
}

// remoteRequest is one parsed invocation of the remote command.
type remoteRequest struct {
	host  string
	port  uint16
	token string
	id    string
	body  map[string]any
}

func parseRemote(address, action, path, id, payload string) (*remoteRequest, error) {
	if !(protocol.Request{Action: action}).Known() {
		return nil, fmt.Errorf("unknown action %q", action)
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	body := map[string]any{}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &body); err != nil {
			return nil, fmt.Errorf("%w: %v", client.ErrPayloadNotObject, err)
		}
	}
	body["action"] = action
	if path != "" {
		body["path"] = path
	}
	switch action {
	case protocol.ActionDisk, protocol.ActionRead, protocol.ActionScan:
		if _, ok := body["path"]; !ok {
			return nil, fmt.Errorf("%s requires a path", action)
		}
	}
	if id == "" {
		id = uuid.New().String()
	}
	body["id"] = id

	return &remoteRequest{host: host, port: uint16(port), id: id, body: body}, nil
}

// finished reports whether event ends the request.
func finished(event string) bool {
	switch event {
	case protocol.EventScanStarted, scanner.KindProgress.String():
		return false
	}
	return true
}

func runRemote(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) > 2 {
		path = args[2]
	}
	fs := cmd.Flags()
	id, _ := fs.GetString("id")
	payload, _ := fs.GetString("payload")
	token, _ := fs.GetString("token")
	format, _ := fs.GetString("output")

	req, err := parseRemote(args[0], args[1], path, id, payload)
	if err != nil {
		return err
	}
	req.token = token

	var formatter output.Formatter
	if format != "" {
		if formatter, err = output.Get(format); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return exchange(ctx, req, cmd.OutOrStdout(), formatter)
}

// exchange sends req and writes replies to w until a final one arrives.
func exchange(ctx context.Context, req *remoteRequest, w io.Writer, formatter output.Formatter) error {
	events := make(chan map[string]any, client.DefaultQueueSize)
	closed := make(chan string, 1)
	stopped := make(chan struct{})

	c := client.New(client.SinkFuncs{
		Event: func(e map[string]any) {
			select {
			case events <- e:
			case <-stopped:
			}
		},
		Status: func(s client.Status) {
			if s.Status == client.StatusDisconnected {
				msg := ""
				if s.Message != nil {
					msg = *s.Message
				}
				select {
				case closed <- msg:
				default:
				}
			}
		},
	})
	if err := c.Connect(ctx, req.host, req.port, req.token); err != nil {
		return err
	}
	defer c.Disconnect()
	defer close(stopped)

	line, err := json.Marshal(req.body)
	if err != nil {
		return err
	}
	if err := c.Send(line); err != nil {
		return err
	}

	cancelSent := false
	done := ctx.Done()
	for {
		select {
		case e := <-events:
			if rid, ok := e["id"].(string); ok && rid != req.id {
				continue
			}
			name, _ := e["event"].(string)
			if !finished(name) {
				if formatter == nil {
					if err := printEvent(w, e); err != nil {
						return err
					}
				}
				continue
			}
			return finish(w, e, name, req, formatter)

		case msg := <-closed:
			if msg != "" {
				return fmt.Errorf("%w: %s", errRemoteClosed, msg)
			}
			return errRemoteClosed

		case <-done:
			done = nil
			if req.body["action"] != protocol.ActionScan || cancelSent {
				return ctx.Err()
			}
			cancelSent = true
			cancel, _ := json.Marshal(map[string]any{"action": protocol.ActionCancel, "id": req.id + "-cancel"})
			if err := c.Send(cancel); err != nil {
				return err
			}
		}
	}
}

func finish(w io.Writer, e map[string]any, name string, req *remoteRequest, formatter output.Formatter) error {
	if formatter == nil {
		if err := printEvent(w, e); err != nil {
			return err
		}
	} else if result, ok := resultFor(e, name, req); ok {
		var buf bytes.Buffer
		if err := formatter.Format(&buf, result); err != nil {
			return err
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	} else if err := printEvent(w, e); err != nil {
		return err
	}

	switch name {
	case protocol.EventError, protocol.EventListError, protocol.EventDiskError, scanner.KindError.String():
		return fmt.Errorf("%w: %s: %v", errRemoteFailed, name, e["message"])
	}
	return nil
}

// resultFor converts a disk-info or scan-complete reply for a formatter.
func resultFor(e map[string]any, name string, req *remoteRequest) (*output.Result, bool) {
	raw, err := json.Marshal(e["data"])
	if err != nil {
		return nil, false
	}
	source, _ := req.body["path"].(string)
	result := &output.Result{Source: fmt.Sprintf("%s:%d %s", req.host, req.port, source)}

	switch name {
	case protocol.EventDiskInfo:
		var snap types.DiskUsageSnapshot
		if json.Unmarshal(raw, &snap) != nil {
			return nil, false
		}
		result.Disk = &snap
	case scanner.KindComplete.String():
		var summary types.ScanSummary
		if json.Unmarshal(raw, &summary) != nil {
			return nil, false
		}
		result.Summary = &summary
	default:
		return nil, false
	}
	return result, true
}

func printEvent(w io.Writer, e map[string]any) error {
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", line)
	return err
}

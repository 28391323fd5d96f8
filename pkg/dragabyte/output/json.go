package output

import (
	"bytes"
	"encoding/json"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

// jsonOutput is the document written by JSONFormatter. Summary keeps the
// wire field names used by the hub.
type jsonOutput struct {
	Summary *types.ScanSummary `json:"summary,omitempty"`
	Disk    *jsonDisk          `json:"disk,omitempty"`
	Meta    jsonMeta           `json:"meta"`
}

type jsonDisk struct {
	types.DiskUsageSnapshot
	UsedBytes uint64 `json:"usedBytes"`
}

type jsonMeta struct {
	Source    string   `json:"source"`
	Cancelled bool     `json:"cancelled"`
	Error     string   `json:"error,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// JSONFormatter writes a single indented JSON document.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	out := jsonOutput{
		Summary: r.Summary,
		Meta: jsonMeta{
			Source:    r.Source,
			Cancelled: r.Cancelled,
			Error:     r.Error,
			Warnings:  r.Warnings,
		},
	}
	if r.Disk != nil {
		out.Disk = &jsonDisk{DiskUsageSnapshot: *r.Disk, UsedBytes: r.Disk.UsedBytes()}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)

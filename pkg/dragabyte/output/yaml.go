package output

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

// yamlOutput mirrors jsonOutput with snake_case keys.
type yamlOutput struct {
	Summary *yamlSummary `yaml:"summary,omitempty"`
	Disk    *yamlDisk    `yaml:"disk,omitempty"`
	Meta    yamlMeta     `yaml:"meta"`
}

type yamlSummary struct {
	TotalBytes   uint64     `yaml:"total_bytes"`
	TotalHuman   string     `yaml:"total_human"`
	FileCount    uint64     `yaml:"file_count"`
	DirCount     uint64     `yaml:"dir_count"`
	DurationMs   uint64     `yaml:"duration_ms"`
	LargestFiles []yamlFile `yaml:"largest_files"`
	Root         yamlNode   `yaml:"root"`
}

type yamlNode struct {
	Path      string     `yaml:"path"`
	SizeBytes uint64     `yaml:"size_bytes"`
	FileCount uint64     `yaml:"file_count"`
	DirCount  uint64     `yaml:"dir_count"`
	Files     []yamlFile `yaml:"files,omitempty"`
	Children  []yamlNode `yaml:"children,omitempty"`
}

type yamlFile struct {
	Path      string `yaml:"path"`
	SizeBytes uint64 `yaml:"size_bytes"`
}

type yamlDisk struct {
	Path       string `yaml:"path"`
	TotalBytes uint64 `yaml:"total_bytes"`
	FreeBytes  uint64 `yaml:"free_bytes"`
	UsedBytes  uint64 `yaml:"used_bytes"`
}

type yamlMeta struct {
	Source    string   `yaml:"source"`
	Cancelled bool     `yaml:"cancelled"`
	Error     string   `yaml:"error,omitempty"`
	Warnings  []string `yaml:"warnings,omitempty"`
}

// YAMLFormatter writes the same content as JSONFormatter in YAML.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	out := yamlOutput{
		Meta: yamlMeta{
			Source:    r.Source,
			Cancelled: r.Cancelled,
			Error:     r.Error,
			Warnings:  r.Warnings,
		},
	}
	if s := r.Summary; s != nil {
		out.Summary = &yamlSummary{
			TotalBytes:   s.TotalBytes,
			TotalHuman:   types.FormatSize(s.TotalBytes),
			FileCount:    s.FileCount,
			DirCount:     s.DirCount,
			DurationMs:   s.DurationMs,
			LargestFiles: yamlFiles(s.LargestFiles),
			Root:         yamlTree(s.Root),
		}
	}
	if d := r.Disk; d != nil {
		out.Disk = &yamlDisk{
			Path:       d.Path,
			TotalBytes: d.TotalBytes,
			FreeBytes:  d.FreeBytes,
			UsedBytes:  d.UsedBytes(),
		}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return err
	}
	return encoder.Close()
}

func yamlFiles(files []types.ScanFile) []yamlFile {
	out := make([]yamlFile, len(files))
	for i, file := range files {
		out[i] = yamlFile{Path: file.Path, SizeBytes: file.SizeBytes}
	}
	return out
}

func yamlTree(node types.ScanNode) yamlNode {
	out := yamlNode{
		Path:      node.Path,
		SizeBytes: node.SizeBytes,
		FileCount: node.FileCount,
		DirCount:  node.DirCount,
		Files:     yamlFiles(node.Files),
	}
	for _, child := range node.Children {
		out.Children = append(out.Children, yamlTree(child))
	}
	return out
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

var _ Formatter = (*YAMLFormatter)(nil)

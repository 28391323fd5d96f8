// Package filter compiles user supplied scan criteria into a matcher that the
// walker consults for every entry. Criteria include and exclude files by
// extension, name substring, path substring, regular expression and size.
package filter

import (
	"errors"
	"sort"
)

// ErrInvalidPattern indicates that an include or exclude regex did not compile.
var ErrInvalidPattern = errors.New("invalid pattern")

// ErrInvalidRange indicates that the minimum size is larger than the maximum.
var ErrInvalidRange = errors.New("invalid size range")

// Spec is the raw, uncompiled filter criteria as received from a client.
type Spec struct {
	IncludeExtensions []string `json:"includeExtensions"`
	ExcludeExtensions []string `json:"excludeExtensions"`
	IncludeNames      []string `json:"includeNames"`
	ExcludeNames      []string `json:"excludeNames"`
	IncludePaths      []string `json:"includePaths"`
	ExcludePaths      []string `json:"excludePaths"`

	IncludeRegex *string `json:"includeRegex,omitempty"`
	ExcludeRegex *string `json:"excludeRegex,omitempty"`

	// MinSizeBytes and MaxSizeBytes are inclusive bounds. Nil means unbounded.
	MinSizeBytes *uint64 `json:"minSizeBytes,omitempty"`
	MaxSizeBytes *uint64 `json:"maxSizeBytes,omitempty"`
}

// IsZero reports whether the spec carries no criteria at all.
func (s Spec) IsZero() bool {
	return len(s.IncludeExtensions) == 0 && len(s.ExcludeExtensions) == 0 &&
		len(s.IncludeNames) == 0 && len(s.ExcludeNames) == 0 &&
		len(s.IncludePaths) == 0 && len(s.ExcludePaths) == 0 &&
		s.IncludeRegex == nil && s.ExcludeRegex == nil &&
		s.MinSizeBytes == nil && s.MaxSizeBytes == nil
}

// TypeGroups maps file type group names to their associated extensions.
// The CLI expands --type flags through this table into IncludeExtensions.
var TypeGroups = map[string][]string{
	"video": {
		"mp4", "mkv", "avi", "mov", "wmv", "flv", "webm", "m4v", "mpeg", "mpg",
	},
	"audio": {
		"mp3", "flac", "wav", "aac", "ogg", "wma", "m4a", "opus", "aiff", "alac",
	},
	"image": {
		"jpg", "jpeg", "png", "gif", "bmp", "tiff", "tif", "webp", "svg", "ico", "heic", "heif", "raw",
	},
	"archive": {
		"zip", "tar", "gz", "bz2", "xz", "7z", "rar", "tgz", "tbz2",
	},
	"document": {
		"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "odt", "ods", "odp", "rtf", "txt", "epub",
	},
	"code": {
		"go", "py", "js", "ts", "java", "c", "cpp", "h", "hpp", "rs", "rb", "php", "swift", "kt", "scala", "cs", "sh",
	},
	"log": {
		"log", "logs",
	},
}

// ErrUnknownTypeGroup indicates a type group name missing from TypeGroups.
var ErrUnknownTypeGroup = errors.New("unknown type group")

// ExpandTypeGroups returns the extensions for the named groups.
func ExpandTypeGroups(groups ...string) ([]string, error) {
	var exts []string
	for _, g := range groups {
		list, ok := TypeGroups[g]
		if !ok {
			return nil, errorf(ErrUnknownTypeGroup, g)
		}
		exts = append(exts, list...)
	}
	return exts, nil
}

// GroupNames returns the known type group names in sorted order.
func GroupNames() []string {
	names := make([]string, 0, len(TypeGroups))
	for name := range TypeGroups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

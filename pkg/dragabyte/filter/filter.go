package filter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Compiled is an immutable, normalized filter. It is safe for concurrent use
// by multiple walker goroutines.
type Compiled struct {
	includeExt   map[string]struct{}
	excludeExt   map[string]struct{}
	includeNames []string
	excludeNames []string
	includePaths []string
	excludePaths []string
	includeRegex *regexp.Regexp
	excludeRegex *regexp.Regexp
	minSize      uint64
	maxSize      uint64
	hasMax       bool

	hasIncludes     bool
	hasFileExcludes bool
	hasDirExcludes  bool
	needsPath       bool
	needsName       bool
	needsExtension  bool
}

// Compile validates and normalizes spec.
//
// It returns ErrInvalidRange when the minimum size exceeds the maximum and
// ErrInvalidPattern when either regex fails to compile.
func Compile(spec Spec) (*Compiled, error) {
	c := &Compiled{
		includeExt:   normalizeExtensions(spec.IncludeExtensions),
		excludeExt:   normalizeExtensions(spec.ExcludeExtensions),
		includeNames: normalizeSubstrings(spec.IncludeNames),
		excludeNames: normalizeSubstrings(spec.ExcludeNames),
		includePaths: normalizeSubstrings(spec.IncludePaths),
		excludePaths: normalizeSubstrings(spec.ExcludePaths),
	}

	if spec.MinSizeBytes != nil {
		c.minSize = *spec.MinSizeBytes
	}
	if spec.MaxSizeBytes != nil {
		c.maxSize = *spec.MaxSizeBytes
		c.hasMax = true
	}
	if c.hasMax && c.minSize > c.maxSize {
		return nil, fmt.Errorf("%w: min %d > max %d", ErrInvalidRange, c.minSize, c.maxSize)
	}

	var err error
	if c.includeRegex, err = compileRegex(spec.IncludeRegex); err != nil {
		return nil, err
	}
	if c.excludeRegex, err = compileRegex(spec.ExcludeRegex); err != nil {
		return nil, err
	}

	c.hasIncludes = len(c.includeExt) > 0 || len(c.includeNames) > 0 ||
		len(c.includePaths) > 0 || c.includeRegex != nil
	c.hasDirExcludes = len(c.excludePaths) > 0 || len(c.excludeNames) > 0 || c.excludeRegex != nil
	c.hasFileExcludes = c.hasDirExcludes || len(c.excludeExt) > 0
	c.needsPath = len(c.excludePaths) > 0 || len(c.includePaths) > 0 ||
		c.includeRegex != nil || c.excludeRegex != nil
	c.needsName = len(c.excludeNames) > 0 || len(c.includeNames) > 0
	c.needsExtension = len(c.includeExt) > 0 || len(c.excludeExt) > 0

	return c, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package level defaults.
func MustCompile(spec Spec) *Compiled {
	c, err := Compile(spec)
	if err != nil {
		panic(err)
	}
	return c
}

// IncludeFile reports whether a file at path with the given size passes the
// filter. Exclude criteria always win over include criteria.
func (c *Compiled) IncludeFile(path string, size uint64) bool {
	if size < c.minSize {
		return false
	}
	if c.hasMax && size > c.maxSize {
		return false
	}
	if !c.hasIncludes && !c.hasFileExcludes {
		return true
	}

	var lowerPath, lowerName, ext string
	if c.needsPath {
		lowerPath = strings.ToLower(path)
	}
	if c.needsName {
		lowerName = strings.ToLower(filepath.Base(path))
	}
	if c.needsExtension {
		ext = extension(path)
	}

	if c.hasFileExcludes {
		if c.excludeRegex != nil && c.excludeRegex.MatchString(lowerPath) {
			return false
		}
		if containsAny(lowerPath, c.excludePaths) {
			return false
		}
		if containsAny(lowerName, c.excludeNames) {
			return false
		}
		if ext != "" {
			if _, ok := c.excludeExt[ext]; ok {
				return false
			}
		}
	}

	if !c.hasIncludes {
		return true
	}
	if c.includeRegex != nil && c.includeRegex.MatchString(lowerPath) {
		return true
	}
	if containsAny(lowerPath, c.includePaths) {
		return true
	}
	if containsAny(lowerName, c.includeNames) {
		return true
	}
	if ext != "" {
		if _, ok := c.includeExt[ext]; ok {
			return true
		}
	}
	return false
}

// SkipDirectory reports whether the directory at path, found while walking
// root, should be pruned together with its subtree. The root itself is never
// skipped and extension excludes never apply to directories.
func (c *Compiled) SkipDirectory(root, path string) bool {
	if !c.hasDirExcludes || path == root {
		return false
	}

	var lowerPath, lowerName string
	if c.excludeRegex != nil || len(c.excludePaths) > 0 {
		lowerPath = strings.ToLower(path)
	}
	if len(c.excludeNames) > 0 {
		lowerName = strings.ToLower(filepath.Base(path))
	}

	if c.excludeRegex != nil && c.excludeRegex.MatchString(lowerPath) {
		return true
	}
	return containsAny(lowerPath, c.excludePaths) || containsAny(lowerName, c.excludeNames)
}

func compileRegex(pattern *string) (*regexp.Regexp, error) {
	if pattern == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*pattern)
	if trimmed == "" {
		return nil, nil
	}
	re, err := regexp.Compile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, trimmed, err)
	}
	return re, nil
}

func normalizeExtensions(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(v), "."))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func normalizeSubstrings(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// extension returns the lower-cased final extension of path without its dot.
// Dotfiles such as ".bashrc" have no extension.
func extension(path string) string {
	name := filepath.Base(path)
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func errorf(sentinel error, value string) error {
	return fmt.Errorf("%w: %q", sentinel, value)
}

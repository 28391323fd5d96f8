package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/filter"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/scanner"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

// scanFlag maps one scan flag to its viper key.
type scanFlag struct {
	name, key string
}

var scanFlags = []scanFlag{
	{"priority", "priority"},
	{"throttle", "throttle"},
	{"ext", "filters.include_ext"},
	{"exclude-ext", "filters.exclude_ext"},
	{"type", "filters.type"},
	{"name", "filters.include_name"},
	{"exclude-name", "filters.exclude_name"},
	{"path", "filters.include_path"},
	{"exclude-path", "filters.exclude_path"},
	{"regex", "filters.include_regex"},
	{"exclude-regex", "filters.exclude_regex"},
	{"min-size", "filters.min_size"},
	{"max-size", "filters.max_size"},
}

// addScanFlags registers the walker options on fs and binds them to viper.
func addScanFlags(fs *pflag.FlagSet) {
	fs.String("priority", "", "priority mode: performance, balanced, low")
	fs.String("throttle", "", "throttle level: off, low, medium, high")
	fs.StringSlice("ext", nil, "only count files with these extensions (e.g. mp4,mkv)")
	fs.StringSlice("exclude-ext", nil, "skip files with these extensions")
	fs.StringSlice("type", nil, "only count file type groups: "+strings.Join(filter.GroupNames(), ", "))
	fs.StringSlice("name", nil, "only count files whose name contains one of these")
	fs.StringSlice("exclude-name", nil, "skip files whose name contains one of these")
	fs.StringSlice("path", nil, "only count files whose path contains one of these")
	fs.StringSlice("exclude-path", nil, "skip entries whose path contains one of these")
	fs.String("regex", "", "only count files whose path matches this regular expression")
	fs.String("exclude-regex", "", "skip entries whose path matches this regular expression")
	fs.String("min-size", "", "minimum file size (e.g. 100M, 1G)")
	fs.String("max-size", "", "maximum file size (e.g. 4G)")

	for _, f := range scanFlags {
		_ = viper.BindPFlag(f.key, fs.Lookup(f.name))
	}
}

// buildOptions assembles scanner options from flags, environment and the
// config file, and compiles them once so bad patterns fail early.
func buildOptions() (scanner.Options, error) {
	opts := scanner.Options{
		PriorityMode:  scanner.PriorityMode(viper.GetString("priority")),
		ThrottleLevel: scanner.ThrottleLevel(viper.GetString("throttle")),
	}

	spec := filter.Spec{
		IncludeExtensions: viper.GetStringSlice("filters.include_ext"),
		ExcludeExtensions: viper.GetStringSlice("filters.exclude_ext"),
		IncludeNames:      viper.GetStringSlice("filters.include_name"),
		ExcludeNames:      viper.GetStringSlice("filters.exclude_name"),
		IncludePaths:      viper.GetStringSlice("filters.include_path"),
		ExcludePaths:      viper.GetStringSlice("filters.exclude_path"),
		IncludeRegex:      optionalString(viper.GetString("filters.include_regex")),
		ExcludeRegex:      optionalString(viper.GetString("filters.exclude_regex")),
	}

	if groups := viper.GetStringSlice("filters.type"); len(groups) > 0 {
		exts, err := filter.ExpandTypeGroups(groups...)
		if err != nil {
			return opts, err
		}
		spec.IncludeExtensions = append(spec.IncludeExtensions, exts...)
	}

	var err error
	if spec.MinSizeBytes, err = optionalSize("min-size", viper.GetString("filters.min_size")); err != nil {
		return opts, err
	}
	if spec.MaxSizeBytes, err = optionalSize("max-size", viper.GetString("filters.max_size")); err != nil {
		return opts, err
	}
	opts.Filters = spec

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	if _, err := scanner.NewConfig(opts); err != nil {
		return opts, err
	}
	return opts, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalSize(flag, s string) (*uint64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := types.ParseSize(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", flag, s, err)
	}
	return &n, nil
}

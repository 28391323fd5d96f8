package main

import (
	"errors"
	"testing"

	"github.com/spf13/viper"

	"github.com/jamesainslie/dragabyte/pkg/dragabyte/filter"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/scanner"
	"github.com/jamesainslie/dragabyte/pkg/dragabyte/types"
)

func TestBuildOptions(t *testing.T) {
	resetViperForTest := func() {
		viper.Reset()
		setDefaults()
	}

	tests := []struct {
		name    string
		setup   func()
		check   func(t *testing.T, opts scanner.Options)
		wantErr error
	}{
		{
			name:  "defaults",
			setup: resetViperForTest,
			check: func(t *testing.T, opts scanner.Options) {
				if opts.PriorityMode != scanner.PriorityBalanced {
					t.Errorf("PriorityMode = %q, want balanced", opts.PriorityMode)
				}
				if opts.ThrottleLevel != scanner.ThrottleOff {
					t.Errorf("ThrottleLevel = %q, want off", opts.ThrottleLevel)
				}
				if !opts.Filters.IsZero() {
					t.Errorf("Filters = %+v, want empty", opts.Filters)
				}
			},
		},
		{
			name: "priority and throttle",
			setup: func() {
				resetViperForTest()
				viper.Set("priority", "low")
				viper.Set("throttle", "high")
			},
			check: func(t *testing.T, opts scanner.Options) {
				if opts.PriorityMode != scanner.PriorityLow || opts.ThrottleLevel != scanner.ThrottleHigh {
					t.Errorf("got %q/%q, want low/high", opts.PriorityMode, opts.ThrottleLevel)
				}
			},
		},
		{
			name: "type group expands into extensions",
			setup: func() {
				resetViperForTest()
				viper.Set("filters.include_ext", []string{"iso"})
				viper.Set("filters.type", []string{"log"})
			},
			check: func(t *testing.T, opts scanner.Options) {
				want := []string{"iso", "log", "logs"}
				got := opts.Filters.IncludeExtensions
				if len(got) != len(want) {
					t.Fatalf("IncludeExtensions = %v, want %v", got, want)
				}
				for i := range want {
					if got[i] != want[i] {
						t.Errorf("IncludeExtensions[%d] = %q, want %q", i, got[i], want[i])
					}
				}
			},
		},
		{
			name: "sizes and regex",
			setup: func() {
				resetViperForTest()
				viper.Set("filters.min_size", "1K")
				viper.Set("filters.max_size", "2M")
				viper.Set("filters.exclude_regex", `\.tmp$`)
			},
			check: func(t *testing.T, opts scanner.Options) {
				f := opts.Filters
				if f.MinSizeBytes == nil || *f.MinSizeBytes != uint64(types.KiB) {
					t.Errorf("MinSizeBytes = %v, want 1024", f.MinSizeBytes)
				}
				if f.MaxSizeBytes == nil || *f.MaxSizeBytes != uint64(2*types.MiB) {
					t.Errorf("MaxSizeBytes = %v, want 2 MiB", f.MaxSizeBytes)
				}
				if f.ExcludeRegex == nil || *f.ExcludeRegex != `\.tmp$` {
					t.Errorf("ExcludeRegex = %v", f.ExcludeRegex)
				}
				if f.IncludeRegex != nil {
					t.Errorf("IncludeRegex = %q, want nil", *f.IncludeRegex)
				}
			},
		},
		{
			name: "unknown priority",
			setup: func() {
				resetViperForTest()
				viper.Set("priority", "turbo")
			},
			wantErr: scanner.ErrInvalidOption,
		},
		{
			name: "unknown type group",
			setup: func() {
				resetViperForTest()
				viper.Set("filters.type", []string{"spreadsheets"})
			},
			wantErr: filter.ErrUnknownTypeGroup,
		},
		{
			name: "bad size",
			setup: func() {
				resetViperForTest()
				viper.Set("filters.min_size", "lots")
			},
			wantErr: types.ErrInvalidSize,
		},
		{
			name: "inverted size range",
			setup: func() {
				resetViperForTest()
				viper.Set("filters.min_size", "10M")
				viper.Set("filters.max_size", "1M")
			},
			wantErr: filter.ErrInvalidRange,
		},
		{
			name: "bad regex",
			setup: func() {
				resetViperForTest()
				viper.Set("filters.include_regex", "([")
			},
			wantErr: filter.ErrInvalidPattern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			opts, err := buildOptions()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("buildOptions() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildOptions() error = %v", err)
			}
			tt.check(t, opts)
		})
	}
	viper.Reset()
}

package filter

import (
	"errors"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want error
	}{
		{name: "min above max", spec: Spec{MinSizeBytes: ptr[uint64](10), MaxSizeBytes: ptr[uint64](5)}, want: ErrInvalidRange},
		{name: "bad include regex", spec: Spec{IncludeRegex: ptr("([a-z")}, want: ErrInvalidPattern},
		{name: "bad exclude regex", spec: Spec{ExcludeRegex: ptr("*foo")}, want: ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.spec)
			if !errors.Is(err, tt.want) {
				t.Errorf("Compile() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompile_EqualBoundsAllowed(t *testing.T) {
	c, err := Compile(Spec{MinSizeBytes: ptr[uint64](5), MaxSizeBytes: ptr[uint64](5)})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !c.IncludeFile("/a/b", 5) {
		t.Error("size equal to both bounds should be included")
	}
	if c.IncludeFile("/a/b", 4) || c.IncludeFile("/a/b", 6) {
		t.Error("sizes outside bounds should be excluded")
	}
}

func TestCompile_Normalization(t *testing.T) {
	c := MustCompile(Spec{
		IncludeExtensions: []string{" .MP4 ", "", "."},
		ExcludeNames:      []string{"  ", " Cache "},
	})

	if len(c.includeExt) != 1 {
		t.Fatalf("includeExt = %v, want one entry", c.includeExt)
	}
	if _, ok := c.includeExt["mp4"]; !ok {
		t.Errorf("includeExt = %v, want mp4", c.includeExt)
	}
	if len(c.excludeNames) != 1 || c.excludeNames[0] != "cache" {
		t.Errorf("excludeNames = %v, want [cache]", c.excludeNames)
	}
	if !c.hasIncludes || !c.hasFileExcludes || !c.hasDirExcludes {
		t.Error("flags not derived from normalized criteria")
	}
}

func TestCompile_EmptyCriteriaHaveNoFlags(t *testing.T) {
	c := MustCompile(Spec{IncludeExtensions: []string{""}, IncludeRegex: ptr("   ")})
	if c.hasIncludes || c.hasFileExcludes || c.needsPath || c.needsExtension {
		t.Errorf("empty criteria should not set flags: %+v", c)
	}
}

func TestIncludeFile(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		path string
		size uint64
		want bool
	}{
		{name: "no criteria", spec: Spec{}, path: "/x/a.txt", size: 1, want: true},
		{name: "below min", spec: Spec{MinSizeBytes: ptr[uint64](100)}, path: "/x/a", size: 99, want: false},
		{name: "above max", spec: Spec{MaxSizeBytes: ptr[uint64](100)}, path: "/x/a", size: 101, want: false},
		{name: "include extension match", spec: Spec{IncludeExtensions: []string{"txt"}}, path: "/x/A.TXT", size: 1, want: true},
		{name: "include extension miss", spec: Spec{IncludeExtensions: []string{"txt"}}, path: "/x/a.log", size: 1, want: false},
		{name: "last extension only", spec: Spec{IncludeExtensions: []string{"tar"}}, path: "/x/a.tar.gz", size: 1, want: false},
		{name: "dotfile has no extension", spec: Spec{IncludeExtensions: []string{"bashrc"}}, path: "/x/.bashrc", size: 1, want: false},
		{name: "include name substring", spec: Spec{IncludeNames: []string{"Report"}}, path: "/x/q3-report.pdf", size: 1, want: true},
		{name: "include path substring", spec: Spec{IncludePaths: []string{"/Projects/"}}, path: "/home/projects/a", size: 1, want: true},
		{name: "include regex lowercase path", spec: Spec{IncludeRegex: ptr(`\.log$`)}, path: "/VAR/APP.LOG", size: 1, want: true},
		{name: "exclude extension", spec: Spec{ExcludeExtensions: []string{".tmp"}}, path: "/x/a.tmp", size: 1, want: false},
		{name: "exclude name", spec: Spec{ExcludeNames: []string{"thumbs"}}, path: "/x/Thumbs.db", size: 1, want: false},
		{name: "exclude path", spec: Spec{ExcludePaths: []string{"node_modules"}}, path: "/p/node_modules/x.js", size: 1, want: false},
		{name: "exclude regex", spec: Spec{ExcludeRegex: ptr(`^/tmp/`)}, path: "/tmp/a", size: 1, want: false},
		{name: "exclude beats include", spec: Spec{IncludeExtensions: []string{"txt"}, ExcludeNames: []string{"secret"}}, path: "/x/secret.txt", size: 1, want: false},
		{name: "excludes only accept others", spec: Spec{ExcludeExtensions: []string{"tmp"}}, path: "/x/a.txt", size: 1, want: true},
		{name: "any include suffices", spec: Spec{IncludeExtensions: []string{"mp4"}, IncludeNames: []string{"notes"}}, path: "/x/notes.md", size: 1, want: true},
		{name: "zero size accepted", spec: Spec{}, path: "/x/empty", size: 0, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := MustCompile(tt.spec)
			if got := c.IncludeFile(tt.path, tt.size); got != tt.want {
				t.Errorf("IncludeFile(%q, %d) = %v, want %v", tt.path, tt.size, got, tt.want)
			}
		})
	}
}

func TestSkipDirectory(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		path string
		want bool
	}{
		{name: "no criteria", spec: Spec{}, path: "/r/a", want: false},
		{name: "root never skipped", spec: Spec{ExcludePaths: []string{"/r"}}, path: "/r", want: false},
		{name: "exclude name", spec: Spec{ExcludeNames: []string{".git"}}, path: "/r/.GIT", want: true},
		{name: "exclude path", spec: Spec{ExcludePaths: []string{"build/"}}, path: "/r/build/out", want: true},
		{name: "exclude regex", spec: Spec{ExcludeRegex: ptr(`cache$`)}, path: "/r/Cache", want: true},
		{name: "extension excludes ignored", spec: Spec{ExcludeExtensions: []string{"d"}}, path: "/r/conf.d", want: false},
		{name: "includes never skip", spec: Spec{IncludeNames: []string{"zzz"}}, path: "/r/a", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := MustCompile(tt.spec)
			if got := c.SkipDirectory("/r", tt.path); got != tt.want {
				t.Errorf("SkipDirectory(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestExpandTypeGroups(t *testing.T) {
	exts, err := ExpandTypeGroups("log", "audio")
	if err != nil {
		t.Fatalf("ExpandTypeGroups() error = %v", err)
	}
	if len(exts) != len(TypeGroups["log"])+len(TypeGroups["audio"]) {
		t.Errorf("ExpandTypeGroups() = %v", exts)
	}

	if _, err := ExpandTypeGroups("nope"); !errors.Is(err, ErrUnknownTypeGroup) {
		t.Errorf("ExpandTypeGroups(nope) error = %v, want ErrUnknownTypeGroup", err)
	}
}

func TestGroupNames_Sorted(t *testing.T) {
	names := GroupNames()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("GroupNames() not sorted: %v", names)
		}
	}
}

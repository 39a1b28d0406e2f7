package internal

import (
	"reflect"
	"testing"
)

func TestFolderSet(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{
			name:  "empty input",
			paths: nil,
			want:  []string{},
		},
		{
			name:  "single nested path",
			paths: []string{"/a/b/c.py"},
			want:  []string{"/", "/a", "/a/b"},
		},
		{
			name:  "overlapping paths deduplicate",
			paths: []string{"/a/b/c.py", "/a/b/d.py", "/a/e.py"},
			want:  []string{"/", "/a", "/a/b"},
		},
		{
			name:  "file at root",
			paths: []string{"/top.py"},
			want:  []string{"/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FolderSet(tt.paths)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FolderSet(%v) = %v, want %v", tt.paths, got, tt.want)
			}
		})
	}
}

func TestFolderSet_Idempotent(t *testing.T) {
	paths := []string{"/x/y/z.go", "/x/w.go"}
	first := FolderSet(paths)
	second := FolderSet(paths)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected stable output, got %v then %v", first, second)
	}
}

func TestContextSummaryPaths(t *testing.T) {
	s := ContextSummary{
		Features:     []string{"/a.py", "/b.py"},
		AutoFeatures: []string{"/c.py"},
	}
	got := s.Paths()
	if len(got) != 3 {
		t.Fatalf("Expected 3 paths, got %d", len(got))
	}
	if got[0] != "/a.py" || got[2] != "/c.py" {
		t.Errorf("Expected features before auto features, got %v", got)
	}
}

package sync

import (
	"errors"
	"testing"
)

var (
	_ Strategy = Replace{}
	_ Strategy = DirectoryReplace{}
	_ Renderer = DependencyMapMerge{}
	_ Renderer = ManagedSectionOverlay{}
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{"replace", KindReplace, false},
		{"Directory-Replace", KindDirectoryReplace, false},
		{"dependency_map_merge", KindDependencyMapMerge, false},
		{"  managed-section-overlay ", KindManagedSectionOverlay, false},
		{"symlink", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownKind) {
					t.Errorf("ParseKind(%q) error = %v, want ErrUnknownKind", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKind(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestKind_Description(t *testing.T) {
	for _, k := range AllKinds() {
		if !k.IsValid() {
			t.Errorf("AllKinds() returned invalid kind %q", k)
		}
		if k.Description() == "Unknown strategy" {
			t.Errorf("kind %q has no description", k)
		}
	}
	if Kind("bogus").Description() != "Unknown strategy" {
		t.Error("unknown kind should have the fallback description")
	}
}

func TestStrategy_Kind(t *testing.T) {
	strategies := []Strategy{Replace{}, DirectoryReplace{}, DependencyMapMerge{}, ManagedSectionOverlay{}}
	for i, s := range strategies {
		if s.Kind() != AllKinds()[i] {
			t.Errorf("strategy %T reports kind %q, want %q", s, s.Kind(), AllKinds()[i])
		}
	}
}

package sync

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names a merge strategy in a manifest.
type Kind string

const (
	// KindReplace copies the source file over the destination.
	KindReplace Kind = "replace"

	// KindDirectoryReplace mirrors every file of the source tree into the destination tree.
	KindDirectoryReplace Kind = "directory-replace"

	// KindDependencyMapMerge merges named dependency maps into the destination document.
	KindDependencyMapMerge Kind = "dependency-map-merge"

	// KindManagedSectionOverlay keeps destination fields but forces one managed key to the source value.
	KindManagedSectionOverlay Kind = "managed-section-overlay"
)

// ErrUnknownKind is returned for a strategy name that is not recognized.
var ErrUnknownKind = errors.New("unknown strategy")

// IsValid returns true if the kind is recognized.
func (k Kind) IsValid() bool {
	switch k {
	case KindReplace, KindDirectoryReplace, KindDependencyMapMerge, KindManagedSectionOverlay:
		return true
	default:
		return false
	}
}

// AllKinds returns all supported strategy kinds.
func AllKinds() []Kind {
	return []Kind{KindReplace, KindDirectoryReplace, KindDependencyMapMerge, KindManagedSectionOverlay}
}

// ParseKind converts a strategy name to a Kind. Matching ignores case and
// accepts underscores in place of dashes.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Description returns a human-readable description of the kind.
func (k Kind) Description() string {
	switch k {
	case KindReplace:
		return "Replace the destination file with the source file"
	case KindDirectoryReplace:
		return "Copy every source file into the destination directory, keeping local extras"
	case KindDependencyMapMerge:
		return "Merge dependency maps, source versions win"
	case KindManagedSectionOverlay:
		return "Keep local settings but track the managed section from the source"
	default:
		return "Unknown strategy"
	}
}

// Strategy applies one kind of merge policy to a source/destination pair.
type Strategy interface {
	// Kind returns the manifest name of the strategy.
	Kind() Kind

	// Apply brings dst up to date with src.
	Apply(src, dst string) error
}

// Renderer is implemented by strategies whose output is computed from both
// sides. Render returns the bytes Apply would write without writing them.
type Renderer interface {
	Strategy
	Render(src, dst string) ([]byte, error)
}

package sync

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidManifest is returned by Manifest.Validate.
var ErrInvalidManifest = errors.New("invalid manifest")

// Entry is one artifact the engine knows how to synchronize.
type Entry struct {
	// Path is the slash-separated path relative to both roots.
	Path string `yaml:"path"`

	// Kind selects the merge strategy.
	Kind Kind `yaml:"strategy"`

	// Critical marks entries whose failure must be surfaced to the caller.
	Critical bool `yaml:"critical"`
}

// IsDirectory reports whether the entry names a directory tree.
func (e Entry) IsDirectory() bool {
	return e.Kind == KindDirectoryReplace
}

// Manifest is the ordered list of entries processed by a run.
type Manifest []Entry

// DefaultManifest returns the artifacts distributed from the canonical root.
func DefaultManifest() Manifest {
	return Manifest{
		{Path: "AGENTS.md", Kind: KindReplace, Critical: true},
		{Path: ".agents/commands", Kind: KindDirectoryReplace, Critical: false},
		{Path: ".agents/hooks", Kind: KindDirectoryReplace, Critical: true},
		{Path: "package.json", Kind: KindDependencyMapMerge, Critical: false},
		{Path: ".agents/settings.json", Kind: KindManagedSectionOverlay, Critical: true},
	}
}

// Validate rejects entries that are empty, absolute, escape the roots,
// use an unknown strategy, or repeat a path.
func (m Manifest) Validate() error {
	var errs []error
	for i, err := range m.problems() {
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, errors.Join(errs...))
	}
	return nil
}

// problems returns one error slot per entry, nil for a usable entry. Of two
// entries naming the same path, only the later one is reported.
func (m Manifest) problems() []error {
	out := make([]error, len(m))
	seen := make(map[string]bool, len(m))

	for i, e := range m {
		out[i] = e.check()
		if strings.TrimSpace(e.Path) == "" {
			continue
		}

		key := path.Clean(e.Path)
		if seen[key] && out[i] == nil {
			out[i] = fmt.Errorf("duplicate path %q", e.Path)
		}
		seen[key] = true
	}
	return out
}

// check reports what makes a single entry unusable, ignoring its siblings.
func (e Entry) check() error {
	var errs []error

	p := e.Path
	switch {
	case strings.TrimSpace(p) == "":
		return errors.New("empty path")
	case path.IsAbs(p) || strings.HasPrefix(p, "\\") || (len(p) > 1 && p[1] == ':'):
		errs = append(errs, fmt.Errorf("path %q must be relative", p))
	case path.Clean(p) == "." || path.Clean(p) == ".." || strings.HasPrefix(path.Clean(p), "../"):
		errs = append(errs, fmt.Errorf("path %q escapes the root", p))
	}
	if !e.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind))
	}
	return errors.Join(errs...)
}

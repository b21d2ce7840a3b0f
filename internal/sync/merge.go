package sync

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/klauern/canonsync/internal/document"
	"github.com/klauern/canonsync/internal/logging"
)

// DefaultDependencyKeys are the maps merged by DependencyMapMerge when none are configured.
var DefaultDependencyKeys = []string{"dependencies", "devDependencies"}

// DefaultManagedKey is the section tracked by ManagedSectionOverlay when none is configured.
const DefaultManagedKey = "hooks"

// readSource loads the canonical document. A missing or unparseable source is an error.
func readSource(fsys afero.Fs, src string) (document.Object, error) {
	obj, exists, err := document.Read(fsys, src)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("source %q does not exist", src)
	}
	return obj, nil
}

// readDestination loads the destination document. A malformed destination is
// reported as absent so the merge can rebuild it; the caller has a backup.
func readDestination(fsys afero.Fs, dst string) (document.Object, bool, error) {
	obj, exists, err := document.Read(fsys, dst)
	if errors.Is(err, document.ErrMalformed) {
		logging.Warn("destination is not a valid document, rebuilding it",
			logging.Path(dst),
			logging.Err(err),
		)
		return document.Object{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("destination: %w", err)
	}
	if obj == nil {
		obj = document.Object{}
	}
	return obj, exists, nil
}

// DependencyMapMerge merges named maps (package name -> version) from the
// source document into the destination document. Within each map the source
// wins on collisions and destination-only keys survive. Other destination
// fields are left untouched.
type DependencyMapMerge struct {
	Fs afero.Fs

	// Keys are the top-level maps to merge. Defaults to DefaultDependencyKeys.
	Keys []string
}

// Kind implements Strategy.
func (DependencyMapMerge) Kind() Kind { return KindDependencyMapMerge }

func (s DependencyMapMerge) keys() []string {
	if len(s.Keys) == 0 {
		return DefaultDependencyKeys
	}
	return s.Keys
}

// Merge returns dest with every configured map of source merged in.
func (s DependencyMapMerge) Merge(source, dest document.Object) (document.Object, error) {
	merged := document.Clone(dest)

	for _, key := range s.keys() {
		raw, ok := source[key]
		if !ok || raw == nil {
			continue
		}
		srcMap, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: source %q is %T, not a map", document.ErrMalformed, key, raw)
		}

		out := make(map[string]any, len(srcMap))
		if dstMap, ok := dest[key].(map[string]any); ok {
			for name, version := range dstMap {
				out[name] = version
			}
		}
		for name, version := range srcMap {
			out[name] = version
		}
		merged[key] = out
	}

	return merged, nil
}

// Render implements Renderer.
func (s DependencyMapMerge) Render(src, dst string) ([]byte, error) {
	source, err := readSource(s.Fs, src)
	if err != nil {
		return nil, err
	}
	dest, _, err := readDestination(s.Fs, dst)
	if err != nil {
		return nil, err
	}

	merged, err := s.Merge(source, dest)
	if err != nil {
		return nil, err
	}
	return document.Encode(document.FormatFor(dst), merged)
}

// Apply implements Strategy.
func (s DependencyMapMerge) Apply(src, dst string) error {
	data, err := s.Render(src, dst)
	if err != nil {
		return err
	}
	return writeFile(s.Fs, dst, data)
}

// ManagedSectionOverlay keeps destination-local settings while one managed
// key always tracks the source. A destination that does not exist yet
// receives the entire source document.
type ManagedSectionOverlay struct {
	Fs afero.Fs

	// Key is the managed top-level key. Defaults to DefaultManagedKey.
	Key string
}

// Kind implements Strategy.
func (ManagedSectionOverlay) Kind() Kind { return KindManagedSectionOverlay }

func (s ManagedSectionOverlay) key() string {
	if s.Key == "" {
		return DefaultManagedKey
	}
	return s.Key
}

// Overlay computes the overlaid document. When exists is false the result is
// the full source. Otherwise destination fields override source fields at the
// top level, and the managed key is then forced to the source value (or
// removed when the source has none).
func (s ManagedSectionOverlay) Overlay(source, dest document.Object, exists bool) document.Object {
	base := document.Clone(source)
	if exists {
		for k, v := range dest {
			base[k] = v
		}
	}

	key := s.key()
	if v, ok := source[key]; ok {
		base[key] = v
	} else {
		delete(base, key)
	}
	return base
}

// Render implements Renderer.
func (s ManagedSectionOverlay) Render(src, dst string) ([]byte, error) {
	source, err := readSource(s.Fs, src)
	if err != nil {
		return nil, err
	}
	dest, exists, err := readDestination(s.Fs, dst)
	if err != nil {
		return nil, err
	}

	return document.Encode(document.FormatFor(dst), s.Overlay(source, dest, exists))
}

// Apply implements Strategy.
func (s ManagedSectionOverlay) Apply(src, dst string) error {
	data, err := s.Render(src, dst)
	if err != nil {
		return err
	}
	return writeFile(s.Fs, dst, data)
}

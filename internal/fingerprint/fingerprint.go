// Package fingerprint computes content identities for files and directory trees.
//
// A file fingerprint is the MD5 digest of its bytes. A tree fingerprint folds
// the sorted (relative path, file fingerprint) pairs of every regular file
// below a root into a single digest, so it does not depend on traversal order
// and changes whenever any contained path or content changes.
package fingerprint

import (
	"crypto/md5" // #nosec G501 - content identity, not a security boundary
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// Size is the digest length in bytes.
const Size = md5.Size

// Fingerprint is a content digest. The zero value is Absent and never equals
// the fingerprint of real content, including empty content.
type Fingerprint struct {
	sum     [Size]byte
	present bool
}

// Absent is the fingerprint of a path that does not exist.
var Absent Fingerprint

// Present reports whether f identifies existing content.
func (f Fingerprint) Present() bool {
	return f.present
}

// Sum returns the raw digest bytes.
func (f Fingerprint) Sum() [Size]byte {
	return f.sum
}

func (f Fingerprint) String() string {
	if !f.present {
		return "absent"
	}
	return hex.EncodeToString(f.sum[:])
}

// Bytes returns the fingerprint of in-memory content.
func Bytes(data []byte) Fingerprint {
	return Fingerprint{sum: md5.Sum(data), present: true} // #nosec G401
}

// Parse decodes the String form of a fingerprint.
func Parse(s string) (Fingerprint, error) {
	if s == "absent" || s == "" {
		return Absent, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != Size {
		return Absent, fmt.Errorf("invalid fingerprint %q", s)
	}
	f := Fingerprint{present: true}
	copy(f.sum[:], raw)
	return f, nil
}

// Hasher fingerprints paths on a filesystem.
type Hasher struct {
	// Fs is the filesystem to read from.
	Fs afero.Fs
	// Exclude holds doublestar patterns matched against slash-separated paths
	// relative to a tree root. Matching files do not contribute to Tree.
	Exclude []string
}

// New returns a Hasher over fsys.
func New(fsys afero.Fs, exclude ...string) *Hasher {
	return &Hasher{Fs: fsys, Exclude: exclude}
}

// File returns the fingerprint of the whole file at path, or Absent if it does not exist.
func (h *Hasher) File(path string) (Fingerprint, error) {
	f, err := h.Fs.Open(path)
	if os.IsNotExist(err) {
		return Absent, nil
	}
	if err != nil {
		return Absent, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	digest := md5.New() // #nosec G401
	if _, err := io.Copy(digest, f); err != nil {
		return Absent, fmt.Errorf("failed to read %q: %w", path, err)
	}

	fp := Fingerprint{present: true}
	copy(fp.sum[:], digest.Sum(nil))
	return fp, nil
}

type treeFile struct {
	rel string
	fp  Fingerprint
}

// Tree returns the fingerprint of the directory tree rooted at root, or Absent
// if root does not exist. Only regular files contribute.
func (h *Hasher) Tree(root string) (Fingerprint, error) {
	info, err := h.Fs.Stat(root)
	if os.IsNotExist(err) {
		return Absent, nil
	}
	if err != nil {
		return Absent, fmt.Errorf("failed to stat %q: %w", root, err)
	}
	if !info.IsDir() {
		return Absent, fmt.Errorf("%q is not a directory", root)
	}

	rels, err := h.Files(root)
	if err != nil {
		return Absent, err
	}
	return h.Subset(root, rels)
}

// Subset fingerprints only the listed slash-relative files under root, the
// same way Tree does. It returns Absent if any listed file is missing, so
// Subset(dst, Files(src)) equals Tree(src) exactly when every source file is
// present in dst with the same content.
func (h *Hasher) Subset(root string, rels []string) (Fingerprint, error) {
	files := make([]treeFile, 0, len(rels))
	for _, rel := range rels {
		fp, err := h.File(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return Absent, err
		}
		if !fp.Present() {
			return Absent, nil
		}
		files = append(files, treeFile{rel: rel, fp: fp})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })

	digest := md5.New() // #nosec G401
	for _, tf := range files {
		_, _ = io.WriteString(digest, tf.rel)
		_, _ = digest.Write([]byte{0})
		sum := tf.fp.Sum()
		_, _ = digest.Write(sum[:])
	}

	fp := Fingerprint{present: true}
	copy(fp.sum[:], digest.Sum(nil))
	return fp, nil
}

// Files returns the slash-separated relative paths of the regular files under
// root that Tree would include, in sorted order.
func (h *Hasher) Files(root string) ([]string, error) {
	var rels []string
	err := afero.Walk(h.Fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if h.Excluded(rel) {
			return nil
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %q: %w", root, err)
	}
	sort.Strings(rels)
	return rels, nil
}

// Excluded reports whether rel matches any exclude pattern.
func (h *Hasher) Excluded(rel string) bool {
	for _, pattern := range h.Exclude {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// Package validation provides pre-sync checks of the source and destination roots.
package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/klauern/canonsync/internal/util"
)

// Error represents a validation failure with context.
type Error struct {
	// Field is the name of the root or setting that failed validation
	Field string
	// Message describes the validation failure
	Message string
	// Err is the underlying error (if any)
	Err error
}

// Error returns a formatted validation error message.
func (ve *Error) Error() string {
	if ve.Err != nil {
		return fmt.Sprintf("validation failed for %q: %s: %v", ve.Field, ve.Message, ve.Err)
	}
	return fmt.Sprintf("validation failed for %q: %s", ve.Field, ve.Message)
}

// Unwrap returns the underlying error for errors.Is/As.
func (ve *Error) Unwrap() error {
	return ve.Err
}

// Errors collects multiple validation errors.
type Errors []error

// Error returns a formatted error message for all validation failures.
func (ve Errors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	return fmt.Sprintf("%d validation errors:\n- %s", len(ve), errors.Join(ve...))
}

// Options configures validation behavior.
type Options struct {
	// RequireWritePermission checks that the destination root is writable
	RequireWritePermission bool
}

// DefaultOptions returns the default validation options.
func DefaultOptions() Options {
	return Options{
		RequireWritePermission: true,
	}
}

// Result contains the outcome of a validation check.
type Result struct {
	// Valid indicates whether all validations passed
	Valid bool
	// Warnings contains non-fatal validation issues
	Warnings []string
	// Errors contains validation failures that prevent the operation
	Errors []error
}

// AddError adds an error to the validation result.
func (r *Result) AddError(err error) {
	r.Valid = false
	r.Errors = append(r.Errors, err)
}

// AddWarning adds a warning to the validation result.
func (r *Result) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns the combined validation error message.
func (r *Result) Error() error {
	if !r.HasErrors() {
		return nil
	}
	if len(r.Errors) == 1 {
		return r.Errors[0]
	}
	return Errors(r.Errors)
}

// Summary returns a human-readable summary of the validation result.
func (r *Result) Summary() string {
	if r.Valid && len(r.Warnings) == 0 {
		return "All validations passed"
	}
	var msg string
	if r.Valid {
		msg = "Validation passed with warnings"
	} else {
		msg = "Validation failed"
	}
	if len(r.Warnings) > 0 {
		msg += fmt.Sprintf(" (%d warning(s))", len(r.Warnings))
	}
	return msg
}

// ValidateRoots checks the source and destination roots before a run.
//
// A missing source root is only a warning, since every entry is then skipped.
// A missing destination root is created by the run. A root that exists but is
// not a directory is an error, as is an unwritable destination when
// opts.RequireWritePermission is set.
func ValidateRoots(fsys afero.Fs, source, dest string, opts Options) *Result {
	result := &Result{Valid: true}

	sourceExists, err := validateRoot(fsys, source, "source root")
	switch {
	case err != nil:
		result.AddError(err)
	case !sourceExists:
		result.AddWarning(fmt.Sprintf("source root %s does not exist; every entry will be skipped", source))
	}

	destExists, err := validateRoot(fsys, dest, "destination root")
	switch {
	case err != nil:
		result.AddError(err)
	case !destExists:
		result.AddWarning(fmt.Sprintf("destination root %s does not exist and will be created", dest))
	}

	if result.HasErrors() {
		return result
	}

	switch {
	case util.SamePath(source, dest):
		result.AddWarning("destination is the canonical source; nothing will be synced")
	case isWithin(dest, source):
		result.AddWarning(fmt.Sprintf("destination %s is inside the source root", dest))
	case isWithin(source, dest):
		result.AddWarning(fmt.Sprintf("source %s is inside the destination root", source))
	}

	if opts.RequireWritePermission && !util.SamePath(source, dest) {
		if err := validateWritePermission(fsys, dest); err != nil {
			result.AddError(err)
		}
	}

	return result
}

// validateRoot reports whether path exists, failing if it is not a directory.
func validateRoot(fsys afero.Fs, path, field string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, &Error{Field: field, Message: "path cannot be empty"}
	}

	info, err := fsys.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, &Error{
			Field:   field,
			Message: fmt.Sprintf("cannot access path: %s", path),
			Err:     err,
		}
	}
	if !info.IsDir() {
		return true, &Error{
			Field:   field,
			Message: fmt.Sprintf("path is not a directory: %s", path),
		}
	}
	return true, nil
}

// validateWritePermission checks that files can be created in path, or in its
// nearest existing ancestor when path does not exist yet.
func validateWritePermission(fsys afero.Fs, path string) error {
	dir := path
	for {
		if _, err := fsys.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	testFile := filepath.Join(dir, ".canonsync-write-test")
	f, err := fsys.Create(testFile)
	if err != nil {
		return &Error{
			Field:   "write permission",
			Message: fmt.Sprintf("destination is not writable: %s", dir),
			Err:     err,
		}
	}
	_ = f.Close()
	_ = fsys.Remove(testFile)

	return nil
}

// isWithin reports whether path lies strictly inside root.
func isWithin(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

package docio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/schemasan/internal/value"
)

var (
	// ErrUnreadable is returned when the source path is empty, missing,
	// a directory, or cannot be read.
	ErrUnreadable = errors.New("source unreadable")

	// ErrMalformed is returned when the source content is not a single
	// well-formed JSON value.
	ErrMalformed = errors.New("source is not well-formed JSON")

	// ErrUnwritable is returned when the destination path is empty or the
	// document cannot be persisted there.
	ErrUnwritable = errors.New("destination unwritable")
)

// Loader reads and parses a document.
// On any failure it returns a nil Value and an error; it never panics.
type Loader interface {
	Load(path string) (value.Value, error)
}

// Writer serializes and persists a document.
// On failure no file is left at path.
type Writer interface {
	Store(doc value.Value, path string) error
}

// FileLoader loads JSON documents from the local filesystem.
type FileLoader struct{}

var _ Loader = FileLoader{}

// Load reads path and parses it as JSON.
func (FileLoader) Load(path string) (value.Value, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrUnreadable)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	v, err := value.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}
	return v, nil
}

// FileWriter writes JSON documents to the local filesystem.
type FileWriter struct {
	// Indent, when non-empty, pretty-prints the output with this indent.
	// Empty writes compact JSON.
	Indent string

	// Perm is the mode of the created file. Zero means 0644.
	Perm os.FileMode
}

var _ Writer = FileWriter{}

// Store writes doc to path atomically: the bytes go to a temporary file in
// the destination directory which is then renamed over path. If any step
// fails the temporary file is removed and path is left as it was.
func (w FileWriter) Store(doc value.Value, path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrUnwritable)
	}

	data, err := w.encode(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	perm := w.Perm
	if perm == 0 {
		perm = 0644
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnwritable, err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("%w: %w", ErrUnwritable, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnwritable, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("%w: %w", ErrUnwritable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnwritable, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %w", ErrUnwritable, err)
	}

	committed = true
	return nil
}

func (w FileWriter) encode(doc value.Value) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("no document")
	}
	if w.Indent == "" {
		return value.Marshal(doc)
	}
	data, err := value.MarshalIndent(doc, "", w.Indent)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

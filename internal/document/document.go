// Package document provides an editor buffer backed by an afero file system.
//
// Document is the buffer type the autosave command line hands to the scratch
// lifecycle. Its content lives in memory and is written to its path on Save.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ErrNoPath is returned when saving or reloading a document without a path.
var ErrNoPath = errors.New("document has no path")

const filePerm = 0o644

// Document represents an open buffer with an optional backing file.
type Document struct {
	mu sync.RWMutex

	id       string
	fs       afero.Fs
	path     string
	content  []byte
	scratch  bool
	modified bool

	// exclusive makes the next Save create the file and fail if it exists.
	exclusive bool
}

// New creates an empty, untitled document.
func New(fsys afero.Fs) *Document {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Document{
		id: uuid.NewString(),
		fs: fsys,
	}
}

// Open loads the file at path into a new document.
func Open(fsys afero.Fs, path string) (*Document, error) {
	d := New(fsys)
	d.path = filepath.Clean(path)
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// ID returns the document's unique identifier.
func (d *Document) ID() string {
	return d.id
}

// Name returns the display name (file name or "Untitled").
func (d *Document) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.path == "" {
		return "Untitled"
	}
	return filepath.Base(d.path)
}

// Path returns the backing file path, or "" for an untitled document.
func (d *Document) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

// IsScratch reports whether the document is a throwaway view.
func (d *Document) IsScratch() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scratch
}

// SetScratch marks the document as a throwaway view.
func (d *Document) SetScratch(scratch bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scratch = scratch
}

// IsModified reports whether the content differs from the last save.
func (d *Document) IsModified() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.modified
}

// Len returns the content length in bytes.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.content)
}

// Text returns the full content.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return string(d.content)
}

// SetText replaces the content.
func (d *Document) SetText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = []byte(text)
	d.modified = true
}

// Append adds text at the end of the content.
func (d *Document) Append(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = append(d.content, text...)
	d.modified = true
}

// InsertAtStart inserts text before the current content.
func (d *Document) InsertAtStart(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf := make([]byte, 0, len(text)+len(d.content))
	buf = append(buf, text...)
	buf = append(buf, d.content...)
	d.content = buf
	d.modified = true
	return nil
}

// Retarget points the document at path without writing. The next Save
// creates the file and fails if something already exists there.
func (d *Document) Retarget(path string) error {
	if path == "" {
		return ErrNoPath
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.path = filepath.Clean(path)
	d.exclusive = true
	d.modified = true
	return nil
}

// Save writes the content to the document's path.
func (d *Document) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.path == "" {
		return ErrNoPath
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if d.exclusive {
		flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	f, err := d.fs.OpenFile(d.path, flag, filePerm)
	if err != nil {
		return fmt.Errorf("opening %s: %w", d.path, err)
	}
	if _, err := f.Write(d.content); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", d.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", d.path, err)
	}

	d.exclusive = false
	d.modified = false
	return nil
}

// Reload replaces the content with what is on disk.
func (d *Document) Reload() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.path == "" {
		return ErrNoPath
	}

	data, err := afero.ReadFile(d.fs, d.path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", d.path, err)
	}

	d.content = data
	d.exclusive = false
	d.modified = false
	return nil
}

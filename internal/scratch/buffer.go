package scratch

// Buffer is the view of an editor buffer the Manager works with.
// Hosts adapt their own document type to it.
type Buffer interface {
	// Path returns the backing file path, or "" when the buffer has none.
	Path() string

	// IsScratch reports whether the host treats the buffer as a throwaway
	// view that is never saved (output panels, consoles). Such buffers are
	// never auto-saved.
	IsScratch() bool

	// Len returns the content length in bytes.
	Len() int

	// Text returns the full content.
	Text() string

	// Retarget points the buffer at a new backing path without writing.
	Retarget(path string) error

	// Save persists the content to the backing path.
	Save() error

	// InsertAtStart inserts text before the current content.
	InsertAtStart(text string) error
}

// TrackedFile is a scratch file the Manager created and is still
// responsible for cleaning up.
type TrackedFile struct {
	// Path is the absolute path of the file.
	Path string

	// InsertedTimestamp is the timestamp line written at the top of the
	// file, without its newline. Empty when no timestamp was inserted.
	InsertedTimestamp string
}

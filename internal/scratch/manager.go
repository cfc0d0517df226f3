package scratch

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/metric"

	"github.com/dshills/autosave/internal/logging"
)

const (
	// permissionProbeName is created and removed in the save directory to
	// verify it is writable before any buffer state changes.
	permissionProbeName = ".autosave_probe"

	// lockFileName guards destination reservation across processes.
	lockFileName = ".autosave.lock"

	dirPerm = 0o755
)

// Manager tracks the scratch files it created and decides when to create
// and remove them.
//
// All methods are safe for concurrent use; each read-modify-write of the
// tracking map happens under a single mutex.
type Manager struct {
	mu      sync.Mutex
	fs      afero.Fs
	tracked map[string]TrackedFile

	logger  *logging.Logger
	debug   bool
	now     func() time.Time
	dirLock bool
	meters  metric.MeterProvider
	inst    *instruments
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Debug messages are only written when the
// logger's level allows them; see WithDebug.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithDebug enables debug logging of every lifecycle step.
func WithDebug(enable bool) Option {
	return func(m *Manager) {
		m.debug = enable
	}
}

// WithClock sets the time source used by AutoSave.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithDirLock serialises destination reservation with other processes by
// holding an exclusive file lock in the save directory. It requires the
// Manager's file system to be the OS file system.
func WithDirLock(enable bool) Option {
	return func(m *Manager) {
		m.dirLock = enable
	}
}

// WithMeterProvider sets the MeterProvider for the Manager's counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(m *Manager) {
		m.meters = mp
	}
}

// New creates a Manager operating on fsys. A nil fsys uses the OS file
// system.
func New(fsys afero.Fs, opts ...Option) *Manager {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	m := &Manager{
		fs:      fsys,
		tracked: make(map[string]TrackedFile),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		if m.debug {
			m.logger = logging.New(logging.DefaultConfig())
		} else {
			m.logger = logging.Nop()
		}
	}
	if m.debug {
		m.logger = m.logger.WithLevel(logging.LevelDebug)
	}
	m.logger = m.logger.WithComponent("scratch")
	m.inst = newInstruments(m.meters)

	return m
}

// ShouldAutoSave reports whether buf qualifies for auto-save: it is not a
// host scratch view, has no backing path yet, and is empty. Once a buffer
// has been saved it has a path, so a second call returns false.
func (m *Manager) ShouldAutoSave(buf Buffer) bool {
	if buf == nil || buf.IsScratch() {
		return false
	}
	if buf.Path() != "" {
		return false
	}
	return buf.Len() == 0
}

// ComputeDestinationPath renders the file name for now and returns the
// first candidate in the save directory that does not exist yet.
func (m *Manager) ComputeDestinationPath(cfg Config, now time.Time) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	ts, err := FormatTimestamp(cfg, now)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveDestination(cfg, ts)
}

// PerformSave prepares the save directory, writes buf to dest and, when
// cfg.InsertTimestamp is set, prepends timestamp and a newline and saves
// again. On success dest becomes tracked.
//
// Directory failures abort before the buffer is touched. A failed retarget
// or save is returned as ErrSave and nothing is tracked.
func (m *Manager) PerformSave(buf Buffer, cfg Config, dest, timestamp string) error {
	dir, err := cfg.Directory()
	if err != nil {
		return newOpError(OpAccessDirectory, cfg.SaveDirectory, ErrDirectoryAccess, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.prepareDirectory(dir); err != nil {
		return err
	}
	return m.save(buf, cfg, filepath.Clean(dest), timestamp)
}

// AutoSave runs the whole save sequence for buf: qualify, prepare the
// directory, render the timestamp, resolve a free path and save. It returns
// the new path, or "" when buf does not qualify.
func (m *Manager) AutoSave(buf Buffer, cfg Config) (string, error) {
	if !m.ShouldAutoSave(buf) {
		return "", nil
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	dir, err := cfg.Directory()
	if err != nil {
		return "", newOpError(OpAccessDirectory, cfg.SaveDirectory, ErrDirectoryAccess, err)
	}
	m.logger.Debug("save directory: %s", dir)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.prepareDirectory(dir); err != nil {
		return "", err
	}

	unlock, err := m.lockDirectory(dir)
	if err != nil {
		return "", err
	}
	defer unlock()

	ts, err := FormatTimestamp(cfg, m.now())
	if err != nil {
		return "", err
	}

	dest, err := m.resolveDestination(cfg, ts)
	if err != nil {
		return "", err
	}

	if err := m.save(buf, cfg, dest, ts); err != nil {
		return "", err
	}
	return dest, nil
}

// ShouldDeleteOnClose reports whether path is tracked and content, once
// trimmed of surrounding whitespace, is empty or exactly the inserted
// timestamp.
func (m *Manager) ShouldDeleteOnClose(path, content string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	tf, ok := m.tracked[filepath.Clean(path)]
	if !ok {
		return false
	}
	return isUnedited(tf, content)
}

// DeleteTrackedFile removes path when ShouldDeleteOnClose holds for content.
// It reports whether the file was removed. A failed removal is returned and
// the entry stays tracked. A file that is already gone is untracked without
// error.
func (m *Manager) DeleteTrackedFile(path, content string) (bool, error) {
	path = filepath.Clean(path)

	m.mu.Lock()
	defer m.mu.Unlock()

	tf, ok := m.tracked[path]
	if !ok {
		return false, nil
	}

	log := m.logger.WithField("path", path)
	if !isUnedited(tf, content) {
		log.Debug("file not empty, keeping")
		return false, nil
	}

	if err := m.fs.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			delete(m.tracked, path)
			log.Debug("file already removed")
			return false, nil
		}
		return false, m.fail(newOpError(OpDelete, path, classify(err, ErrDelete), err))
	}

	delete(m.tracked, path)
	m.inst.recordDelete()
	log.Debug("deleted empty file")
	return true, nil
}

// IsTracked reports whether path is a tracked scratch file.
func (m *Manager) IsTracked(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tracked[filepath.Clean(path)]
	return ok
}

// Lookup returns the tracked entry for path.
func (m *Manager) Lookup(path string) (TrackedFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tf, ok := m.tracked[filepath.Clean(path)]
	return tf, ok
}

// Tracked returns all tracked files sorted by path.
func (m *Manager) Tracked() []TrackedFile {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TrackedFile, 0, len(m.tracked))
	for _, tf := range m.tracked {
		out = append(out, tf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Forget stops tracking path without touching the file. It reports whether
// the path was tracked.
func (m *Manager) Forget(path string) bool {
	path = filepath.Clean(path)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tracked[path]; !ok {
		return false
	}
	delete(m.tracked, path)
	m.logger.WithField("path", path).Debug("no longer tracked")
	return true
}

// prepareDirectory creates dir if needed and probes that it is writable.
// Caller must hold m.mu.
func (m *Manager) prepareDirectory(dir string) error {
	exists, err := afero.DirExists(m.fs, dir)
	if err != nil {
		return m.fail(newOpError(OpAccessDirectory, dir, classify(err, ErrDirectoryAccess), err))
	}
	if !exists {
		if err := m.fs.MkdirAll(dir, dirPerm); err != nil {
			return m.fail(newOpError(OpCreateDirectory, dir, classify(err, ErrDirectoryCreation), err))
		}
		m.logger.Debug("directory created: %s", dir)
	}

	probe := filepath.Join(dir, permissionProbeName)
	f, err := m.fs.Create(probe)
	if err != nil {
		return m.fail(newOpError(OpAccessDirectory, dir, classify(err, ErrDirectoryAccess), err))
	}
	if err := f.Close(); err != nil {
		return m.fail(newOpError(OpAccessDirectory, dir, classify(err, ErrDirectoryAccess), err))
	}
	if err := m.fs.Remove(probe); err != nil {
		return m.fail(newOpError(OpAccessDirectory, dir, classify(err, ErrDirectoryAccess), err))
	}
	return nil
}

// lockDirectory takes the cross-process lock when enabled and returns the
// function that releases it.
func (m *Manager) lockDirectory(dir string) (func(), error) {
	if !m.dirLock {
		return func() {}, nil
	}

	fl := flock.New(filepath.Join(dir, lockFileName))
	if err := fl.Lock(); err != nil {
		return nil, m.fail(newOpError(OpAccessDirectory, dir, classify(err, ErrDirectoryAccess), err))
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			m.logger.Debug("releasing %s: %v", fl.Path(), err)
		}
	}, nil
}

// resolveDestination returns the first free path for the rendered name.
// Caller must hold m.mu.
func (m *Manager) resolveDestination(cfg Config, timestamp string) (string, error) {
	dir, err := cfg.Directory()
	if err != nil {
		return "", newOpError(OpResolve, cfg.SaveDirectory, ErrDirectoryAccess, err)
	}

	name, err := FormatFilename(cfg.FilenameFormat, timestamp, cfg.DefaultExtension)
	if err != nil {
		return "", err
	}
	m.logger.Debug("generated filename: %s", name)

	candidate := filepath.Join(dir, name)
	for n := 1; ; n++ {
		taken, err := m.taken(candidate)
		if err != nil {
			return "", m.fail(newOpError(OpResolve, candidate, classify(err, ErrDirectoryAccess), err))
		}
		if !taken {
			m.inst.recordCollisions(n - 1)
			m.logger.Debug("full file path: %s", candidate)
			return candidate, nil
		}
		candidate = filepath.Join(dir, CollisionName(name, n))
	}
}

// taken reports whether path exists on disk or is already reserved by a
// tracked entry.
func (m *Manager) taken(path string) (bool, error) {
	if _, ok := m.tracked[path]; ok {
		return true, nil
	}
	return afero.Exists(m.fs, path)
}

// save retargets and persists buf, then records it. Caller must hold m.mu.
func (m *Manager) save(buf Buffer, cfg Config, dest, timestamp string) error {
	log := m.logger.WithField("path", dest)

	if err := buf.Retarget(dest); err != nil {
		return m.fail(newOpError(OpSave, dest, ErrSave, err))
	}
	if err := buf.Save(); err != nil {
		return m.fail(newOpError(OpSave, dest, ErrSave, err))
	}
	log.Debug("file saved")

	inserted := ""
	if cfg.InsertTimestamp {
		if err := buf.InsertAtStart(timestamp + "\n"); err != nil {
			return m.fail(newOpError(OpSave, dest, ErrSave, err))
		}
		if err := buf.Save(); err != nil {
			return m.fail(newOpError(OpSave, dest, ErrSave, err))
		}
		inserted = timestamp
		log.Debug("timestamp added")
	}

	m.tracked[dest] = TrackedFile{Path: dest, InsertedTimestamp: inserted}
	m.inst.recordSave()
	return nil
}

// fail records and logs err, then returns it.
func (m *Manager) fail(err *OperationError) error {
	m.inst.recordFailure(err.Op)
	m.logger.Debug("%v", err)
	return err
}

// isUnedited reports whether content still counts as empty for tf.
func isUnedited(tf TrackedFile, content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed == "" || trimmed == tf.InsertedTimestamp
}

// classify maps permission failures to ErrPermissionDenied and everything
// else to fallback.
func classify(err, fallback error) error {
	if errors.Is(err, fs.ErrPermission) {
		return ErrPermissionDenied
	}
	return fallback
}

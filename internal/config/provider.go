package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/dshills/autosave/internal/config/loader"
	"github.com/dshills/autosave/internal/config/notify"
	"github.com/dshills/autosave/internal/config/watcher"
	"github.com/dshills/autosave/internal/logging"
	"github.com/dshills/autosave/internal/scratch"
)

// DefaultPath returns the default settings file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(dir, "autosave", "settings.toml"), nil
}

// Provider holds the current settings and reloads them on demand.
// It is safe for concurrent use.
type Provider struct {
	mu      sync.RWMutex
	current Settings

	fs        afero.Fs
	path      string
	envPrefix string
	debounce  time.Duration
	logger    *logging.Logger
	notifier  *notify.Notifier
}

// Option configures a Provider.
type Option func(*Provider)

// WithFS sets the file system the settings file is read from.
func WithFS(fsys afero.Fs) Option {
	return func(p *Provider) {
		if fsys != nil {
			p.fs = fsys
		}
	}
}

// WithPath sets the settings file. An empty path disables the file layer.
func WithPath(path string) Option {
	return func(p *Provider) {
		p.path = path
	}
}

// WithEnvPrefix sets the environment variable prefix. An empty prefix
// disables the environment layer.
func WithEnvPrefix(prefix string) Option {
	return func(p *Provider) {
		p.envPrefix = prefix
	}
}

// WithWatchDebounce sets the quiet period Watch waits for before reloading.
func WithWatchDebounce(d time.Duration) Option {
	return func(p *Provider) {
		p.debounce = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l.WithComponent("config")
		}
	}
}

// NewProvider creates a provider holding the defaults. Call Load to read
// the settings file and environment.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		current:   Defaults(),
		fs:        afero.NewOsFs(),
		envPrefix: loader.DefaultEnvPrefix,
		debounce:  100 * time.Millisecond,
		logger:    logging.Nop(),
		notifier:  notify.New(),
	}
	if path, err := DefaultPath(); err == nil {
		p.path = path
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Path returns the settings file path, or "" when there is none.
func (p *Provider) Path() string {
	return p.path
}

// Load reads all layers and replaces the current settings. On error the
// current settings are left unchanged. Subscribers receive one change per
// key whose value changed, then a reload event.
func (p *Provider) Load() error {
	merged := Defaults().Map()
	source := "defaults"

	if p.path != "" {
		l, err := loader.ForPath(p.fs, p.path)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		fileMap, err := l.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		if fileMap != nil {
			merged = loader.DeepMerge(merged, fileMap)
			source = p.path
		}
	}

	if p.envPrefix != "" {
		envMap, err := loader.NewEnvLoader(p.envPrefix).Load()
		if err != nil {
			return fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, envMap)
	}

	for _, key := range UnknownKeys(merged) {
		p.logger.Debug("ignoring unknown setting %q", key)
	}

	s, err := FromMap(merged)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	p.mu.Lock()
	old := p.current
	p.current = s
	p.mu.Unlock()

	p.logger.Debug("settings loaded from %s", source)
	p.notifyChanges(old, s, source)
	return nil
}

func (p *Provider) notifyChanges(old, updated Settings, source string) {
	oldMap, newMap := old.Map(), updated.Map()
	for _, key := range Keys() {
		if !reflect.DeepEqual(oldMap[key], newMap[key]) {
			p.notifier.NotifySet(key, oldMap[key], newMap[key], source)
		}
	}
	p.notifier.NotifyReload(source)
}

// Current returns the current settings.
func (p *Provider) Current() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// ScratchConfig returns the scratch configuration of the current settings.
func (p *Provider) ScratchConfig() scratch.Config {
	return p.Current().Scratch()
}

// Subscribe registers an observer for every settings change.
func (p *Provider) Subscribe(observer notify.Observer) *notify.Subscription {
	return p.notifier.Subscribe(observer)
}

// SubscribeKey registers an observer for changes to one key.
func (p *Provider) SubscribeKey(key string, observer notify.Observer) *notify.Subscription {
	return p.notifier.SubscribeKey(key, observer)
}

// Watch reloads the settings whenever the settings file changes on the OS
// file system, until ctx is cancelled. Reload failures are logged and keep
// the previous settings.
func (p *Provider) Watch(ctx context.Context) error {
	if p.path == "" {
		return ErrNoSettingsFile
	}

	w := watcher.New(watcher.WithDebounce(p.debounce), watcher.WithLogger(p.logger))
	if err := w.Watch(p.path); err != nil {
		return fmt.Errorf("watching settings: %w", err)
	}
	w.OnChange(func(e watcher.Event) {
		p.logger.Debug("settings file %s: %s", e.Op, e.Path)
		if err := p.Load(); err != nil {
			p.logger.Err(err, "reloading settings")
		}
	})

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("watching settings: %w", err)
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

// Close releases all subscriptions.
func (p *Provider) Close() {
	p.notifier.Close()
}

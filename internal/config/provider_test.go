package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/dshills/autosave/internal/config/loader"
	"github.com/dshills/autosave/internal/config/notify"
	"github.com/dshills/autosave/internal/scratch"
)

const testEnvPrefix = "AUTOSAVE_PROVIDER_TEST_"

func newTestProvider(t *testing.T, path, content string) (*Provider, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	if content != "" {
		if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	p := NewProvider(WithFS(fsys), WithPath(path), WithEnvPrefix(testEnvPrefix))
	t.Cleanup(p.Close)
	return p, fsys
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	t.Setenv("HOME", "/home/user")

	path, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "settings.toml" || filepath.Base(filepath.Dir(path)) != "autosave" {
		t.Errorf("DefaultPath() = %q", path)
	}
}

func TestProvider_LoadMissingFile(t *testing.T) {
	p, _ := newTestProvider(t, "/cfg/settings.toml", "")

	if err := p.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Current() != Defaults() {
		t.Errorf("Current() = %+v, want defaults", p.Current())
	}
}

func TestProvider_Layers(t *testing.T) {
	p, _ := newTestProvider(t, "/cfg/settings.toml", `
save_directory = "/notes"
default_extension = "txt"
use_microseconds = true
`)
	t.Setenv(testEnvPrefix+"DEFAULT_EXTENSION", "org")
	t.Setenv(testEnvPrefix+"INSERT_TIMESTAMP", "off")

	if err := p.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := scratch.DefaultConfig()
	want.SaveDirectory = "/notes"
	want.DefaultExtension = "org"
	want.UseMicroseconds = true
	want.InsertTimestamp = false
	if got := p.ScratchConfig(); got != want {
		t.Errorf("ScratchConfig() = %+v, want %+v", got, want)
	}
}

func TestProvider_SublimeSettings(t *testing.T) {
	p, _ := newTestProvider(t, "/cfg/AutoSave.sublime-settings", `{
	"save_directory": "~/Dropbox/scratch",
	"debug": true
}`)

	if err := p.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	s := p.Current()
	if s.SaveDirectory != "~/Dropbox/scratch" || !s.Debug {
		t.Errorf("Current() = %+v", s)
	}
}

func TestProvider_LoadErrorsKeepCurrent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(error) bool
	}{
		{"parse", "save_directory = \n", func(err error) bool {
			var pe *loader.ParseError
			return errors.As(err, &pe)
		}},
		{"type", "debug = 3\n", func(err error) bool { return errors.Is(err, ErrTypeMismatch) }},
		{"invalid", "filename_format = \"\"\n", func(err error) bool { return errors.Is(err, scratch.ErrInvalidConfig) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProvider(t, "/cfg/settings.toml", tt.content)
			err := p.Load()
			if !tt.check(err) {
				t.Errorf("Load() error = %v", err)
			}
			if p.Current() != Defaults() {
				t.Errorf("settings changed after failed load: %+v", p.Current())
			}
		})
	}
}

func TestProvider_UnsupportedFormat(t *testing.T) {
	p, _ := newTestProvider(t, "/cfg/settings.ini", "x=1")
	if err := p.Load(); !errors.Is(err, loader.ErrUnsupportedFormat) {
		t.Errorf("Load() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestProvider_NoFileLayer(t *testing.T) {
	t.Setenv(testEnvPrefix+"SAVE_DIRECTORY", "/env/dir")
	p := NewProvider(WithPath(""), WithEnvPrefix(testEnvPrefix))
	defer p.Close()

	if err := p.Load(); err != nil {
		t.Fatal(err)
	}
	if p.Current().SaveDirectory != "/env/dir" {
		t.Errorf("SaveDirectory = %q", p.Current().SaveDirectory)
	}
	if err := p.Watch(context.Background()); !errors.Is(err, ErrNoSettingsFile) {
		t.Errorf("Watch() error = %v, want ErrNoSettingsFile", err)
	}
}

func TestProvider_Notifications(t *testing.T) {
	p, fsys := newTestProvider(t, "/cfg/settings.toml", "debug = false\n")
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	var changes []notify.Change
	p.Subscribe(func(c notify.Change) { changes = append(changes, c) })

	var dirChanges int
	p.SubscribeKey(KeySaveDirectory, func(c notify.Change) {
		if c.Type == notify.ChangeSet {
			dirChanges++
		}
	})

	if err := afero.WriteFile(fsys, "/cfg/settings.toml", []byte("debug = true\nlog_level = \"info\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	if len(changes) != 3 {
		t.Fatalf("got %d changes, want 3: %+v", len(changes), changes)
	}
	if changes[0].Key != KeyDebug || changes[0].OldValue != false || changes[0].NewValue != true {
		t.Errorf("changes[0] = %+v", changes[0])
	}
	if changes[1].Key != KeyLogLevel || changes[1].NewValue != "info" {
		t.Errorf("changes[1] = %+v", changes[1])
	}
	if changes[2].Type != notify.ChangeReload || changes[2].Source != "/cfg/settings.toml" {
		t.Errorf("changes[2] = %+v", changes[2])
	}
	if dirChanges != 0 {
		t.Errorf("save_directory observer saw %d changes", dirChanges)
	}
}

func TestProvider_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	if err := os.WriteFile(path, []byte("default_extension = \"md\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewProvider(WithPath(path), WithEnvPrefix(""), WithWatchDebounce(20*time.Millisecond))
	defer p.Close()
	if err := p.Load(); err != nil {
		t.Fatal(err)
	}

	changed := make(chan string, 4)
	p.SubscribeKey(KeyDefaultExtension, func(c notify.Change) {
		if c.Type == notify.ChangeSet {
			changed <- c.NewValue.(string)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx) }()

	// Rewrite until the watcher has registered the directory and reports.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	var got string
wait:
	for {
		select {
		case got = <-changed:
			break wait
		case <-tick.C:
			if err := os.WriteFile(path, []byte("default_extension = \"txt\"\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}

	if got != "txt" {
		t.Errorf("reloaded extension = %q, want txt", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}

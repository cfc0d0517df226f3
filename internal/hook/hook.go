// Package hook connects editor buffer events to the scratch lifecycle.
//
// A host editor forwards its buffer events to a Listener: new, activated,
// and load may turn an empty untitled buffer into a timestamped scratch
// file; pre_close deletes that file again if the buffer was left unedited.
// Settings are read from the SettingsSource on every event so changes take
// effect without restarting the host. Failures are reported once through
// the Notifier and never returned to the host.
package hook

import (
	"errors"
	"fmt"

	"github.com/dshills/autosave/internal/logging"
	"github.com/dshills/autosave/internal/scratch"
)

// MessagePrefix starts every message passed to Notifier.ErrorMessage.
const MessagePrefix = "autosave: "

// ErrUnknownEvent is returned by Dispatch and ParseEvent for events the
// listener does not handle.
var ErrUnknownEvent = errors.New("unknown event")

// Event names a host buffer event.
type Event string

const (
	EventNew       Event = "new"
	EventActivated Event = "activated"
	EventLoad      Event = "load"
	EventPreClose  Event = "pre_close"
)

// String returns the event name.
func (e Event) String() string {
	return string(e)
}

// ParseEvent returns the Event named s.
func ParseEvent(s string) (Event, error) {
	switch e := Event(s); e {
	case EventNew, EventActivated, EventLoad, EventPreClose:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
	}
}

// Notifier shows error messages to the user.
type Notifier interface {
	ErrorMessage(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// ErrorMessage calls f(msg).
func (f NotifierFunc) ErrorMessage(msg string) {
	f(msg)
}

// SettingsSource supplies the scratch configuration for each event.
type SettingsSource interface {
	ScratchConfig() scratch.Config
}

// StaticSettings is a SettingsSource that never changes.
type StaticSettings scratch.Config

// ScratchConfig returns the configuration.
func (s StaticSettings) ScratchConfig() scratch.Config {
	return scratch.Config(s)
}

// Listener routes host buffer events to a scratch.Manager.
type Listener struct {
	manager  *scratch.Manager
	settings SettingsSource
	notifier Notifier
	logger   *logging.Logger
}

// Option configures a Listener.
type Option func(*Listener)

// WithNotifier sets where error messages are shown. Without one they are
// logged at error level.
func WithNotifier(n Notifier) Option {
	return func(l *Listener) {
		l.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(lg *logging.Logger) Option {
	return func(l *Listener) {
		if lg != nil {
			l.logger = lg.WithComponent("hook")
		}
	}
}

// NewListener creates a listener. A nil settings source uses the defaults.
func NewListener(manager *scratch.Manager, settings SettingsSource, opts ...Option) *Listener {
	if settings == nil {
		settings = StaticSettings(scratch.DefaultConfig())
	}
	l := &Listener{
		manager:  manager,
		settings: settings,
		logger:   logging.Nop(),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.notifier == nil {
		logger := l.logger
		l.notifier = NotifierFunc(func(msg string) { logger.Error("%s", msg) })
	}
	return l
}

// OnNew handles a newly created buffer.
func (l *Listener) OnNew(buf scratch.Buffer) {
	l.autoSave(EventNew, buf)
}

// OnActivated handles a buffer gaining focus.
func (l *Listener) OnActivated(buf scratch.Buffer) {
	l.autoSave(EventActivated, buf)
}

// OnLoad handles a buffer finishing loading.
func (l *Listener) OnLoad(buf scratch.Buffer) {
	l.autoSave(EventLoad, buf)
}

// OnPreClose handles a buffer about to close.
func (l *Listener) OnPreClose(buf scratch.Buffer) {
	path := buf.Path()
	if path == "" || !l.manager.IsTracked(path) {
		return
	}

	deleted, err := l.manager.DeleteTrackedFile(path, buf.Text())
	if err != nil {
		l.report(EventPreClose, err)
		return
	}
	if deleted {
		l.logger.Debug("%s: removed unedited scratch file %s", EventPreClose, path)
	}
}

// Dispatch routes ev to its handler.
func (l *Listener) Dispatch(ev Event, buf scratch.Buffer) error {
	switch ev {
	case EventNew:
		l.OnNew(buf)
	case EventActivated:
		l.OnActivated(buf)
	case EventLoad:
		l.OnLoad(buf)
	case EventPreClose:
		l.OnPreClose(buf)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, string(ev))
	}
	return nil
}

func (l *Listener) autoSave(ev Event, buf scratch.Buffer) {
	if !l.manager.ShouldAutoSave(buf) {
		return
	}

	path, err := l.manager.AutoSave(buf, l.settings.ScratchConfig())
	if err != nil {
		l.report(ev, err)
		return
	}
	l.logger.Debug("%s: saved scratch buffer to %s", ev, path)
}

func (l *Listener) report(ev Event, err error) {
	l.logger.Debug("%s: %v", ev, err)
	l.notifier.ErrorMessage(MessagePrefix + scratch.UserMessage(err))
}

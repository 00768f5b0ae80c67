// Package app wires the camera, landmark detector and typing session into
// the gazekeys frame loop.
package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/gazekeys/internal/capture"
	"github.com/ayusman/gazekeys/internal/config"
	"github.com/ayusman/gazekeys/internal/cursor"
	"github.com/ayusman/gazekeys/internal/detector"
	"github.com/ayusman/gazekeys/internal/log"
	"github.com/ayusman/gazekeys/internal/render"
	"github.com/ayusman/gazekeys/internal/session"
	"github.com/ayusman/gazekeys/internal/store"
)

// SettingTypingEnabled persists the pause state across runs.
const SettingTypingEnabled = "typing_enabled"

const controlBuffer = 16

var (
	// ErrCameraRead is returned by Run when the camera stops delivering frames.
	ErrCameraRead = errors.New("camera read failed")
	// ErrMissingComponent is returned by New when a required part is nil.
	ErrMissingComponent = errors.New("missing required component")
)

// Publisher receives a snapshot of every frame result.
type Publisher interface {
	Publish(v any)
}

// FrameSink receives the rendered overlay as JPEG.
type FrameSink interface {
	Set(jpeg []byte)
}

// KeySender forwards committed keys to another application.
type KeySender interface {
	Send(key, text string) error
}

// Config holds the application's collaborators. Camera, Detector, Session
// and Overlay are required; the rest are optional.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Session  *session.Session
	Overlay  *render.Overlay

	Display    render.Display
	Cursor     cursor.Sink
	Store      *store.Store
	Publisher  Publisher
	Frames     FrameSink
	Keystrokes KeySender

	// Tuning delivers threshold changes; it is drained between frames.
	Tuning <-chan config.Tuning
	// OnCommit is called from the frame loop after each commit.
	OnCommit func(key, text string)
	// Now returns the frame timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Stats counts frame loop activity.
type Stats struct {
	Frames      int
	NoFace      int
	Commits     int
	DetectErrs  int
	LandmarkErr int
}

// App is the main application that runs the frame loop.
type App struct {
	config   Config
	controls chan func(*session.Session)
	enabled  atomic.Bool
	storeID  string

	mu    sync.Mutex
	stats Stats
}

// New creates a new App instance with the given configuration.
func New(config Config) (*App, error) {
	switch {
	case config.Camera == nil:
		return nil, errors.Join(ErrMissingComponent, errors.New("camera"))
	case config.Detector == nil:
		return nil, errors.Join(ErrMissingComponent, errors.New("detector"))
	case config.Session == nil:
		return nil, errors.Join(ErrMissingComponent, errors.New("session"))
	case config.Overlay == nil:
		return nil, errors.Join(ErrMissingComponent, errors.New("overlay"))
	}
	if config.Display == nil {
		config.Display = &render.Headless{}
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	a := &App{
		config:   config,
		controls: make(chan func(*session.Session), controlBuffer),
	}
	a.enabled.Store(config.Session.Enabled())

	if config.Store != nil {
		enabled := config.Store.Settings().GetBool(SettingTypingEnabled, true)
		a.enabled.Store(enabled)
		config.Session.SetEnabled(enabled)
	}

	return a, nil
}

// SetEnabled pauses or resumes committing. Safe to call from any goroutine.
func (a *App) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
	a.control(func(s *session.Session) { s.SetEnabled(enabled) })

	if a.config.Store != nil {
		if err := a.config.Store.Settings().SetBool(SettingTypingEnabled, enabled); err != nil {
			log.Warn("failed to persist typing state", "error", err)
		}
	}
	log.Info("typing state changed", "enabled", enabled)
}

// IsEnabled returns whether committing is enabled.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// ClearText empties the typed text. Safe to call from any goroutine.
func (a *App) ClearText() {
	a.control(func(s *session.Session) { s.Reset() })
}

func (a *App) control(fn func(*session.Session)) {
	select {
	case a.controls <- fn:
	default:
		log.Warn("control queue full, dropping request")
	}
}

// Stats returns a copy of the loop counters.
func (a *App) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// SessionID returns the stored session ID, empty when no store is configured
// or before Run has started.
func (a *App) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.storeID
}

func (a *App) count(fn func(*Stats)) {
	a.mu.Lock()
	fn(&a.stats)
	a.mu.Unlock()
}

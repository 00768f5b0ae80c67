// Package session runs the per-frame gaze-to-intent pipeline: gaze
// estimation, blink debouncing, screen mapping, key location and the
// dwell/commit decision, followed by text and suggestion updates on commit.
package session

import (
	"fmt"
	"image"
	"time"

	"github.com/ayusman/gazekeys/internal/blink"
	"github.com/ayusman/gazekeys/internal/config"
	"github.com/ayusman/gazekeys/internal/detector"
	"github.com/ayusman/gazekeys/internal/dwell"
	"github.com/ayusman/gazekeys/internal/gaze"
	"github.com/ayusman/gazekeys/internal/keyboard"
	"github.com/ayusman/gazekeys/internal/screen"
	"github.com/ayusman/gazekeys/internal/suggest"
	"github.com/ayusman/gazekeys/internal/text"
)

// Result is the outcome of one frame.
type Result struct {
	Time time.Time `json:"time"`
	// Face is false when the frame had no usable landmarks.
	Face   bool        `json:"face"`
	Gaze   gaze.Point  `json:"gaze"`
	Cursor image.Point `json:"cursor"`

	Key      string  `json:"key,omitempty"`
	Hovering bool    `json:"hovering"`
	Blink    bool    `json:"blink"`
	Progress float64 `json:"progress"`

	Commit    string `json:"commit,omitempty"`
	Committed bool   `json:"committed"`

	Text        string   `json:"text"`
	Suggestions []string `json:"suggestions"`
	Enabled     bool     `json:"enabled"`
}

// Session owns all mutable per-user pipeline state. It is not safe for
// concurrent use; one goroutine drives Step.
type Session struct {
	layout *keyboard.Layout
	mapper *screen.Mapper
	dict   *suggest.Dictionary

	gaze  *gaze.Estimator
	blink *blink.Detector
	dwell *dwell.Machine

	buffer      text.Buffer
	suggestions []string
	enabled     bool

	last Result
}

// New creates a session. dict may be nil, in which case no suggestions are made.
func New(layout *keyboard.Layout, mapper *screen.Mapper, dict *suggest.Dictionary, tuning config.Tuning) *Session {
	if dict == nil {
		dict = suggest.Empty(suggest.DefaultMax)
	}
	s := &Session{
		layout:  layout,
		mapper:  mapper,
		dict:    dict,
		gaze:    gaze.NewEstimator(tuning.Smoothing),
		blink:   blink.NewDetector(tuning.Blink()),
		dwell:   dwell.New(tuning.Dwell),
		enabled: true,
	}
	s.suggestions = dict.Lookup(s.buffer.LastToken())
	return s
}

// Step processes one frame's landmarks. A nil face pauses the dwell timer
// and leaves the hovered key in place. Malformed landmarks are reported as
// an error and handled like a missing face.
func (s *Session) Step(face *detector.FaceLandmarks, now time.Time) (Result, error) {
	if face == nil {
		return s.noFace(now), nil
	}
	if err := face.Validate(); err != nil {
		s.noFace(now)
		return s.last, fmt.Errorf("session step: %w", err)
	}

	p, ok := s.gaze.Estimate(face)
	if !ok {
		return s.noFace(now), nil
	}

	blinking := s.blink.Update(face)
	cursor := s.mapper.Map(p)
	key, hovering := s.layout.Locate(cursor)

	r := Result{
		Time:     now,
		Face:     true,
		Gaze:     p,
		Cursor:   cursor,
		Key:      key,
		Hovering: hovering,
		Blink:    blinking,
		Enabled:  s.enabled,
	}

	if s.enabled {
		if commit, ok := s.dwell.Step(key, hovering, blinking, now); ok {
			s.commit(commit)
			r.Commit = commit
			r.Committed = true
		}
		r.Progress = s.dwell.Progress(now)
	}

	r.Text = s.buffer.String()
	r.Suggestions = s.suggestions
	s.last = r
	return r, nil
}

func (s *Session) noFace(now time.Time) Result {
	s.dwell.Pause(now)

	r := s.last
	r.Time = now
	r.Face = false
	r.Blink = false
	r.Committed = false
	r.Commit = ""
	r.Key, r.Hovering = s.dwell.Key()
	r.Progress = s.dwell.Progress(now)
	r.Text = s.buffer.String()
	r.Suggestions = s.suggestions
	r.Enabled = s.enabled
	s.last = r
	return r
}

func (s *Session) commit(key string) {
	s.buffer.Apply(key)
	s.suggestions = s.dict.Lookup(s.buffer.LastToken())
}

// ApplyTuning updates thresholds without losing typed text.
func (s *Session) ApplyTuning(t config.Tuning) {
	s.gaze.SetSmoothing(t.Smoothing)
	s.blink.Reconfigure(t.Blink())
	s.dwell.SetDuration(t.Dwell)
}

// SetEnabled turns committing on or off. Disabling clears any dwell in progress.
func (s *Session) SetEnabled(enabled bool) {
	if enabled == s.enabled {
		return
	}
	s.enabled = enabled
	s.dwell.Reset()
}

// Enabled reports whether commits are allowed.
func (s *Session) Enabled() bool {
	return s.enabled
}

// Text returns the typed text.
func (s *Session) Text() string {
	return s.buffer.String()
}

// Suggestions returns the current suggestion list.
func (s *Session) Suggestions() []string {
	return s.suggestions
}

// Layout returns the keyboard layout in use.
func (s *Session) Layout() *keyboard.Layout {
	return s.layout
}

// Last returns the most recent frame result.
func (s *Session) Last() Result {
	return s.last
}

// Reset clears typed text and all per-frame history.
func (s *Session) Reset() {
	s.buffer.Reset()
	s.gaze.Reset()
	s.blink.History().Reset()
	s.dwell.Reset()
	s.suggestions = s.dict.Lookup("")
	s.last = Result{}
}

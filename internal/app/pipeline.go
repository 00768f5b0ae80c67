package app

import (
	"context"
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/gazekeys/internal/capture"
	"github.com/ayusman/gazekeys/internal/detector"
	"github.com/ayusman/gazekeys/internal/log"
	"github.com/ayusman/gazekeys/internal/render"
	"github.com/ayusman/gazekeys/internal/session"
	"github.com/ayusman/gazekeys/internal/store"
)

// Run drives the frame loop on the calling goroutine until Escape is
// pressed, ctx is cancelled or the camera fails. Per frame:
//  1. Apply pending tuning and control requests
//  2. Read and mirror a frame
//  3. Detect landmarks on an RGB copy
//  4. Step the session and move the cursor
//  5. Record commits and forward them
//  6. Publish state, draw the overlay and show it
//
// The camera, display and detector are released before Run returns.
func (a *App) Run(ctx context.Context) error {
	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer a.release()

	a.startStoredSession()
	defer a.endStoredSession()

	log.Info("frame loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info("frame loop stopped", "reason", ctx.Err())
			return nil
		default:
		}

		a.drainUpdates()

		frame, err := a.config.Camera.ReadFrame()
		if err != nil {
			log.Warn("camera read failed, stopping", "error", err)
			return fmt.Errorf("%w: %w", ErrCameraRead, err)
		}

		key := a.processFrame(frame)
		frame.Close()

		if key == render.EscapeKey {
			log.Info("frame loop stopped", "reason", "escape")
			return nil
		}
	}
}

// processFrame runs one frame through the pipeline and returns the key
// pressed in the display, or -1.
func (a *App) processFrame(frame *gocv.Mat) int {
	now := a.config.Now()
	s := a.config.Session

	face, err := a.detect(frame)
	if err != nil {
		a.count(func(st *Stats) { st.DetectErrs++ })
		log.Debug("landmark detection failed", "error", err)
	}

	res, err := s.Step(face, now)
	if err != nil {
		a.count(func(st *Stats) { st.LandmarkErr++ })
		log.Warn("skipping frame", "error", err)
	}

	a.count(func(st *Stats) {
		st.Frames++
		if !res.Face {
			st.NoFace++
		}
	})

	if res.Face && a.config.Cursor != nil {
		if err := a.config.Cursor.Move(res.Cursor.X, res.Cursor.Y); err != nil {
			log.Debug("cursor move failed", "error", err)
		}
	}

	if res.Committed {
		a.handleCommit(res)
	}

	if a.config.Publisher != nil {
		a.config.Publisher.Publish(res)
	}

	a.config.Overlay.Draw(frame, res)
	if a.config.Frames != nil {
		if jpeg, err := render.EncodeJPEG(*frame); err == nil {
			a.config.Frames.Set(jpeg)
		}
	}
	return a.config.Display.Show(*frame)
}

// detect converts the BGR frame to RGB and runs the detector.
func (a *App) detect(frame *gocv.Mat) (*detector.FaceLandmarks, error) {
	rgb := capture.ToRGB(frame)
	defer rgb.Close()
	return a.config.Detector.Detect(&rgb)
}

func (a *App) handleCommit(res session.Result) {
	a.count(func(st *Stats) { st.Commits++ })
	log.Info("commit", "key", res.Commit, "text", res.Text)

	if a.config.Store != nil {
		if id := a.SessionID(); id != "" {
			err := a.config.Store.Commits().Create(&store.Commit{
				SessionID: id,
				Key:       res.Commit,
				Text:      res.Text,
				CreatedAt: res.Time.UTC(),
			})
			if err != nil {
				log.Warn("failed to store commit", "error", err)
			}
		}
	}

	if a.config.Keystrokes != nil {
		if err := a.config.Keystrokes.Send(res.Commit, res.Text); err != nil {
			log.Warn("keystroke dropped", "key", res.Commit, "error", err)
		}
	}

	if a.config.OnCommit != nil {
		a.config.OnCommit(res.Commit, res.Text)
	}
}

// drainUpdates applies queued tuning and control requests.
func (a *App) drainUpdates() {
	for {
		select {
		case t, ok := <-a.config.Tuning:
			if !ok {
				a.config.Tuning = nil
				continue
			}
			a.config.Session.ApplyTuning(t)
			log.Info("tuning applied", "dwell", t.Dwell, "blink_threshold", t.BlinkThreshold)
		case fn := <-a.controls:
			fn(a.config.Session)
		default:
			return
		}
	}
}

func (a *App) startStoredSession() {
	if a.config.Store == nil {
		return
	}
	sess, err := a.config.Store.Sessions().Start()
	if err != nil {
		log.Warn("failed to start stored session", "error", err)
		return
	}
	a.mu.Lock()
	a.storeID = sess.ID
	a.mu.Unlock()
	log.Info("session started", "id", sess.ID)
}

func (a *App) endStoredSession() {
	id := a.SessionID()
	if a.config.Store == nil || id == "" {
		return
	}
	if err := a.config.Store.Sessions().End(id, a.config.Session.Text()); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn("failed to end stored session", "error", err)
	}
}

func (a *App) release() {
	if err := a.config.Camera.Close(); err != nil {
		log.Warn("error closing camera", "error", err)
	}
	if err := a.config.Display.Close(); err != nil {
		log.Warn("error closing display", "error", err)
	}
	if err := a.config.Detector.Close(); err != nil {
		log.Warn("error closing detector", "error", err)
	}
}

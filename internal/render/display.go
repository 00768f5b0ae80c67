package render

import (
	"gocv.io/x/gocv"
)

// Display shows frames and reports key presses.
type Display interface {
	// Show displays frame and returns the key pressed during a 1 ms poll,
	// or -1 when none was.
	Show(frame gocv.Mat) int
	Close() error
}

// Window is a Display backed by an OpenCV HighGUI window. The window is
// created on the first Show so it belongs to the goroutine driving it.
type Window struct {
	title string
	win   *gocv.Window
}

// NewWindow prepares a window titled title.
func NewWindow(title string) *Window {
	return &Window{title: title}
}

// Show implements Display.
func (w *Window) Show(frame gocv.Mat) int {
	if w.win == nil {
		w.win = gocv.NewWindow(w.title)
	}
	w.win.IMShow(frame)
	return w.win.WaitKey(1)
}

// Close implements Display.
func (w *Window) Close() error {
	if w.win == nil {
		return nil
	}
	err := w.win.Close()
	w.win = nil
	return err
}

// Headless discards frames. Keys queued with Press are returned one per Show.
type Headless struct {
	keys  []int
	shown int
}

// Press queues a key code for a later Show call.
func (h *Headless) Press(key int) {
	h.keys = append(h.keys, key)
}

// Shown returns the number of frames passed to Show.
func (h *Headless) Shown() int {
	return h.shown
}

// Show implements Display.
func (h *Headless) Show(frame gocv.Mat) int {
	h.shown++
	if len(h.keys) == 0 {
		return -1
	}
	k := h.keys[0]
	h.keys = h.keys[1:]
	return k
}

// Close implements Display.
func (h *Headless) Close() error {
	return nil
}

// Package cursor moves the system pointer to the gaze position.
package cursor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrUnavailable is returned when no pointer backend can be used.
var ErrUnavailable = errors.New("cursor backend unavailable")

// Sink receives absolute pointer moves and reports the screen size.
type Sink interface {
	Move(x, y int) error
	ScreenSize() (width, height int, err error)
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

const commandTimeout = 500 * time.Millisecond

// XDoTool drives the pointer with the xdotool command (X11).
type XDoTool struct {
	run Runner

	mu            sync.Mutex
	width, height int
}

// NewXDoTool returns an XDoTool sink, or ErrUnavailable when xdotool is not
// on PATH.
func NewXDoTool() (*XDoTool, error) {
	if _, err := exec.LookPath("xdotool"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &XDoTool{run: execRunner}, nil
}

// NewXDoToolWithRunner returns an XDoTool that runs commands through run.
func NewXDoToolWithRunner(run Runner) *XDoTool {
	return &XDoTool{run: run}
}

// Move places the pointer at (x, y).
func (s *XDoTool) Move(x, y int) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	out, err := s.run(ctx, "xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y))
	if err != nil {
		return fmt.Errorf("xdotool mousemove: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ScreenSize queries the display geometry once and caches it.
func (s *XDoTool) ScreenSize() (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.width > 0 && s.height > 0 {
		return s.width, s.height, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	out, err := s.run(ctx, "xdotool", "getdisplaygeometry")
	if err != nil {
		return 0, 0, fmt.Errorf("xdotool getdisplaygeometry: %w", err)
	}
	w, h, err := parseGeometry(string(out))
	if err != nil {
		return 0, 0, err
	}
	s.width, s.height = w, h
	return w, h, nil
}

func parseGeometry(out string) (int, int, error) {
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected display geometry %q", out)
	}
	w, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("display width: %w", err)
	}
	h, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("display height: %w", err)
	}
	return w, h, nil
}

// Nop discards moves and reports a fixed size.
type Nop struct {
	Width, Height int
}

// Move implements Sink.
func (Nop) Move(x, y int) error { return nil }

// ScreenSize implements Sink.
func (n Nop) ScreenSize() (int, int, error) {
	if n.Width <= 0 || n.Height <= 0 {
		return 0, 0, ErrUnavailable
	}
	return n.Width, n.Height, nil
}

// New picks a sink by name: "xdotool" or "none". An unavailable xdotool
// falls back to Nop along with the error so the caller can log it.
func New(name string, fallbackWidth, fallbackHeight int) (Sink, error) {
	nop := Nop{Width: fallbackWidth, Height: fallbackHeight}
	switch name {
	case "none", "":
		return nop, nil
	case "xdotool":
		s, err := NewXDoTool()
		if err != nil {
			return nop, err
		}
		return s, nil
	default:
		return nop, fmt.Errorf("unknown cursor sink %q", name)
	}
}

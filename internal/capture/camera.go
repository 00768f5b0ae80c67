// Package capture reads webcam frames through GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/gazekeys/internal/log"
)

// Default camera settings
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

// emptyReadLimit is how many consecutive empty reads are tolerated before
// ReadFrame gives up. Webcams often return a few while warming up.
const emptyReadLimit = 5

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrReadFailed is returned when the device yields no frame.
	ErrReadFailed = errors.New("failed to read frame from camera")
)

// Camera is a frame source. Frames are BGR; the caller closes each
// returned Mat.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
}

// Config selects the capture device and frame format.
type Config struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
	// Mirror flips frames horizontally so the preview behaves like a mirror.
	Mirror bool
}

// DefaultConfig returns the settings for the first camera, mirrored.
func DefaultConfig() Config {
	return Config{
		DeviceID: 0,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		FPS:      DefaultFPS,
		Mirror:   true,
	}
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = DefaultWidth, DefaultHeight
	}
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	return c
}

// Device is a Camera backed by an OpenCV video capture device.
type Device struct {
	mu         sync.Mutex
	requested  Config
	negotiated Config
	capture    *gocv.VideoCapture
}

// NewCamera creates a Device. Zero size or rate fields take the defaults.
func NewCamera(config Config) *Device {
	config = config.withDefaults()
	return &Device{requested: config, negotiated: config}
}

// Open opens the device and requests the configured format. Drivers may
// pick something else; Negotiated reports what was granted.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(d.requested.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", d.requested.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %d: device unavailable", d.requested.DeviceID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(d.requested.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(d.requested.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(d.requested.FPS))

	got := d.requested
	if w := int(vc.Get(gocv.VideoCaptureFrameWidth)); w > 0 {
		got.Width = w
	}
	if h := int(vc.Get(gocv.VideoCaptureFrameHeight)); h > 0 {
		got.Height = h
	}
	if fps := int(vc.Get(gocv.VideoCaptureFPS)); fps > 0 {
		got.FPS = fps
	}
	d.negotiated = got
	d.capture = vc

	log.Info("camera opened",
		"device", got.DeviceID,
		"width", got.Width, "height", got.Height, "fps", got.FPS,
		"mirror", got.Mirror)
	return nil
}

// Negotiated returns the format in effect, or the requested one before Open.
func (d *Device) Negotiated() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.negotiated
}

// Close releases the device. Closing a closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return nil
	}
	err := d.capture.Close()
	d.capture = nil
	return err
}

// ReadFrame returns the next frame, mirrored if configured.
func (d *Device) ReadFrame() (*gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	for attempt := 1; ; attempt++ {
		if d.capture.Read(&mat) && !mat.Empty() {
			break
		}
		if attempt == emptyReadLimit {
			mat.Close()
			return nil, ErrReadFailed
		}
	}

	if d.requested.Mirror {
		Mirror(&mat)
	}
	return &mat, nil
}

// IsOpen reports whether the device is open.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capture != nil
}

// Mirror flips frame around its vertical axis in place.
func Mirror(frame *gocv.Mat) {
	gocv.Flip(*frame, frame, 1)
}

// ToRGB returns an RGB copy of a BGR frame. The caller closes it.
func ToRGB(frame *gocv.Mat) gocv.Mat {
	rgb := gocv.NewMat()
	gocv.CvtColor(*frame, &rgb, gocv.ColorBGRToRGB)
	return rgb
}

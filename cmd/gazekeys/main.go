package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/gazekeys/internal/app"
	"github.com/ayusman/gazekeys/internal/capture"
	"github.com/ayusman/gazekeys/internal/config"
	"github.com/ayusman/gazekeys/internal/cursor"
	"github.com/ayusman/gazekeys/internal/detector"
	"github.com/ayusman/gazekeys/internal/keyboard"
	"github.com/ayusman/gazekeys/internal/log"
	"github.com/ayusman/gazekeys/internal/plugin"
	"github.com/ayusman/gazekeys/internal/render"
	"github.com/ayusman/gazekeys/internal/screen"
	"github.com/ayusman/gazekeys/internal/server"
	"github.com/ayusman/gazekeys/internal/session"
	"github.com/ayusman/gazekeys/internal/store"
	"github.com/ayusman/gazekeys/internal/suggest"
	"github.com/ayusman/gazekeys/internal/tray"
)

const windowTitle = "gazekeys"

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the TOML configuration file")
	headless := flag.Bool("headless", false, "run without the preview window")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *headless); err != nil {
		log.Error("gazekeys stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, headless bool) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	log.Init(cfg.LogLevel)
	log.Info("configuration loaded", "source", cfg.Source)

	if err := loader.Watch(ctx); err != nil {
		log.Warn("tuning hot reload disabled", "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dict, err := suggest.Open(ctx, suggest.Source{
		Path:   cfg.Suggest.WordsPath,
		URL:    cfg.Suggest.URL,
		Max:    cfg.Suggest.Max,
		Client: &http.Client{Timeout: 30 * time.Second},
	})
	if err != nil {
		log.Warn("autocomplete disabled", "error", err)
	} else {
		log.Info("word list loaded", "words", dict.Len())
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	sink, err := cursor.New(cfg.Output.Cursor, cfg.Screen.Width, cfg.Screen.Height)
	if err != nil {
		log.Warn("cursor control disabled", "sink", cfg.Output.Cursor, "error", err)
	}

	det, err := detector.NewMediaPipeDetector(detector.Config{
		ScriptPath:      cfg.Detector.ScriptPath,
		MinConfidence:   cfg.Detector.MinConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConf,
		NumPoints:       cfg.Detector.NumPoints,
	})
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}

	layout, err := keyboard.QWERTY(keyboard.DefaultGeometry())
	if err != nil {
		return fmt.Errorf("build layout: %w", err)
	}
	mapper := screen.NewMapper(sink, screen.Fixed{Width: cfg.Screen.Width, Height: cfg.Screen.Height})
	sess := session.New(layout, mapper, dict, cfg.Tuning)

	hub := server.NewStateHub()
	frames := &server.FrameBuffer{}

	var t *tray.Tray
	if cfg.Tray.Enabled {
		t = tray.New()
	}

	appCfg := app.Config{
		Camera: capture.NewCamera(capture.Config{
			DeviceID: cfg.Camera.DeviceID,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.FPS,
			Mirror:   cfg.Camera.Mirror,
		}),
		Detector: det,
		Session:  sess,
		Overlay:  render.NewOverlay(layout),
		Cursor:   sink,
		Store:    st,
		Tuning:   loader.Updates(),
	}
	if !headless {
		appCfg.Display = render.NewWindow(windowTitle)
	}
	if cfg.Server.Enabled {
		appCfg.Publisher = hub
		appCfg.Frames = frames
	}
	if t != nil {
		appCfg.OnCommit = func(key, _ string) { t.SetLastKey(key) }
	}

	if name := cfg.Output.KeystrokePlugin; name != "" {
		ks, err := startKeystrokes(ctx, cfg.Output.PluginDir, name)
		if err != nil {
			log.Warn("keystroke output disabled", "plugin", name, "error", err)
		} else {
			defer ks.Close()
			appCfg.Keystrokes = ks
		}
	}

	application, err := app.New(appCfg)
	if err != nil {
		return err
	}

	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			StaticDir: findWebDir(),
			Store:     st,
			Hub:       hub,
			Frames:    frames,
		})
		go func() {
			log.Info("http server listening", "addr", cfg.Server.Addr)
			if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
				log.Error("http server failed", "error", err)
			}
		}()
	}

	if t == nil {
		return runLoop(ctx, application)
	}

	// systray owns the main thread; the frame loop moves to its own.
	t.SetEnabled(application.IsEnabled())
	t.OnToggle(application.SetEnabled)
	t.OnClear(application.ClearText)
	t.OnQuit(cancel)

	errCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		errCh <- runLoop(ctx, application)
		t.Quit()
	}()
	t.Run()
	cancel()
	return <-errCh
}

func runLoop(ctx context.Context, a *app.App) error {
	err := a.Run(ctx)
	stats := a.Stats()
	log.Info("frame loop finished", "frames", stats.Frames, "commits", stats.Commits)
	if errors.Is(err, app.ErrCameraRead) {
		log.Warn("camera stream ended", "error", err)
		return nil
	}
	return err
}

func startKeystrokes(ctx context.Context, dir, name string) (*plugin.Keystrokes, error) {
	mgr := plugin.NewManager(dir)
	if err := mgr.Discover(); err != nil {
		return nil, err
	}
	ks, err := plugin.NewKeystrokes(mgr, name, plugin.NewExecutor(2000))
	if err != nil {
		return nil, err
	}
	ks.Start(ctx)
	log.Info("keystroke output enabled", "plugin", ks.Name())
	return ks, nil
}

// findWebDir searches for the web directory in common locations.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(config.DataDir(), "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

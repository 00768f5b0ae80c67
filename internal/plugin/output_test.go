package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// installPlugin writes a manifest and script under root/name.
func installPlugin(t *testing.T, root, name, script string, actions ...string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	manifest, _ := json.Marshal(Manifest{Name: name, Version: "1.0.0", Executable: "run.sh", Actions: actions})
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), manifest, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
}

func TestNewKeystrokes(t *testing.T) {
	root := t.TempDir()
	installPlugin(t, root, "typer", "#!/bin/sh\necho '{\"success\":true}'\n", "keystroke")
	installPlugin(t, root, "volume", "#!/bin/sh\necho '{\"success\":true}'\n", "volume-up")

	mgr := NewManager(root)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if _, err := NewKeystrokes(mgr, "typer", NewExecutor(1000)); err != nil {
		t.Errorf("NewKeystrokes(typer) error = %v", err)
	}
	if _, err := NewKeystrokes(mgr, "volume", NewExecutor(1000)); err == nil {
		t.Error("NewKeystrokes(volume) should reject a plugin without keystroke")
	}
	if _, err := NewKeystrokes(mgr, "missing", NewExecutor(1000)); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("NewKeystrokes(missing) error = %v, want ErrPluginNotFound", err)
	}
}

func TestKeystrokes_DeliversInOrder(t *testing.T) {
	root := t.TempDir()
	logPath := filepath.Join(root, "keys.log")
	script := "#!/bin/sh\nINPUT=$(cat)\necho \"$INPUT\" >> \"" + logPath + "\"\necho '{\"success\":true}'\n"
	installPlugin(t, root, "typer", script, "keystroke")

	mgr := NewManager(root)
	mgr.Discover()
	ks, err := NewKeystrokes(mgr, "typer", NewExecutor(5000))
	if err != nil {
		t.Fatalf("NewKeystrokes() error = %v", err)
	}

	ks.Start(context.Background())
	for _, k := range []string{"C", "A", "T"} {
		if err := ks.Send(k, ""); err != nil {
			t.Fatalf("Send(%s) error = %v", k, err)
		}
	}
	ks.Close()

	sent, failed, _ := ks.Stats()
	if sent != 3 || failed != 0 {
		t.Errorf("Stats() = %d sent, %d failed, want 3/0", sent, failed)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var keys []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			t.Fatalf("bad request line %q: %v", line, err)
		}
		keys = append(keys, req.Key)
	}
	if strings.Join(keys, "") != "CAT" {
		t.Errorf("delivered keys = %v, want C A T", keys)
	}
}

func TestKeystrokes_RecordsFailures(t *testing.T) {
	root := t.TempDir()
	installPlugin(t, root, "broken", "#!/bin/sh\necho '{\"success\":false,\"error\":\"no display\"}'\n", "keystroke")

	mgr := NewManager(root)
	mgr.Discover()
	ks, err := NewKeystrokes(mgr, "broken", NewExecutor(5000))
	if err != nil {
		t.Fatalf("NewKeystrokes() error = %v", err)
	}

	ks.Start(context.Background())
	ks.Send("A", "A")
	ks.Close()

	sent, failed, lastErr := ks.Stats()
	if sent != 0 || failed != 1 {
		t.Errorf("Stats() = %d sent, %d failed, want 0/1", sent, failed)
	}
	if lastErr == nil || lastErr.Error() != "no display" {
		t.Errorf("lastErr = %v, want no display", lastErr)
	}
}

func TestKeystrokes_QueueFull(t *testing.T) {
	ks := &Keystrokes{queue: make(chan Request, 1)}

	if err := ks.Send("A", ""); err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	if err := ks.Send("B", ""); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second Send() error = %v, want ErrQueueFull", err)
	}
}

func TestNewKeystrokes_AutoSelect(t *testing.T) {
	root := t.TempDir()
	installPlugin(t, root, "volume", "#!/bin/sh\necho '{\"success\":true}'\n", "volume-up")

	mgr := NewManager(root)
	mgr.Discover()
	if _, err := NewKeystrokes(mgr, AutoSelect, NewExecutor(1000)); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("NewKeystrokes(auto) without candidates error = %v, want ErrPluginNotFound", err)
	}

	installPlugin(t, root, "typer", "#!/bin/sh\necho '{\"success\":true}'\n", "keystroke")
	mgr.Discover()
	ks, err := NewKeystrokes(mgr, AutoSelect, NewExecutor(1000))
	if err != nil {
		t.Fatalf("NewKeystrokes(auto) error = %v", err)
	}
	if ks.Name() != "typer" {
		t.Errorf("Name() = %q, want typer", ks.Name())
	}
}

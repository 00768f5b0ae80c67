package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeManifest creates root/dir/plugin.json from m.
func writeManifest(t *testing.T, root, dir string, m Manifest) string {
	t.Helper()
	pluginDir := filepath.Join(root, dir)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, manifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	dir := writeManifest(t, root, "keyboard", Manifest{
		Name:        "keyboard",
		Version:     "1.0.0",
		Description: "Types committed keys",
		Executable:  "keyboard",
		Actions:     []string{KeystrokeAction},
	})

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}
	p := plugins[0]
	if p.Manifest.Name != "keyboard" || p.Manifest.Version != "1.0.0" {
		t.Errorf("manifest = %+v", p.Manifest)
	}
	if p.Path != dir {
		t.Errorf("Path = %q, want %q", p.Path, dir)
	}
	if p.Executable != filepath.Join(dir, "keyboard") {
		t.Errorf("Executable = %q", p.Executable)
	}
	if !p.Supports(KeystrokeAction) {
		t.Error("plugin should support keystroke")
	}
}

func TestManager_Discover_SkipsInvalid(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "good", Manifest{Name: "good", Executable: "run"})
	writeManifest(t, root, "nameless", Manifest{Executable: "run"})
	writeManifest(t, root, "escape", Manifest{Name: "escape", Executable: "../../bin/sh"})
	writeManifest(t, root, "noexec", Manifest{Name: "noexec"})

	broken := filepath.Join(root, "broken")
	os.MkdirAll(broken, 0755)
	os.WriteFile(filepath.Join(broken, manifestFile), []byte("{not json"), 0644)

	os.MkdirAll(filepath.Join(root, "empty"), 0755)
	os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0644)

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 || plugins[0].Manifest.Name != "good" {
		names := make([]string, len(plugins))
		for i, p := range plugins {
			names[i] = p.Manifest.Name
		}
		t.Errorf("discovered %v, want [good]", names)
	}
}

func TestManager_Discover_DuplicateNameKeepsFirst(t *testing.T) {
	root := t.TempDir()
	first := writeManifest(t, root, "a-typer", Manifest{Name: "typer", Executable: "run"})
	writeManifest(t, root, "b-typer", Manifest{Name: "typer", Executable: "run"})

	manager := NewManager(root)
	manager.Discover()

	p, err := manager.Get("typer")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Path != first {
		t.Errorf("Path = %q, want %q", p.Path, first)
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	root := t.TempDir()
	dir := writeManifest(t, root, "typer", Manifest{Name: "typer", Executable: "run"})

	manager := NewManager(root)
	manager.Discover()
	if len(manager.List()) != 1 {
		t.Fatal("expected 1 plugin before removal")
	}

	os.RemoveAll(dir)
	manager.Discover()
	if len(manager.List()) != 0 {
		t.Error("removed plugin should disappear after rescan")
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := manager.Discover(); err != nil {
		t.Errorf("Discover() on missing dir error = %v", err)
	}
	if len(manager.List()) != 0 {
		t.Error("expected no plugins")
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	manager := NewManager(t.TempDir())
	manager.Discover()

	if _, err := manager.Get("missing"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Get() error = %v, want ErrPluginNotFound", err)
	}
}

func TestManager_ListAndForAction(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "zeta", Manifest{Name: "zeta", Executable: "run", Actions: []string{KeystrokeAction}})
	writeManifest(t, root, "alpha", Manifest{Name: "alpha", Executable: "run", Actions: []string{KeystrokeAction, "shortcut"}})
	writeManifest(t, root, "volume", Manifest{Name: "volume", Executable: "run", Actions: []string{"volume-up"}})

	manager := NewManager(root)
	manager.Discover()

	tests := []struct {
		name string
		got  []*Plugin
		want []string
	}{
		{"list", manager.List(), []string{"alpha", "volume", "zeta"}},
		{"keystroke", manager.ForAction(KeystrokeAction), []string{"alpha", "zeta"}},
		{"unknown", manager.ForAction("launch"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.got) != len(tt.want) {
				t.Fatalf("got %d plugins, want %d", len(tt.got), len(tt.want))
			}
			for i, p := range tt.got {
				if p.Manifest.Name != tt.want[i] {
					t.Errorf("[%d] = %q, want %q", i, p.Manifest.Name, tt.want[i])
				}
			}
		})
	}
}

func TestManager_PluginDir(t *testing.T) {
	manager := NewManager("/some/plugin/dir")
	if manager.PluginDir() != "/some/plugin/dir" {
		t.Errorf("PluginDir() = %q", manager.PluginDir())
	}
}

package suggest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DefaultWordListURL is the public English word list fetched when no local copy exists.
const DefaultWordListURL = "https://raw.githubusercontent.com/dwyl/english-words/master/words.txt"

// fetchTimeout bounds the download.
const fetchTimeout = 60 * time.Second

// Source describes where the word list lives.
type Source struct {
	Path   string
	URL    string
	Max    int
	Client *http.Client
}

// Fetch downloads the word list to path unless it already exists.
// The file is written to a temporary name first so a failed download never
// leaves a partial list behind.
func Fetch(ctx context.Context, client *http.Client, url, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat word list: %w", err)
	}
	if url == "" {
		return fmt.Errorf("word list %s missing and no download URL configured", path)
	}
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download word list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download word list: unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create word list dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".words-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write word list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close word list: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}

// Open fetches the word list if needed and loads it. On any failure it
// returns an empty dictionary alongside the error so callers can keep
// running without autocomplete.
func Open(ctx context.Context, src Source) (*Dictionary, error) {
	if err := Fetch(ctx, src.Client, src.URL, src.Path); err != nil {
		return Empty(src.Max), err
	}
	d, err := ReadFile(src.Path, src.Max)
	if err != nil {
		return Empty(src.Max), err
	}
	return d, nil
}

package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayusman/gazekeys/internal/log"
)

const (
	// KeystrokeAction is the action a keystroke plugin must support.
	KeystrokeAction = "keystroke"
	// AutoSelect asks NewKeystrokes to pick any keystroke plugin.
	AutoSelect = "auto"
)

const queueSize = 64

// ErrQueueFull is returned by Send when the plugin cannot keep up.
var ErrQueueFull = errors.New("keystroke queue full")

// Keystrokes forwards committed keys to a plugin in order, off the frame loop.
type Keystrokes struct {
	plugin   *Plugin
	executor *Executor
	queue    chan Request

	wg      sync.WaitGroup
	mu      sync.Mutex
	sent    int
	failed  int
	lastErr error
}

// NewKeystrokes looks up name in manager and checks it supports keystrokes.
// The name AutoSelect picks the first plugin that does.
func NewKeystrokes(manager *Manager, name string, executor *Executor) (*Keystrokes, error) {
	if name == AutoSelect {
		candidates := manager.ForAction(KeystrokeAction)
		if len(candidates) == 0 {
			return nil, fmt.Errorf("no plugin supports %q: %w", KeystrokeAction, ErrPluginNotFound)
		}
		name = candidates[0].Manifest.Name
	}

	p, err := manager.Get(name)
	if err != nil {
		return nil, fmt.Errorf("keystroke plugin %q: %w", name, err)
	}
	if !p.Supports(KeystrokeAction) {
		return nil, fmt.Errorf("plugin %q does not support %q", name, KeystrokeAction)
	}
	return &Keystrokes{
		plugin:   p,
		executor: executor,
		queue:    make(chan Request, queueSize),
	}, nil
}

// Start runs the delivery worker until ctx is done or Close is called.
func (k *Keystrokes) Start(ctx context.Context) {
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case req, ok := <-k.queue:
				if !ok {
					return
				}
				k.deliver(ctx, req)
			}
		}
	}()
}

// Send queues key without blocking.
func (k *Keystrokes) Send(key, text string) error {
	select {
	case k.queue <- Request{Action: KeystrokeAction, Key: key, Text: text}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting keys and waits for queued ones to be delivered.
func (k *Keystrokes) Close() {
	close(k.queue)
	k.wg.Wait()
}

func (k *Keystrokes) deliver(ctx context.Context, req Request) {
	resp, err := k.executor.ExecuteContext(ctx, k.plugin, &req)
	if err == nil && !resp.Success {
		err = errors.New(resp.Error)
	}

	k.mu.Lock()
	if err != nil {
		k.failed++
		k.lastErr = err
	} else {
		k.sent++
	}
	k.mu.Unlock()

	if err != nil {
		log.Warn("keystroke plugin failed", "plugin", k.plugin.Manifest.Name, "key", req.Key, "error", err)
	}
}

// Stats returns delivered and failed counts and the last error.
func (k *Keystrokes) Stats() (sent, failed int, lastErr error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sent, k.failed, k.lastErr
}

// Name returns the plugin receiving keystrokes.
func (k *Keystrokes) Name() string {
	return k.plugin.Manifest.Name
}

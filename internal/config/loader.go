package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ErrInvalidPolicy marks a policy that parsed but was rejected by the
// loader's validate hook.
var ErrInvalidPolicy = errors.New("invalid policy")

// Loader reads a policy file and watches it for changes.
type Loader struct {
	path     string
	validate func(*Policy) error
	mu       sync.RWMutex
	current  *Policy
	onChange []func(*Policy)
}

// NewLoader creates a Loader and performs the initial load.
//
// validate, if non-nil, runs on every load before the policy is committed;
// a policy it rejects never replaces the current one.
func NewLoader(path string, validate func(*Policy) error) (*Loader, error) {
	l := &Loader{path: path, validate: validate}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Path returns the policy file path.
func (l *Loader) Path() string { return l.path }

// Config returns the current (latest) configuration.
func (l *Loader) Config() *Policy {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*Policy)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on file changes.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						slog.Warn("config reload failed, keeping previous policy", "path", l.path, "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "path", l.path, "err", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// Reload forces an immediate re-read of the config file. On error the
// current policy is kept and no callback runs.
func (l *Loader) Reload() (*Policy, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*Policy), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

func (l *Loader) load() (*Policy, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	cfg, err := Parse(data, l.path)
	if err != nil {
		return nil, err
	}
	if l.validate != nil {
		if err := l.validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", l.path, ErrInvalidPolicy, err)
		}
	}
	return cfg, nil
}

// Parse decodes data according to the extension of path: .yaml/.yml, .hcl,
// or the line-oriented policy format for anything else.
func Parse(data []byte, path string) (*Policy, error) {
	var (
		cfg *Policy
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg = &Policy{}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".hcl":
		if cfg, err = ParseHCL(data, path); err != nil {
			return nil, err
		}
	default:
		if cfg, err = ParsePolicyFile(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.Source = path
	applyDefaults(cfg)
	return cfg, nil
}

// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package remoteconfig provides the read-only boolean/duration provider
// consulted by megaphone eligibility rules.
//
// Values come from a YAML file that stands in for the server-delivered
// configuration payload; the provider hot-reloads on file changes so flag
// flips take effect without a restart. Reads always see a complete
// snapshot: a reload swaps the whole value set under a write lock, never
// a partial one. A file that fails to parse leaves the previous snapshot
// in place.
package remoteconfig

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// MaxFileSize caps the config file read to keep a corrupt or hostile file
// from ballooning memory.
const MaxFileSize = 1024 * 1024

// payload is the YAML shape of the config file.
type payload struct {
	Flags     map[string]bool   `yaml:"flags"`
	Durations map[string]string `yaml:"durations"`
}

// Provider serves boolean flags and tuning durations by named key.
//
// Thread Safety: Safe for concurrent use; reads take a shared lock.
type Provider struct {
	mu        sync.RWMutex
	flags     map[string]bool
	durations map[string]time.Duration

	path   string
	logger *slog.Logger
}

// Load reads the config file at path and returns a provider over it.
// Call Watch to enable hot reload.
func Load(path string, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{path: path, logger: logger}
	if err := p.reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Static returns a provider over fixed values, for tests and embedded
// callers with no config file.
func Static(flags map[string]bool, durations map[string]time.Duration) *Provider {
	return &Provider{
		flags:     flags,
		durations: durations,
		logger:    slog.Default(),
	}
}

func (p *Provider) reload() error {
	info, err := os.Stat(p.path)
	if err != nil {
		return fmt.Errorf("stat remote config %s: %w", p.path, err)
	}
	if info.Size() > MaxFileSize {
		return fmt.Errorf("remote config %s exceeds %d bytes", p.path, MaxFileSize)
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read remote config %s: %w", p.path, err)
	}

	var raw payload
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse remote config %s: %w", p.path, err)
	}

	durations := make(map[string]time.Duration, len(raw.Durations))
	for key, val := range raw.Durations {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parse remote config duration %s=%q: %w", key, val, err)
		}
		durations[key] = d
	}

	p.mu.Lock()
	p.flags = raw.Flags
	p.durations = durations
	p.mu.Unlock()

	p.logger.Info("remote config loaded",
		slog.String("path", p.path),
		slog.Int("flags", len(raw.Flags)),
		slog.Int("durations", len(durations)))
	return nil
}

// Watch reloads the provider whenever the config file changes, until the
// context is cancelled. Reload failures keep the previous snapshot and
// are logged, not fatal.
func (p *Provider) Watch(ctx context.Context) error {
	if p.path == "" {
		return fmt.Errorf("watch: provider has no backing file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	// Watch the directory: editors and config pushes typically replace
	// the file, which would orphan a watch on the file itself.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config directory: %w", err)
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(p.path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := p.reload(); err != nil {
					p.logger.Warn("remote config reload failed; keeping previous values",
						slog.String("error", err.Error()))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.logger.Warn("remote config watcher error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}

// Bool returns the flag value, or false for unknown keys.
func (p *Provider) Bool(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.flags[key]
}

// Duration returns the duration for key, or def when the key is absent.
func (p *Provider) Duration(key string, def time.Duration) time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if d, ok := p.durations[key]; ok {
		return d
	}
	return def
}

// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remoteconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "megaphones.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
flags:
  megaphones.introducingPins: true
  megaphones.usageSurvey: false
durations:
  megaphones.pinReminderInterval: 672h
`)

	p, err := Load(path, nil)
	require.NoError(t, err)

	assert.True(t, p.Bool("megaphones.introducingPins"))
	assert.False(t, p.Bool("megaphones.usageSurvey"))
	assert.False(t, p.Bool("megaphones.neverDefined"), "unknown flags read false")

	assert.Equal(t, 672*time.Hour, p.Duration("megaphones.pinReminderInterval", time.Hour))
	assert.Equal(t, time.Hour, p.Duration("megaphones.unknown", time.Hour), "unknown keys use the default")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
durations:
  megaphones.pinReminderInterval: "four weeks"
`)
	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "flags: [not, a, map")
	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestReloadKeepsPreviousSnapshotOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "flags:\n  megaphones.usageSurvey: true\n")

	p, err := Load(path, nil)
	require.NoError(t, err)
	require.True(t, p.Bool("megaphones.usageSurvey"))

	// Corrupt the file; a direct reload fails but readable values stay.
	require.NoError(t, os.WriteFile(path, []byte("flags: [broken"), 0600))
	assert.Error(t, p.reload())
	assert.True(t, p.Bool("megaphones.usageSurvey"))
}

func TestReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "flags:\n  megaphones.usageSurvey: false\n")

	p, err := Load(path, nil)
	require.NoError(t, err)
	require.False(t, p.Bool("megaphones.usageSurvey"))

	require.NoError(t, os.WriteFile(path, []byte("flags:\n  megaphones.usageSurvey: true\n"), 0600))
	require.NoError(t, p.reload())
	assert.True(t, p.Bool("megaphones.usageSurvey"))
}

func TestStatic(t *testing.T) {
	p := Static(
		map[string]bool{"megaphones.avatarBuilder": true},
		map[string]time.Duration{"megaphones.pinReminderInterval": 24 * time.Hour},
	)
	assert.True(t, p.Bool("megaphones.avatarBuilder"))
	assert.Equal(t, 24*time.Hour, p.Duration("megaphones.pinReminderInterval", time.Hour))

	assert.Error(t, p.Watch(context.Background()), "static providers have nothing to watch")
}

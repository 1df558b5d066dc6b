// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestMarkViewedFirstViewWins(t *testing.T) {
	r := New("introducing_pins")
	require.False(t, r.HasViewed())

	assert.True(t, r.MarkViewed(baseTime))
	first := r.FirstViewedAt
	require.NotZero(t, first)

	// A later view must not overwrite the original timestamp.
	assert.False(t, r.MarkViewed(baseTime.Add(time.Hour)))
	assert.Equal(t, first, r.FirstViewedAt)
}

func TestMarkSnoozedRefreshesCooldown(t *testing.T) {
	r := New("pin_reminder")
	r.MarkSnoozed(baseTime)
	first := r.LastSnoozedAt

	r.MarkSnoozed(baseTime.Add(2 * time.Hour))
	assert.Greater(t, r.LastSnoozedAt, first)
}

func TestIsSnoozedBoundary(t *testing.T) {
	const cooldown = 48 * time.Hour

	r := New("introducing_pins")
	assert.False(t, r.IsSnoozed(baseTime, cooldown), "never snoozed")

	r.MarkSnoozed(baseTime)
	assert.True(t, r.IsSnoozed(baseTime, cooldown))
	assert.True(t, r.IsSnoozed(baseTime.Add(cooldown-time.Millisecond), cooldown))

	// The transition happens exactly at lastSnoozedAt + cooldown; the
	// boundary instant counts as not snoozed.
	assert.False(t, r.IsSnoozed(baseTime.Add(cooldown), cooldown))
	assert.False(t, r.IsSnoozed(baseTime.Add(cooldown+time.Millisecond), cooldown))
}

func TestIsSnoozedZeroDuration(t *testing.T) {
	r := New("pin_reminder")
	r.MarkSnoozed(baseTime)
	assert.False(t, r.IsSnoozed(baseTime, 0))
}

func TestDaysSinceFirstViewed(t *testing.T) {
	r := New("introducing_pins")
	assert.Equal(t, 0, r.DaysSinceFirstViewed(baseTime), "unset means zero")

	r.MarkViewed(baseTime)
	assert.Equal(t, 0, r.DaysSinceFirstViewed(baseTime.Add(23*time.Hour)))
	assert.Equal(t, 1, r.DaysSinceFirstViewed(baseTime.Add(24*time.Hour)))
	assert.Equal(t, 6, r.DaysSinceFirstViewed(baseTime.Add(7*24*time.Hour-time.Minute)))
	assert.Equal(t, 7, r.DaysSinceFirstViewed(baseTime.Add(7*24*time.Hour)))
}

func TestHasCompletedVisibleDuration(t *testing.T) {
	r := New("introducing_pins")

	// Unviewed records never auto-retire.
	assert.False(t, r.HasCompletedVisibleDuration(baseTime.Add(30*24*time.Hour), 7))

	r.MarkViewed(baseTime)
	assert.False(t, r.HasCompletedVisibleDuration(baseTime.Add(6*24*time.Hour), 7))
	assert.True(t, r.HasCompletedVisibleDuration(baseTime.Add(7*24*time.Hour), 7))

	// A zero limit disables the rule.
	assert.False(t, r.HasCompletedVisibleDuration(baseTime.Add(365*24*time.Hour), 0))
}

func TestMarshalRoundTrip(t *testing.T) {
	r := New("avatar_builder")
	r.MarkViewed(baseTime)
	r.MarkSnoozed(baseTime.Add(time.Hour))
	r.MarkComplete()

	data, err := r.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal([]byte("not json"))
	assert.Error(t, err)
}

// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package record defines the persisted per-megaphone state row.
//
// A Record tracks the durable lifecycle of one megaphone for one account:
// whether it has been completed, when it was first seen, and when it was
// last snoozed. Absence of a row is equivalent to a zero Record for that
// id. Rows are upserted by the selector and never deleted; rows for ids
// removed from the catalog simply stop being loaded.
//
// Timestamps are Unix milliseconds UTC; 0 means unset. Derived predicates
// (IsSnoozed, DaysSinceFirstViewed, HasCompletedVisibleDuration) are pure
// functions of the row and a caller-supplied instant, recomputed on every
// read — their truth changes with elapsed time alone and must never be
// cached.
package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the persisted state for a single megaphone id.
type Record struct {
	// ID is the megaphone's stable string identifier.
	ID string `json:"id"`

	// IsComplete marks the megaphone as finished; complete rows are
	// excluded from the active list permanently.
	IsComplete bool `json:"is_complete"`

	// FirstViewedAt is when the megaphone was first presented
	// (Unix milliseconds UTC, 0 = never viewed). Set at most once.
	FirstViewedAt int64 `json:"first_viewed_at,omitempty"`

	// LastSnoozedAt is when the megaphone was most recently snoozed
	// (Unix milliseconds UTC, 0 = never snoozed).
	LastSnoozedAt int64 `json:"last_snoozed_at,omitempty"`
}

// New returns a fresh record for the id with no view, snooze, or
// completion state. Equivalent to a missing storage row.
func New(id string) Record {
	return Record{ID: id}
}

// HasViewed reports whether the megaphone has ever been presented.
func (r Record) HasViewed() bool {
	return r.FirstViewedAt != 0
}

// MarkViewed sets FirstViewedAt to now if it is unset.
//
// First view wins: repeat calls leave the original timestamp intact.
// Returns true if the field changed.
func (r *Record) MarkViewed(now time.Time) bool {
	if r.FirstViewedAt != 0 {
		return false
	}
	r.FirstViewedAt = now.UnixMilli()
	return true
}

// MarkSnoozed sets LastSnoozedAt to now unconditionally. Repeated
// snoozing refreshes the cooldown.
func (r *Record) MarkSnoozed(now time.Time) {
	r.LastSnoozedAt = now.UnixMilli()
}

// MarkComplete sets IsComplete. Completion is one-way; nothing in this
// core clears it.
func (r *Record) MarkComplete() {
	r.IsComplete = true
}

// IsSnoozed reports whether the record is inside its snooze cooldown.
//
// The record is snoozed while strictly less than snoozeDuration has
// elapsed since LastSnoozedAt; at exactly lastSnoozedAt+snoozeDuration it
// is re-eligible.
func (r Record) IsSnoozed(now time.Time, snoozeDuration time.Duration) bool {
	if r.LastSnoozedAt == 0 || snoozeDuration <= 0 {
		return false
	}
	return now.Sub(time.UnixMilli(r.LastSnoozedAt)) < snoozeDuration
}

// DaysSinceFirstViewed returns the whole days elapsed since the first
// view, or 0 if the record has never been viewed.
func (r Record) DaysSinceFirstViewed(now time.Time) int {
	if r.FirstViewedAt == 0 {
		return 0
	}
	elapsed := now.Sub(time.UnixMilli(r.FirstViewedAt))
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

// HasCompletedVisibleDuration reports whether the megaphone auto-retires
// because it has been visible long enough, independent of explicit
// completion. maxVisibleDays <= 0 means the rule does not apply.
func (r Record) HasCompletedVisibleDuration(now time.Time, maxVisibleDays int) bool {
	if maxVisibleDays <= 0 || r.FirstViewedAt == 0 {
		return false
	}
	return r.DaysSinceFirstViewed(now) >= maxVisibleDays
}

// Marshal encodes the record for storage.
func (r Record) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal megaphone record %s: %w", r.ID, err)
	}
	return data, nil
}

// Unmarshal decodes a stored record.
func Unmarshal(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("unmarshal megaphone record: %w", err)
	}
	return r, nil
}

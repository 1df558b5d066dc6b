// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package megaphone

import (
	"time"

	"github.com/brohamgoham/Signal-iOS/services/megaphone/selector"
)

// MegaphoneView is the API representation of one active megaphone.
type MegaphoneView struct {
	ID       string `json:"id"`
	Priority string `json:"priority"`
	Snoozed  bool   `json:"snoozed"`

	// FirstViewedAt and LastSnoozedAt are Unix milliseconds UTC,
	// omitted when unset.
	FirstViewedAt int64 `json:"first_viewed_at,omitempty"`
	LastSnoozedAt int64 `json:"last_snoozed_at,omitempty"`
}

func newMegaphoneView(c selector.Candidate, now time.Time) MegaphoneView {
	return MegaphoneView{
		ID:            string(c.Definition.ID),
		Priority:      c.Definition.Priority.String(),
		Snoozed:       c.IsSnoozed(now),
		FirstViewedAt: c.Record.FirstViewedAt,
		LastSnoozedAt: c.Record.LastSnoozedAt,
	}
}

// NextResponse is the body of GET /megaphones/next. Megaphone is null
// when nothing should be shown.
type NextResponse struct {
	Megaphone *MegaphoneView `json:"megaphone"`
}

// ListResponse is the body of GET /megaphones.
type ListResponse struct {
	Megaphones []MegaphoneView `json:"megaphones"`
}

// StatusResponse is the body of GET /megaphones/:id.
type StatusResponse struct {
	ID         string `json:"id"`
	Incomplete bool   `json:"incomplete"`
	Unsnoozed  bool   `json:"unsnoozed"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

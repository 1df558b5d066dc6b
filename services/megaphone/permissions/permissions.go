// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package permissions models device authorization status queries.
//
// Permission checks on a device can involve an asynchronous round trip to
// the operating system, so every query here is bounded by a short timeout
// and resolves to a definite answer. A check that fails or times out is
// treated as "not granted" — eligibility rules built on top of this
// package fail closed rather than block or surface an error.
package permissions

import (
	"context"
	"time"
)

// Kind identifies a device permission consulted by eligibility rules.
type Kind int

const (
	// Contacts is access to the device address book.
	Contacts Kind = iota

	// Notifications is authorization to post user notifications.
	Notifications
)

// String returns the wire/logging name of the permission.
func (k Kind) String() string {
	switch k {
	case Contacts:
		return "contacts"
	case Notifications:
		return "notifications"
	default:
		return "unknown"
	}
}

// Status is the resolved authorization state of a permission.
type Status int

const (
	// StatusUndetermined means the user has never been asked.
	StatusUndetermined Status = iota

	// StatusDenied means the user refused or revoked the permission.
	StatusDenied

	// StatusGranted means the permission is currently authorized.
	StatusGranted
)

// Checker answers permission status queries.
//
// Implementations may consult the operating system asynchronously and are
// expected to honor context cancellation. The zero value of a status on
// error is irrelevant; callers must ignore it when err is non-nil.
type Checker interface {
	CurrentStatus(ctx context.Context, kind Kind) (Status, error)
}

// DefaultTimeout bounds a single permission query.
//
// Eligibility evaluation runs inline with selection queries, so a slow or
// wedged OS provider must not stall the caller. 250ms is generous for an
// in-process or IPC status read.
const DefaultTimeout = 250 * time.Millisecond

// Granted reports whether the permission is currently authorized.
//
// Description:
//
//	Races the checker against a bounded timeout. Any failure mode —
//	checker error, timeout, cancelled context, nil checker — resolves
//	to false. The answer is always definite and the call never blocks
//	longer than the timeout.
//
// Inputs:
//
//	ctx - Caller context; cancellation short-circuits to false.
//	c - The status checker. A nil checker resolves to false.
//	kind - Which permission to query.
//	timeout - Maximum wait. Non-positive values use DefaultTimeout.
//
// Outputs:
//
//	bool - True only if the checker reported StatusGranted in time.
func Granted(ctx context.Context, c Checker, kind Kind, timeout time.Duration) bool {
	if c == nil {
		return false
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type answer struct {
		status Status
		err    error
	}
	ch := make(chan answer, 1)
	go func() {
		status, err := c.CurrentStatus(ctx, kind)
		ch <- answer{status: status, err: err}
	}()

	select {
	case <-ctx.Done():
		return false
	case a := <-ch:
		if a.err != nil {
			return false
		}
		return a.status == StatusGranted
	}
}

// StaticChecker is a fixed-status Checker for tests and configuration-driven
// deployments. Kinds absent from the map report StatusUndetermined.
type StaticChecker map[Kind]Status

// CurrentStatus implements Checker.
func (s StaticChecker) CurrentStatus(_ context.Context, kind Kind) (Status, error) {
	return s[kind], nil
}

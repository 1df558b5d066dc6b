// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package permissions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// slowChecker never answers before the context expires.
type slowChecker struct{}

func (slowChecker) CurrentStatus(ctx context.Context, _ Kind) (Status, error) {
	<-ctx.Done()
	return StatusGranted, ctx.Err()
}

// failingChecker always errors.
type failingChecker struct{}

func (failingChecker) CurrentStatus(context.Context, Kind) (Status, error) {
	return StatusGranted, errors.New("xpc connection interrupted")
}

func TestGranted(t *testing.T) {
	ctx := context.Background()

	t.Run("granted status resolves true", func(t *testing.T) {
		c := StaticChecker{Notifications: StatusGranted}
		assert.True(t, Granted(ctx, c, Notifications, time.Second))
	})

	t.Run("denied status resolves false", func(t *testing.T) {
		c := StaticChecker{Notifications: StatusDenied}
		assert.False(t, Granted(ctx, c, Notifications, time.Second))
	})

	t.Run("undetermined resolves false", func(t *testing.T) {
		assert.False(t, Granted(ctx, StaticChecker{}, Contacts, time.Second))
	})

	t.Run("timeout fails closed", func(t *testing.T) {
		start := time.Now()
		assert.False(t, Granted(ctx, slowChecker{}, Notifications, 20*time.Millisecond))
		assert.Less(t, time.Since(start), time.Second, "must not block past the timeout")
	})

	t.Run("checker error fails closed", func(t *testing.T) {
		assert.False(t, Granted(ctx, failingChecker{}, Contacts, time.Second))
	})

	t.Run("nil checker fails closed", func(t *testing.T) {
		assert.False(t, Granted(ctx, nil, Contacts, time.Second))
	})

	t.Run("cancelled context fails closed", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.False(t, Granted(cancelled, slowChecker{}, Notifications, time.Second))
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "contacts", Contacts.String())
	assert.Equal(t, "notifications", Notifications.String())
}

// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package catalog defines the fixed set of megaphones and their rules.
//
// A megaphone is a one-time or recurring in-app prompt (onboarding tip,
// permission reminder, feature announcement). Each definition is pure,
// stateless metadata plus an eligibility predicate evaluated against a
// read-only Env snapshot. Nothing in this package performs I/O beyond the
// providers handed in through Env, and every rule is deterministic given
// the same snapshot.
//
// The catalog is a closed enumeration: declaration order in the table is
// meaningful and acts as the tie-break between megaphones of equal
// priority. Reordering entries changes which of two simultaneously
// eligible, equal-priority megaphones a user sees first.
package catalog

import (
	"context"
	"time"

	"github.com/brohamgoham/Signal-iOS/services/megaphone/permissions"
)

// ID is the stable string identifier of a megaphone. Values are part of
// the on-disk contract and must never be renamed.
type ID string

const (
	IntroducingPINs                 ID = "introducing_pins"
	PINReminder                     ID = "pin_reminder"
	NotificationsPermissionReminder ID = "notifications_permission_reminder"
	ContactsPermissionReminder      ID = "contacts_permission_reminder"
	AvatarBuilder                   ID = "avatar_builder"
	InactiveLinkedDeviceReminder    ID = "inactive_linked_device_reminder"
	UsageSurvey                     ID = "usage_survey"
)

// Priority is the coarse ranking bucket used as the primary sort key of
// the active list.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// String returns the logging name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// RemoteConfig exposes server-controlled rollout values by named key.
// Missing keys read as false / the caller's default.
type RemoteConfig interface {
	Bool(key string) bool
	Duration(key string, def time.Duration) time.Duration
}

// Profile exposes the local account profile state consulted by rules.
type Profile interface {
	// HasAvatarImage reports whether the profile has an avatar set.
	HasAvatarImage() bool

	// HasPIN reports whether the account has a PIN configured.
	HasPIN() bool

	// PINLastConfirmedAt is when the user last re-entered their PIN.
	// Zero means never.
	PINLastConfirmedAt() time.Time
}

// DeviceDirectory exposes the linked devices of the account.
type DeviceDirectory interface {
	// LinkedDeviceLastSeen returns the last-seen instant of every
	// linked device other than the current one.
	LinkedDeviceLastSeen() []time.Time
}

// Reachability reports whether the network is currently usable.
type Reachability interface {
	IsReachable() bool
}

// Env is the read-only context snapshot an eligibility rule may consult.
//
// It is assembled once per query and threaded through explicitly; rules
// must not reach for process-wide state. All providers may be faked in
// tests. Now and RegisteredAt are captured into the snapshot so that one
// ActiveList computation sees a single consistent instant.
type Env struct {
	// Now is the load instant of the snapshot.
	Now time.Time

	// RegisteredAt is when the account was created.
	RegisteredAt time.Time

	// PrimaryDevice is true on the account's authoritative device.
	PrimaryDevice bool

	Remote       RemoteConfig
	Profile      Profile
	Devices      DeviceDirectory
	Permissions  permissions.Checker
	Reachability Reachability

	// PermissionTimeout bounds a single permission status query.
	// Non-positive values use permissions.DefaultTimeout.
	PermissionTimeout time.Duration
}

// accountAge is a convenience for delay gates.
func (e *Env) accountAge() time.Duration {
	return e.Now.Sub(e.RegisteredAt)
}

// reachable fails closed when no reachability provider is wired.
func (e *Env) reachable() bool {
	return e.Reachability != nil && e.Reachability.IsReachable()
}

// Definition is the complete rule set for one megaphone.
//
// All fields are immutable metadata; the eligibility predicate is the
// only behavior and it is pure with respect to the Env snapshot.
type Definition struct {
	ID       ID
	Priority Priority

	// DelayAfterRegistration is the minimum account age before
	// eligibility is even evaluated.
	DelayAfterRegistration time.Duration

	// SnoozeDuration is the cooldown after snoozing before the
	// megaphone may be shown again.
	SnoozeDuration time.Duration

	// SkipOnNewUser marks megaphones that a freshly registered account
	// should never see; they are completed at account creation.
	SkipOnNewUser bool

	// Persistable is false for megaphones whose state is re-evaluated
	// fresh on every query and never written to storage.
	Persistable bool

	// Completable is false for perpetual megaphones that can only be
	// snoozed, never finished.
	Completable bool

	// VisibleOnLinkedDevices allows non-primary devices on the account
	// to see the megaphone.
	VisibleOnLinkedDevices bool

	// MaxVisibleDays auto-retires the megaphone once this many whole
	// days have elapsed since its first view. 0 disables the rule.
	MaxVisibleDays int

	// ExpiresAt ends the megaphone's run. Zero means never.
	ExpiresAt time.Time

	eligible func(ctx context.Context, env *Env) bool
}

// Eligible reports whether the megaphone is currently allowed to appear.
//
// The registration-delay gate is checked first and short-circuits to
// false before any id-specific condition runs, so expensive providers
// (permission status, reachability) are never consulted for accounts that
// are too new. Provider failures inside the predicate resolve to false.
func (d Definition) Eligible(ctx context.Context, env *Env) bool {
	if env.accountAge() < d.DelayAfterRegistration {
		return false
	}
	return d.eligible(ctx, env)
}

// HasExpired reports whether the megaphone's run has ended.
func (d Definition) HasExpired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && !now.Before(d.ExpiresAt)
}

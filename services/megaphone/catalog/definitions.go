// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"context"
	"time"

	"github.com/brohamgoham/Signal-iOS/services/megaphone/permissions"
)

// Remote config keys consulted by eligibility rules. Boolean keys gate
// rollout per megaphone; duration keys tune recurring intervals.
const (
	FlagIntroducingPINs       = "megaphones.introducingPins"
	FlagPINReminder           = "megaphones.pinReminder"
	FlagNotificationsReminder = "megaphones.notificationsReminder"
	FlagContactsReminder      = "megaphones.contactsReminder"
	FlagAvatarBuilder         = "megaphones.avatarBuilder"
	FlagInactiveLinkedDevice  = "megaphones.inactiveLinkedDevice"
	FlagUsageSurvey           = "megaphones.usageSurvey"

	KeyPINReminderInterval           = "megaphones.pinReminderInterval"
	KeyInactiveLinkedDeviceThreshold = "megaphones.inactiveLinkedDeviceThreshold"
)

const (
	defaultPINReminderInterval           = 28 * 24 * time.Hour
	defaultInactiveLinkedDeviceThreshold = 30 * 24 * time.Hour
)

// usageSurveyCloses ends the survey campaign regardless of remote flags.
var usageSurveyCloses = time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)

// definitions is the catalog, in declaration order. The order is the
// tie-break between equal-priority megaphones in the active list.
var definitions = []Definition{
	{
		ID:                     IntroducingPINs,
		Priority:               PriorityHigh,
		DelayAfterRegistration: 2 * time.Hour,
		SnoozeDuration:         48 * time.Hour,
		SkipOnNewUser:          true, // new accounts create a PIN during registration
		Persistable:            true,
		Completable:            true,
		MaxVisibleDays:         7,
		eligible: func(_ context.Context, env *Env) bool {
			return env.Remote.Bool(FlagIntroducingPINs) && !env.Profile.HasPIN()
		},
	},
	{
		ID:                     PINReminder,
		Priority:               PriorityMedium,
		DelayAfterRegistration: 8 * time.Hour,
		SnoozeDuration:         72 * time.Hour,
		Persistable:            true,
		Completable:            false, // recurring; re-arms after each confirmation
		eligible: func(_ context.Context, env *Env) bool {
			if !env.Remote.Bool(FlagPINReminder) || !env.Profile.HasPIN() {
				return false
			}
			confirmed := env.Profile.PINLastConfirmedAt()
			if confirmed.IsZero() {
				return true
			}
			interval := env.Remote.Duration(KeyPINReminderInterval, defaultPINReminderInterval)
			return env.Now.Sub(confirmed) >= interval
		},
	},
	{
		ID:                     NotificationsPermissionReminder,
		Priority:               PriorityHigh,
		DelayAfterRegistration: 24 * time.Hour,
		SnoozeDuration:         72 * time.Hour,
		Persistable:            false, // permission state is the source of truth
		Completable:            false,
		eligible: func(ctx context.Context, env *Env) bool {
			return env.Remote.Bool(FlagNotificationsReminder) &&
				!permissions.Granted(ctx, env.Permissions, permissions.Notifications, env.PermissionTimeout)
		},
	},
	{
		ID:                     ContactsPermissionReminder,
		Priority:               PriorityMedium,
		DelayAfterRegistration: 24 * time.Hour,
		SnoozeDuration:         7 * 24 * time.Hour,
		Persistable:            false,
		Completable:            false,
		eligible: func(ctx context.Context, env *Env) bool {
			return env.Remote.Bool(FlagContactsReminder) &&
				!permissions.Granted(ctx, env.Permissions, permissions.Contacts, env.PermissionTimeout)
		},
	},
	{
		ID:                     AvatarBuilder,
		Priority:               PriorityLow,
		DelayAfterRegistration: 7 * 24 * time.Hour,
		SnoozeDuration:         14 * 24 * time.Hour,
		Persistable:            true,
		Completable:            true,
		VisibleOnLinkedDevices: true,
		eligible: func(_ context.Context, env *Env) bool {
			return env.Remote.Bool(FlagAvatarBuilder) && !env.Profile.HasAvatarImage()
		},
	},
	{
		ID:             InactiveLinkedDeviceReminder,
		Priority:       PriorityLow,
		SnoozeDuration: 7 * 24 * time.Hour,
		Persistable:    true,
		Completable:    false, // re-arms while any device stays inactive
		eligible: func(_ context.Context, env *Env) bool {
			if !env.Remote.Bool(FlagInactiveLinkedDevice) || !env.reachable() {
				return false
			}
			if env.Devices == nil {
				return false
			}
			threshold := env.Remote.Duration(KeyInactiveLinkedDeviceThreshold, defaultInactiveLinkedDeviceThreshold)
			for _, lastSeen := range env.Devices.LinkedDeviceLastSeen() {
				if env.Now.Sub(lastSeen) >= threshold {
					return true
				}
			}
			return false
		},
	},
	{
		ID:                     UsageSurvey,
		Priority:               PriorityLow,
		DelayAfterRegistration: 30 * 24 * time.Hour,
		SnoozeDuration:         30 * 24 * time.Hour,
		SkipOnNewUser:          true, // research prompt; meaningless for brand-new accounts
		Persistable:            true,
		Completable:            true,
		VisibleOnLinkedDevices: true,
		ExpiresAt:              usageSurveyCloses,
		eligible: func(_ context.Context, env *Env) bool {
			return env.Remote.Bool(FlagUsageSurvey) && env.reachable()
		},
	},
}

var byID = func() map[ID]Definition {
	m := make(map[ID]Definition, len(definitions))
	for _, d := range definitions {
		m[d.ID] = d
	}
	return m
}()

// All returns the catalog in declaration order. The returned slice is
// shared; callers must not mutate it.
func All() []Definition {
	return definitions
}

// Lookup returns the definition for id, reporting whether the id is part
// of the catalog. Persisted rows whose key fails Lookup belong to removed
// megaphones and are ignored.
func Lookup(id ID) (Definition, bool) {
	d, ok := byID[id]
	return d, ok
}

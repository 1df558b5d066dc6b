// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package megaphone

import (
	"time"

	"github.com/brohamgoham/Signal-iOS/services/megaphone/permissions"
)

// AccountConfig describes the account and device state served to
// eligibility rules. In a full client these values come from the account
// manager, profile store, and OS; here they are supplied by the service
// configuration.
type AccountConfig struct {
	// RegisteredAt is when the account was created.
	RegisteredAt time.Time `yaml:"registered_at" validate:"required"`

	// PrimaryDevice marks this device as the account's authoritative one.
	PrimaryDevice bool `yaml:"primary_device"`

	// HasPIN reports whether a PIN is configured.
	HasPIN bool `yaml:"has_pin"`

	// PINLastConfirmedAt is when the PIN was last re-entered. Zero means never.
	PINLastConfirmedAt time.Time `yaml:"pin_last_confirmed_at"`

	// HasAvatar reports whether the profile has an avatar image.
	HasAvatar bool `yaml:"has_avatar"`

	// LinkedDeviceLastSeen lists the last-seen instant of each other
	// linked device on the account.
	LinkedDeviceLastSeen []time.Time `yaml:"linked_device_last_seen"`

	// Permissions maps permission names ("contacts", "notifications")
	// to a status: "granted", "denied", or "undetermined".
	Permissions map[string]string `yaml:"permissions"`

	// Offline disables network-dependent megaphones.
	Offline bool `yaml:"offline"`
}

type configProfile struct {
	cfg AccountConfig
}

func (p configProfile) HasAvatarImage() bool          { return p.cfg.HasAvatar }
func (p configProfile) HasPIN() bool                  { return p.cfg.HasPIN }
func (p configProfile) PINLastConfirmedAt() time.Time { return p.cfg.PINLastConfirmedAt }

type configDevices []time.Time

func (d configDevices) LinkedDeviceLastSeen() []time.Time { return d }

type configReachability bool

func (r configReachability) IsReachable() bool { return bool(r) }

// permissionChecker builds a fixed checker from the config map. Unknown
// names are ignored; unknown statuses read as undetermined, which the
// probe resolves to not-granted.
func permissionChecker(m map[string]string) permissions.Checker {
	checker := permissions.StaticChecker{}
	for name, status := range m {
		var kind permissions.Kind
		switch name {
		case "contacts":
			kind = permissions.Contacts
		case "notifications":
			kind = permissions.Notifications
		default:
			continue
		}
		switch status {
		case "granted":
			checker[kind] = permissions.StatusGranted
		case "denied":
			checker[kind] = permissions.StatusDenied
		default:
			checker[kind] = permissions.StatusUndetermined
		}
	}
	return checker
}

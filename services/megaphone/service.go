// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package megaphone exposes the megaphone engine over HTTP.
//
// The Service assembles a fresh read-only Env snapshot per request, runs
// each query under one read transaction and each mutation under one write
// transaction, and maps the selector's results onto a small JSON API. The
// core packages (catalog, selector, record, storage) know nothing about
// HTTP.
package megaphone

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/brohamgoham/Signal-iOS/services/megaphone/catalog"
	"github.com/brohamgoham/Signal-iOS/services/megaphone/permissions"
	"github.com/brohamgoham/Signal-iOS/services/megaphone/selector"
	"github.com/brohamgoham/Signal-iOS/services/megaphone/storage"
)

// Service wires the selector to storage and the per-request Env snapshot.
type Service struct {
	db      *storage.DB
	sel     *selector.Selector
	remote  catalog.RemoteConfig
	account AccountConfig
	checker permissions.Checker
	logger  *slog.Logger
	clock   func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock pins the service clock, for tests.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

// WithPermissionChecker replaces the config-derived permission checker,
// e.g. with one backed by the real OS.
func WithPermissionChecker(c permissions.Checker) ServiceOption {
	return func(s *Service) { s.checker = c }
}

// NewService creates the megaphone service over an open database.
func NewService(db *storage.DB, remote catalog.RemoteConfig, account AccountConfig, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		db:      db,
		remote:  remote,
		account: account,
		checker: permissionChecker(account.Permissions),
		logger:  logger,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sel = selector.New(storage.NewRecordStore(),
		selector.WithLogger(logger),
		selector.WithClock(s.clock))
	return s
}

// env assembles the read-only snapshot for one query.
func (s *Service) env() *catalog.Env {
	return &catalog.Env{
		Now:           s.clock(),
		RegisteredAt:  s.account.RegisteredAt,
		PrimaryDevice: s.account.PrimaryDevice,
		Remote:        s.remote,
		Profile:       configProfile{cfg: s.account},
		Devices:       configDevices(s.account.LinkedDeviceLastSeen),
		Permissions:   s.checker,
		Reachability:  configReachability(!s.account.Offline),
	}
}

// Next returns the megaphone to show now, or nil when there is none.
func (s *Service) Next(ctx context.Context) (*selector.Candidate, error) {
	var next *selector.Candidate
	err := s.db.View(ctx, func(txn *badger.Txn) error {
		var err error
		next, err = s.sel.Next(ctx, txn, s.env())
		return err
	})
	return next, err
}

// Incomplete returns every active megaphone, ordered, snoozed included.
func (s *Service) Incomplete(ctx context.Context) ([]selector.Candidate, error) {
	var list []selector.Candidate
	err := s.db.View(ctx, func(txn *badger.Txn) error {
		var err error
		list, err = s.sel.AllIncomplete(ctx, txn, s.env())
		return err
	})
	return list, err
}

// Status reports whether id is currently incomplete and whether it is
// outside its snooze cooldown.
func (s *Service) Status(ctx context.Context, id catalog.ID) (incomplete, unsnoozed bool, err error) {
	err = s.db.View(ctx, func(txn *badger.Txn) error {
		env := s.env()
		incomplete, err = s.sel.HasIncomplete(ctx, txn, env, id)
		if err != nil || !incomplete {
			return err
		}
		unsnoozed, err = s.sel.HasUnsnoozed(ctx, txn, env, id)
		return err
	})
	return incomplete, unsnoozed, err
}

// MarkViewed records the first presentation of id.
func (s *Service) MarkViewed(ctx context.Context, id catalog.ID) error {
	return s.db.Update(ctx, func(txn *badger.Txn) error {
		return s.sel.MarkViewed(ctx, txn, id)
	})
}

// MarkSnoozed defers id for its catalog cooldown.
func (s *Service) MarkSnoozed(ctx context.Context, id catalog.ID) error {
	return s.db.Update(ctx, func(txn *badger.Txn) error {
		return s.sel.MarkSnoozed(ctx, txn, id)
	})
}

// MarkComplete finishes id permanently.
func (s *Service) MarkComplete(ctx context.Context, id catalog.ID) error {
	return s.db.Update(ctx, func(txn *badger.Txn) error {
		return s.sel.MarkComplete(ctx, txn, id)
	})
}

// CompleteNewUserDefaults completes every skip-on-new-user megaphone.
// Called once when an account is created on this device.
func (s *Service) CompleteNewUserDefaults(ctx context.Context) error {
	return s.db.Update(ctx, func(txn *badger.Txn) error {
		return s.sel.MarkAllCompleteForNewUser(ctx, txn)
	})
}

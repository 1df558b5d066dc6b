// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package selector reconciles the megaphone catalog against persisted
// state and decides what to show next.
//
// Data flows one direction per query: catalog definitions → eligibility
// filter → persisted-row lookup/synthesis → completion filter → priority
// sort → ordered result. Mutations flow the other way: lookup/synthesis →
// single-field change → transactional upsert. Every operation runs inside
// one caller-supplied badger transaction; the selector spawns no
// goroutines and adds no locking of its own.
package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/brohamgoham/Signal-iOS/services/megaphone/catalog"
	"github.com/brohamgoham/Signal-iOS/services/megaphone/record"
	"github.com/brohamgoham/Signal-iOS/services/megaphone/storage"
)

var tracer = otel.Tracer("megaphone.selector")

// ErrUnknownMegaphone is returned when a mutation names an id that is not
// part of the catalog. Unknown ids on the read path are ignored instead.
var ErrUnknownMegaphone = errors.New("unknown megaphone id")

// Candidate pairs a catalog definition with its current (possibly
// synthesized) persisted record.
type Candidate struct {
	Definition catalog.Definition
	Record     record.Record
}

// IsSnoozed reports whether the candidate is inside its snooze cooldown
// at the given instant.
func (c Candidate) IsSnoozed(now time.Time) bool {
	return c.Record.IsSnoozed(now, c.Definition.SnoozeDuration)
}

// Selector computes the active megaphone list and applies lifecycle
// mutations.
//
// Thread Safety: Safe for concurrent use; all state lives in the
// transactions handed to each call.
type Selector struct {
	store  *storage.RecordStore
	logger *slog.Logger
	clock  func() time.Time
}

// Option configures a Selector.
type Option func(*Selector)

// WithClock overrides the mutation timestamp source. Tests use this to
// pin wall-clock time.
func WithClock(clock func() time.Time) Option {
	return func(s *Selector) { s.clock = clock }
}

// WithLogger sets the selector's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) { s.logger = logger }
}

// New creates a Selector over the given record store.
func New(store *storage.RecordStore, opts ...Option) *Selector {
	s := &Selector{
		store:  store,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ActiveList returns the ordered list of megaphones that may currently be
// shown, most important first.
//
// Description:
//
//	Filters the catalog down to ids that are eligible, unexpired, and
//	visible on this device (catalog order preserved), loads their
//	persisted rows in one pass, synthesizes fresh records for rows
//	that don't exist, drops completed and visible-duration-retired
//	entries, and sorts by priority descending with catalog declaration
//	order breaking ties. Rows persisted for ids that are no longer
//	persistable are discarded as legacy data; rows for ids outside the
//	catalog are never loaded at all.
//
// Inputs:
//
//	ctx - Caller context; bounds permission probes inside eligibility.
//	txn - The transaction scoping this query to one consistent view.
//	env - Read-only provider snapshot, including the query instant.
//
// Outputs:
//
//	[]Candidate - Ordered candidates. Snoozed entries are included.
//	error - Non-nil only on storage failure.
func (s *Selector) ActiveList(ctx context.Context, txn *badger.Txn, env *catalog.Env) ([]Candidate, error) {
	ctx, span := tracer.Start(ctx, "selector.ActiveList")
	defer span.End()
	start := time.Now()

	var active []catalog.Definition
	for _, def := range catalog.All() {
		if def.HasExpired(env.Now) {
			continue
		}
		if !def.VisibleOnLinkedDevices && !env.PrimaryDevice {
			continue
		}
		if !def.Eligible(ctx, env) {
			continue
		}
		active = append(active, def)
	}

	ids := make([]string, len(active))
	for i, def := range active {
		ids[i] = string(def.ID)
	}
	rows, err := s.store.FetchSet(txn, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record fetch failed")
		return nil, fmt.Errorf("load megaphone records: %w", err)
	}

	candidates := make([]Candidate, 0, len(active))
	for _, def := range active {
		rec, ok := rows[string(def.ID)]
		switch {
		case !ok:
			rec = record.New(string(def.ID))
		case !def.Persistable:
			// Legacy row from a version that persisted this id.
			s.logger.Debug("discarding stored row for non-persistable megaphone",
				slog.String("id", string(def.ID)))
			rec = record.New(string(def.ID))
		}

		if rec.IsComplete || rec.HasCompletedVisibleDuration(env.Now, def.MaxVisibleDays) {
			continue
		}
		candidates = append(candidates, Candidate{Definition: def, Record: rec})
	}

	// Priority is the primary key; the stable sort preserves catalog
	// declaration order among equals, which is the documented tie-break.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Definition.Priority > candidates[j].Definition.Priority
	})

	activeListDuration.Observe(time.Since(start).Seconds())
	activeListCandidates.Observe(float64(len(candidates)))
	span.SetAttributes(
		attribute.Int("megaphone.active", len(active)),
		attribute.Int("megaphone.candidates", len(candidates)),
	)
	return candidates, nil
}

// Next returns the first unsnoozed candidate, or nil when the list is
// empty or fully snoozed.
func (s *Selector) Next(ctx context.Context, txn *badger.Txn, env *catalog.Env) (*Candidate, error) {
	list, err := s.ActiveList(ctx, txn, env)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if !list[i].IsSnoozed(env.Now) {
			return &list[i], nil
		}
	}
	return nil, nil
}

// AllIncomplete returns every active candidate. By construction the
// active list already excludes completed, expired, and duration-retired
// megaphones, so this is the ActiveList result.
func (s *Selector) AllIncomplete(ctx context.Context, txn *badger.Txn, env *catalog.Env) ([]Candidate, error) {
	return s.ActiveList(ctx, txn, env)
}

// HasIncomplete reports whether id appears in the active list.
func (s *Selector) HasIncomplete(ctx context.Context, txn *badger.Txn, env *catalog.Env, id catalog.ID) (bool, error) {
	list, err := s.ActiveList(ctx, txn, env)
	if err != nil {
		return false, err
	}
	for i := range list {
		if list[i].Definition.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// HasUnsnoozed reports whether id appears in the active list outside its
// snooze cooldown.
func (s *Selector) HasUnsnoozed(ctx context.Context, txn *badger.Txn, env *catalog.Env, id catalog.ID) (bool, error) {
	list, err := s.ActiveList(ctx, txn, env)
	if err != nil {
		return false, err
	}
	for i := range list {
		if list[i].Definition.ID == id {
			return !list[i].IsSnoozed(env.Now), nil
		}
	}
	return false, nil
}

// loadOrSynthesize fetches the current row for the definition, falling
// back to a fresh record. This read-before-write inside the caller's
// write transaction is what keeps concurrent single-field mutations from
// clobbering each other.
func (s *Selector) loadOrSynthesize(txn *badger.Txn, def catalog.Definition) (record.Record, error) {
	rec, ok, err := s.store.Fetch(txn, string(def.ID))
	if err != nil {
		return record.Record{}, err
	}
	if !ok {
		rec = record.New(string(def.ID))
	}
	return rec, nil
}

// MarkViewed records the first presentation of the megaphone.
//
// First view wins: repeat calls are no-ops on the field and skip the
// write entirely. Non-persistable ids are never written.
func (s *Selector) MarkViewed(ctx context.Context, txn *badger.Txn, id catalog.ID) error {
	_, span := tracer.Start(ctx, "selector.MarkViewed")
	defer span.End()

	def, ok := catalog.Lookup(id)
	if !ok {
		mutationsTotal.WithLabelValues("view", "unknown").Inc()
		return fmt.Errorf("%w: %s", ErrUnknownMegaphone, id)
	}
	if !def.Persistable {
		mutationsTotal.WithLabelValues("view", "skipped").Inc()
		return nil
	}

	rec, err := s.loadOrSynthesize(txn, def)
	if err != nil {
		mutationsTotal.WithLabelValues("view", "error").Inc()
		return err
	}
	if !rec.MarkViewed(s.clock()) {
		mutationsTotal.WithLabelValues("view", "noop").Inc()
		return nil
	}
	if err := s.store.Upsert(txn, rec); err != nil {
		mutationsTotal.WithLabelValues("view", "error").Inc()
		return err
	}
	mutationsTotal.WithLabelValues("view", "ok").Inc()
	return nil
}

// MarkSnoozed refreshes the megaphone's snooze cooldown unconditionally.
// Non-persistable ids are never written.
func (s *Selector) MarkSnoozed(ctx context.Context, txn *badger.Txn, id catalog.ID) error {
	_, span := tracer.Start(ctx, "selector.MarkSnoozed")
	defer span.End()

	def, ok := catalog.Lookup(id)
	if !ok {
		mutationsTotal.WithLabelValues("snooze", "unknown").Inc()
		return fmt.Errorf("%w: %s", ErrUnknownMegaphone, id)
	}
	if !def.Persistable {
		mutationsTotal.WithLabelValues("snooze", "skipped").Inc()
		return nil
	}

	rec, err := s.loadOrSynthesize(txn, def)
	if err != nil {
		mutationsTotal.WithLabelValues("snooze", "error").Inc()
		return err
	}
	rec.MarkSnoozed(s.clock())
	if err := s.store.Upsert(txn, rec); err != nil {
		mutationsTotal.WithLabelValues("snooze", "error").Inc()
		return err
	}
	mutationsTotal.WithLabelValues("snooze", "ok").Inc()
	return nil
}

// MarkComplete finishes the megaphone permanently.
//
// Completion of a non-completable id is logged and treated as a
// successful no-op, never an error.
func (s *Selector) MarkComplete(ctx context.Context, txn *badger.Txn, id catalog.ID) error {
	_, span := tracer.Start(ctx, "selector.MarkComplete")
	defer span.End()

	def, ok := catalog.Lookup(id)
	if !ok {
		mutationsTotal.WithLabelValues("complete", "unknown").Inc()
		return fmt.Errorf("%w: %s", ErrUnknownMegaphone, id)
	}
	if !def.Completable {
		s.logger.Info("ignoring completion of non-completable megaphone",
			slog.String("id", string(id)))
		mutationsTotal.WithLabelValues("complete", "skipped").Inc()
		return nil
	}
	if !def.Persistable {
		// No catalog entry is completable yet transient, but the
		// never-store-non-persistable invariant holds regardless.
		mutationsTotal.WithLabelValues("complete", "skipped").Inc()
		return nil
	}

	rec, err := s.loadOrSynthesize(txn, def)
	if err != nil {
		mutationsTotal.WithLabelValues("complete", "error").Inc()
		return err
	}
	rec.MarkComplete()
	if err := s.store.Upsert(txn, rec); err != nil {
		mutationsTotal.WithLabelValues("complete", "error").Inc()
		return err
	}
	mutationsTotal.WithLabelValues("complete", "ok").Inc()
	return nil
}

// MarkAllCompleteForNewUser completes every skip-on-new-user megaphone.
//
// Called once at account creation so long-running or research-only
// megaphones never appear for brand-new accounts.
func (s *Selector) MarkAllCompleteForNewUser(ctx context.Context, txn *badger.Txn) error {
	ctx, span := tracer.Start(ctx, "selector.MarkAllCompleteForNewUser")
	defer span.End()

	for _, def := range catalog.All() {
		if !def.SkipOnNewUser {
			continue
		}
		if err := s.MarkComplete(ctx, txn, def.ID); err != nil {
			return err
		}
	}
	return nil
}

// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/brohamgoham/Signal-iOS/services/megaphone/record"
)

// keyPrefix namespaces megaphone rows in the shared database. The string
// form of a megaphone id after the prefix is the stable on-disk contract.
const keyPrefix = "megaphone/"

func recordKey(id string) []byte {
	return []byte(keyPrefix + id)
}

// RecordStore reads and writes megaphone records inside caller-supplied
// transactions. It has no state of its own; the transaction handle decides
// the isolation scope.
type RecordStore struct{}

// NewRecordStore returns a store over the megaphone key namespace.
func NewRecordStore() *RecordStore {
	return &RecordStore{}
}

// Fetch loads the record for id, reporting whether a row exists.
//
// A missing row is not an error; the caller synthesizes a fresh record.
// A row that exists but cannot be decoded is a storage failure and is
// propagated.
func (s *RecordStore) Fetch(txn *badger.Txn, id string) (record.Record, bool, error) {
	item, err := txn.Get(recordKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return record.Record{}, false, nil
	}
	if err != nil {
		return record.Record{}, false, fmt.Errorf("fetch megaphone record %s: %w", id, err)
	}

	var rec record.Record
	err = item.Value(func(val []byte) error {
		var decodeErr error
		rec, decodeErr = record.Unmarshal(val)
		return decodeErr
	})
	if err != nil {
		return record.Record{}, false, fmt.Errorf("decode megaphone record %s: %w", id, err)
	}
	return rec, true, nil
}

// FetchSet loads all existing rows for the given ids in one pass.
//
// Only ids with a stored row appear in the result, so rows belonging to
// megaphones removed from the catalog are never loaded at all.
func (s *RecordStore) FetchSet(txn *badger.Txn, ids []string) (map[string]record.Record, error) {
	rows := make(map[string]record.Record, len(ids))
	for _, id := range ids {
		rec, ok, err := s.Fetch(txn, id)
		if err != nil {
			return nil, err
		}
		if ok {
			rows[id] = rec
		}
	}
	return rows, nil
}

// Upsert writes the record under its id, replacing any existing row.
func (s *RecordStore) Upsert(txn *badger.Txn, rec record.Record) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}
	if err := txn.Set(recordKey(rec.ID), data); err != nil {
		return fmt.Errorf("upsert megaphone record %s: %w", rec.ID, err)
	}
	return nil
}

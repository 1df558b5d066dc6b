// Copyright (C) 2025 Signal Messenger, LLC
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brohamgoham/Signal-iOS/services/megaphone/record"
)

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestOpenWithPathPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store := NewRecordStore()

	db, err := Open(DefaultConfig(dir))
	require.NoError(t, err)

	rec := record.New("introducing_pins")
	rec.MarkViewed(time.Now())
	require.NoError(t, db.Update(ctx, func(txn *badger.Txn) error {
		return store.Upsert(txn, rec)
	}))
	require.NoError(t, db.Close())

	db2, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer db2.Close()

	require.NoError(t, db2.View(ctx, func(txn *badger.Txn) error {
		got, ok, err := store.Fetch(txn, "introducing_pins")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, rec, got)
		return nil
	}))
}

func TestFetchMissingRow(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.View(context.Background(), func(txn *badger.Txn) error {
		_, ok, err := NewRecordStore().Fetch(txn, "never_written")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))
}

func TestFetchSetReturnsOnlyExistingRows(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	store := NewRecordStore()

	require.NoError(t, db.Update(ctx, func(txn *badger.Txn) error {
		if err := store.Upsert(txn, record.New("pin_reminder")); err != nil {
			return err
		}
		return store.Upsert(txn, record.New("avatar_builder"))
	}))

	require.NoError(t, db.View(ctx, func(txn *badger.Txn) error {
		rows, err := store.FetchSet(txn, []string{"pin_reminder", "avatar_builder", "usage_survey"})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
		assert.Contains(t, rows, "pin_reminder")
		assert.Contains(t, rows, "avatar_builder")
		assert.NotContains(t, rows, "usage_survey")
		return nil
	}))
}

func TestFetchCorruptRowPropagates(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.Update(ctx, func(txn *badger.Txn) error {
		return txn.Set(recordKey("introducing_pins"), []byte("not json"))
	}))

	require.NoError(t, db.View(ctx, func(txn *badger.Txn) error {
		_, _, err := NewRecordStore().Fetch(txn, "introducing_pins")
		assert.Error(t, err)
		return nil
	}))
}

func TestUpdateRollsBackOnError(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	store := NewRecordStore()
	boom := errors.New("boom")

	err = db.Update(ctx, func(txn *badger.Txn) error {
		if err := store.Upsert(txn, record.New("usage_survey")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, db.View(ctx, func(txn *badger.Txn) error {
		_, ok, err := store.Fetch(txn, "usage_survey")
		require.NoError(t, err)
		assert.False(t, ok, "failed transaction must not persist")
		return nil
	}))
}

func TestCancelledContextRejected(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	err = db.Update(cancelled, func(*badger.Txn) error { return nil })
	assert.Error(t, err)

	err = db.View(cancelled, func(*badger.Txn) error { return nil })
	assert.Error(t, err)
}

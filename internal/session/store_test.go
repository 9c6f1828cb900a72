// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusStore_RoundTrip(t *testing.T) {
	store := NewStatusStore(filepath.Join(t.TempDir(), "state", "sessions.json"))

	require.NoError(t, store.Set(42, "in_progress"))
	require.NoError(t, store.Set(7, "waiting"))

	status, ok := store.Get(42)
	assert.True(t, ok)
	assert.Equal(t, "in_progress", status)

	// A second store over the same file sees the saved state.
	reopened := NewStatusStore(store.filePath)
	status, ok = reopened.Get(7)
	assert.True(t, ok)
	assert.Equal(t, "waiting", status)
}

func TestStatusStore_MissingFile(t *testing.T) {
	store := NewStatusStore(filepath.Join(t.TempDir(), "sessions.json"))

	data, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, data)

	_, ok := store.Get(42)
	assert.False(t, ok)
}

func TestStatusStore_Delete(t *testing.T) {
	store := NewStatusStore(filepath.Join(t.TempDir(), "sessions.json"))

	require.NoError(t, store.Set(42, "in_progress"))
	require.NoError(t, store.Delete(42))

	_, ok := store.Get(42)
	assert.False(t, ok)

	// Deleting an unknown entry is not an error.
	require.NoError(t, store.Delete(99))
}

func TestStatusStore_Overwrite(t *testing.T) {
	store := NewStatusStore(filepath.Join(t.TempDir(), "sessions.json"))

	require.NoError(t, store.Set(42, "in_progress"))
	require.NoError(t, store.Set(42, "waiting"))

	status, ok := store.Get(42)
	assert.True(t, ok)
	assert.Equal(t, "waiting", status)
}

func TestStatusStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store := NewStatusStore(filepath.Join(dir, "sessions.json"))
	require.NoError(t, store.Set(42, "in_progress"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sessions.json", entries[0].Name())
}

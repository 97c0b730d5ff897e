package prefs

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "data/prefs")
	alice := store.ForUser("alice")

	_, ok := alice.Get(DarkModeKey)
	assert.False(t, ok)

	require.NoError(t, alice.Set(DarkModeKey, "true"))
	v, ok := alice.Get(DarkModeKey)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestFileStoreIsolatesUsers(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "data/prefs")

	require.NoError(t, store.ForUser("alice").Set(DarkModeKey, "true"))

	_, ok := store.ForUser("bob").Get(DarkModeKey)
	assert.False(t, ok)
}

func TestFileStoreSanitizesNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "data/prefs")

	require.NoError(t, store.ForUser("../../etc").Set(DarkModeKey, "true"))

	// Nothing may be written outside the store root.
	outside, err := afero.DirExists(fs, "etc")
	require.NoError(t, err)
	assert.False(t, outside)

	v, ok := store.ForUser("../../etc").Get(DarkModeKey)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestDarkModeHelpers(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "data/prefs")
	alice := store.ForUser("alice")

	// Absent key defaults to light.
	assert.False(t, DarkMode(alice))

	SetDarkMode(alice, true)
	assert.True(t, DarkMode(alice))

	SetDarkMode(alice, false)
	assert.False(t, DarkMode(alice))
}

func TestDarkModeIgnoresGarbageValue(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "data/prefs")
	alice := store.ForUser("alice")

	require.NoError(t, alice.Set(DarkModeKey, "banana"))
	assert.False(t, DarkMode(alice))
}

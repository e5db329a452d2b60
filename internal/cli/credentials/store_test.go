package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreOperations(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dbuscli-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	oldXDG := os.Getenv("XDG_CONFIG_HOME")
	_ = os.Setenv("XDG_CONFIG_HOME", tmpDir)
	defer func() { _ = os.Setenv("XDG_CONFIG_HOME", oldXDG) }()

	store, err := NewStore()
	require.NoError(t, err)
	assert.NotNil(t, store)

	expectedPath := filepath.Join(tmpDir, DefaultConfigDir, ConfigFileName)
	assert.Equal(t, expectedPath, store.ConfigPath())

	_, err = store.GetCurrentContext()
	assert.ErrorIs(t, err, ErrNoCurrentContext)
	assert.Empty(t, store.ListContexts())

	ctx1 := &Context{
		Address:    "unix:path=/run/dbus/system_bus_socket",
		Mechanisms: []string{"external"},
	}
	err = store.SetContext("default", ctx1)
	require.NoError(t, err)

	err = store.UseContext("default")
	require.NoError(t, err)

	current, err := store.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, "unix:path=/run/dbus/system_bus_socket", current.Address)
	assert.Equal(t, []string{"external"}, current.Mechanisms)

	ctx2 := &Context{
		Address: "tcp:host=dbus.example.com,port=12345",
	}
	err = store.SetContext("remote", ctx2)
	require.NoError(t, err)

	contexts := store.ListContexts()
	assert.Len(t, contexts, 2)
	assert.Contains(t, contexts, "default")
	assert.Contains(t, contexts, "remote")

	err = store.UseContext("remote")
	require.NoError(t, err)
	assert.Equal(t, "remote", store.GetCurrentContextName())

	err = store.RenameContext("remote", "prod")
	require.NoError(t, err)
	assert.Equal(t, "prod", store.GetCurrentContextName())

	err = store.DeleteContext("prod")
	require.NoError(t, err)
	assert.Empty(t, store.GetCurrentContextName())

	_, err = store.GetContext("nonexistent")
	assert.ErrorIs(t, err, ErrContextNotFound)

	err = store.UseContext("nonexistent")
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestStoreUpdateLastUnique(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dbuscli-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	oldXDG := os.Getenv("XDG_CONFIG_HOME")
	_ = os.Setenv("XDG_CONFIG_HOME", tmpDir)
	defer func() { _ = os.Setenv("XDG_CONFIG_HOME", oldXDG) }()

	store, err := NewStore()
	require.NoError(t, err)

	ctx := &Context{Address: "unix:path=/run/dbus/system_bus_socket"}
	err = store.SetContext("default", ctx)
	require.NoError(t, err)
	err = store.UseContext("default")
	require.NoError(t, err)

	err = store.UpdateLastUnique(":1.42")
	require.NoError(t, err)

	current, err := store.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, ":1.42", current.LastUnique)
}

func TestStorePreferences(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "dbuscli-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	oldXDG := os.Getenv("XDG_CONFIG_HOME")
	_ = os.Setenv("XDG_CONFIG_HOME", tmpDir)
	defer func() { _ = os.Setenv("XDG_CONFIG_HOME", oldXDG) }()

	store, err := NewStore()
	require.NoError(t, err)

	prefs := store.GetPreferences()
	assert.Empty(t, prefs.DefaultOutput)
	assert.Empty(t, prefs.Color)

	newPrefs := Preferences{
		DefaultOutput: "json",
		Color:         "auto",
	}
	err = store.SetPreferences(newPrefs)
	require.NoError(t, err)

	prefs = store.GetPreferences()
	assert.Equal(t, "json", prefs.DefaultOutput)
	assert.Equal(t, "auto", prefs.Color)
}

func TestGenerateContextName(t *testing.T) {
	assert.Equal(t, "default", GenerateContextName("unix:path=/run/dbus/system_bus_socket"))
	assert.Equal(t, "default", GenerateContextName(""))
}

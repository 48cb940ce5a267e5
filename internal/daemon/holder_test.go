// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jimyag/profilesync/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, path, username string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("username: "+username+"\n"), 0o600))
}

func TestHolderReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, path, "before")

	loader := config.NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(cfg, loader, path, zerolog.Nop())
	assert.Equal(t, "before", h.Current().Username)

	var seen []string
	h.OnReload(func(cfg config.AppConfig) {
		seen = append(seen, cfg.Username)
	})

	writeConfigFile(t, path, "after")
	require.NoError(t, h.Reload())

	assert.Equal(t, "after", h.Current().Username)
	assert.Equal(t, []string{"after"}, seen)
}

func TestHolderWatchReloadsOnAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, path, "before")

	loader := config.NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(cfg, loader, path, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Watch(ctx)
	}()

	// Replace the file the way editors and ConfigMap updates do: write a
	// sibling and rename it over the config path. The watcher may not be
	// registered yet, so retry until the reload is observed.
	replace := func() {
		tmp := filepath.Join(dir, "config.yaml.tmp")
		require.NoError(t, os.WriteFile(tmp, []byte("username: after\n"), 0o600))
		require.NoError(t, os.Rename(tmp, path))
	}

	deadline := time.After(5 * time.Second)
	for h.Current().Username != "after" {
		replace()
		select {
		case <-deadline:
			t.Fatal("config not reloaded after atomic replace")
		case <-time.After(300 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestHolderReloadFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, path, "good")

	loader := config.NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(cfg, loader, path, zerolog.Nop())

	// A config that fails validation must not replace the snapshot.
	require.NoError(t, os.WriteFile(path, []byte("username: \"\"\n"), 0o600))
	require.Error(t, h.Reload())
	assert.Equal(t, "good", h.Current().Username)
}

// Package config loads and hot-reloads this module's own tuning
// config — texture pool size, SHM slack, mailslot name suffix,
// profile root directory. This is distinct from the application's
// persisted per-profile settings (spec.md §1/§6 treats those as
// opaque JSON blobs, explicitly out of scope); config covers the
// knobs SPEC_FULL adds to make pool sizing and IPC naming tunable
// without a rebuild.
//
// Grounded on the teacher's (cogentcore.org/core) base/config
// "reconcile a slice to a named target set" convention, adapted here
// to "reconcile in-memory config to the file on disk", and watched
// with fsnotify the way the teacher watches source directories.
package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"kneeboard.dev/core/eventbus"
	"kneeboard.dev/core/internal/errs"
)

// Config holds the tunables this module reads at startup and may
// reload at runtime.
type Config struct {
	// TexturePoolSize is the number of swapchain-style pool slots per
	// SHM layer (spec §4.D); default matches the source's default of 3.
	TexturePoolSize int `toml:"texture_pool_size"`

	// SHMSlackBytes is reserved slack appended to the SHM region size
	// beyond header+layers, for forward-compatible growth (spec §4.D).
	SHMSlackBytes int `toml:"shm_slack_bytes"`

	// MailslotSuffix is appended to the reverse-domain mailslot name
	// (spec §6), allowing multiple side-by-side installs.
	MailslotSuffix string `toml:"mailslot_suffix"`

	// ProfileRoot is the directory containing per-profile settings
	// overrides (spec §6's Settings/Profiles/<name-guid>/ layout).
	ProfileRoot string `toml:"profile_root"`

	// StaleSnapshotMillis bounds how long a reader may reuse a cached
	// SHM snapshot before forcing a re-copy (spec §4.E's "stale if
	// unchanged for >1s" policy), in milliseconds.
	StaleSnapshotMillis int `toml:"stale_snapshot_millis"`
}

// Default returns the built-in tunables, used when no config file is
// present.
func Default() Config {
	return Config{
		TexturePoolSize:     3,
		SHMSlackBytes:       4096,
		MailslotSuffix:      "v1.3",
		ProfileRoot:         filepath.Join(os.Getenv("LOCALAPPDATA"), "OpenKneeboard", "Settings", "Profiles"),
		StaleSnapshotMillis: 1000,
	}
}

// Load reads and parses a TOML config file, falling back to Default
// for any field the file doesn't set (by loading into a copy of
// Default first).
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Changed is published by Watcher whenever the config file changes
// and is re-parsed successfully.
type Changed struct {
	Config Config
}

// Watcher watches a config file for changes and republishes the
// parsed Config on ConfigChanged (SPEC_FULL supplement). No package
// in this module subscribes to ConfigChanged; kneeboard.State and the
// SHM writer keep the pool size they were built with.
type Watcher struct {
	path string
	mu   sync.RWMutex
	cur  Config

	ConfigChanged eventbus.Event[Changed]

	fsw *fsnotify.Watcher
}

// NewWatcher loads path immediately and begins watching its
// containing directory for changes (fsnotify on Windows does not
// reliably watch a single file across replace-via-rename editors).
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{path: path, cur: cfg, fsw: fsw}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				// Transient: the editor may still be mid-write.
				errs.Log(errs.NewTransient(err))
				continue
			}
			w.mu.Lock()
			w.cur = cfg
			w.mu.Unlock()
			w.ConfigChanged.Emit(Changed{Config: cfg})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			errs.Log(err)
		}
	}
}

// Current returns the most recently loaded Config.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cur
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

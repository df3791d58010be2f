package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// AdminList is the environment-provided admin allow-list. The file is a YAML
// document with a single "admins" sequence of user IDs. The list is reloaded
// automatically when the file changes, so admin grants do not require a restart.
type AdminList struct {
	path    string
	mu      sync.RWMutex
	ids     map[string]struct{}
	watcher *fsnotify.Watcher
	done    chan struct{}
}

type adminListFile struct {
	Admins []string `yaml:"admins"`
}

// NewAdminList loads the allow-list from path. An empty path yields an empty,
// static list (admin status then comes from user records only).
func NewAdminList(path string) (*AdminList, error) {
	al := &AdminList{
		path: path,
		ids:  make(map[string]struct{}),
	}

	if path == "" {
		return al, nil
	}

	if err := al.reload(); err != nil {
		return nil, err
	}

	return al, nil
}

// Contains reports whether userID is on the allow-list
func (al *AdminList) Contains(userID string) bool {
	if userID == "" {
		return false
	}
	al.mu.RLock()
	defer al.mu.RUnlock()
	_, ok := al.ids[userID]
	return ok
}

// Len returns the number of allow-listed IDs
func (al *AdminList) Len() int {
	al.mu.RLock()
	defer al.mu.RUnlock()
	return len(al.ids)
}

// Watch starts watching the backing file for changes. onReload, if non-nil, is
// called after every successful reload. Call Close to stop watching.
func (al *AdminList) Watch(onReload func(count int)) error {
	if al.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory, not the file: editors and config mounts replace the
	// file atomically, which drops a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(al.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", al.path, err)
	}

	al.watcher = watcher
	al.done = make(chan struct{})

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(al.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := al.reload(); err != nil {
					// Keep serving the previous list on a bad write.
					continue
				}
				if onReload != nil {
					onReload(al.Len())
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			case <-al.done:
				return
			}
		}
	}()

	return nil
}

// Close stops the file watcher
func (al *AdminList) Close() error {
	if al.done != nil {
		close(al.done)
		al.done = nil
	}
	if al.watcher != nil {
		err := al.watcher.Close()
		al.watcher = nil
		return err
	}
	return nil
}

// reload re-reads the backing file and swaps the ID set
func (al *AdminList) reload() error {
	data, err := os.ReadFile(al.path)
	if err != nil {
		return fmt.Errorf("failed to read admin list: %w", err)
	}

	var parsed adminListFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse admin list: %w", err)
	}

	ids := make(map[string]struct{}, len(parsed.Admins))
	for _, id := range parsed.Admins {
		if id == "" {
			continue
		}
		ids[id] = struct{}{}
	}

	al.mu.Lock()
	al.ids = ids
	al.mu.Unlock()

	return nil
}

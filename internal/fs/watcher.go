package fs

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/artpar/mobilecli/internal/protocol"
)

// DefaultDebounce is the time a directory's change events are coalesced
// for before a single file_changed event is emitted per path.
const DefaultDebounce = 250 * time.Millisecond

// FileWatcher watches directories non-recursively for changes, debounced
// per path, classifying each settled change as created/modified/deleted.
// Grounded on original_source/cli/src/filesystem/watcher.rs, which pairs
// the `notify`/`notify-debouncer-mini` crates with a known-paths set;
// fsnotify is adopted here as the direct Go analogue of `notify`, with
// debounce timers hand-rolled the way notify-debouncer-mini coalesces
// bursts.
type FileWatcher struct {
	debounce time.Duration

	mu         sync.Mutex
	watcher    *fsnotify.Watcher
	watched    map[string]bool
	knownPaths map[string]bool
	timers     map[string]*time.Timer

	events chan protocol.FileChanged
	done   chan struct{}
}

func NewFileWatcher(debounce time.Duration) (*FileWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &FileWatcher{
		debounce:   debounce,
		watcher:    w,
		watched:    make(map[string]bool),
		knownPaths: make(map[string]bool),
		timers:     make(map[string]*time.Timer),
		events:     make(chan protocol.FileChanged, 1024),
		done:       make(chan struct{}),
	}
	go fw.loop()
	return fw, nil
}

// Events returns the channel on which settled, classified file-change
// events are published.
func (fw *FileWatcher) Events() <-chan protocol.FileChanged {
	return fw.events
}

// Watch begins non-recursive watching of dir, seeding the known-paths
// set from its current contents so the first observed event on an
// already-existing child is classified as modified, not created.
func (fw *FileWatcher) Watch(dir string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.watched[dir] {
		return nil
	}
	if err := fw.watcher.Add(dir); err != nil {
		return err
	}
	fw.watched[dir] = true
	fw.knownPaths[dir] = true

	entries, err := readDirNames(dir)
	if err == nil {
		for _, name := range entries {
			fw.knownPaths[filepath.Join(dir, name)] = true
		}
	}
	return nil
}

func (fw *FileWatcher) Unwatch(dir string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.watched[dir] {
		return nil
	}
	delete(fw.watched, dir)
	if t, ok := fw.timers[dir]; ok {
		t.Stop()
		delete(fw.timers, dir)
	}
	return fw.watcher.Remove(dir)
}

func (fw *FileWatcher) Close() error {
	close(fw.done)
	return fw.watcher.Close()
}

func (fw *FileWatcher) loop() {
	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.scheduleDebounced(event.Name)
		case _, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// scheduleDebounced resets a per-path timer on every raw event, firing
// classification only once events for that path have settled.
func (fw *FileWatcher) scheduleDebounced(path string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if t, ok := fw.timers[path]; ok {
		t.Stop()
	}
	fw.timers[path] = time.AfterFunc(fw.debounce, func() {
		fw.settle(path)
	})
}

func (fw *FileWatcher) settle(path string) {
	fw.mu.Lock()
	delete(fw.timers, path)
	known := fw.knownPaths[path]
	fw.mu.Unlock()

	if !exists(path) {
		fw.mu.Lock()
		delete(fw.knownPaths, path)
		fw.mu.Unlock()
		fw.emitWithEntry(path, protocol.ChangeDeleted, nil)
		return
	}

	if !known {
		fw.mu.Lock()
		fw.knownPaths[path] = true
		fw.mu.Unlock()
		fw.emitWithEntry(path, protocol.ChangeCreated, nil)
		return
	}

	entry, _ := buildWatchedEntry(path)
	fw.emitWithEntry(path, protocol.ChangeModified, entry)
}

func (fw *FileWatcher) emitWithEntry(path string, changeType protocol.ChangeType, entry *protocol.FileEntry) {
	select {
	case fw.events <- protocol.FileChanged{
		Type:       protocol.TypeFileChanged,
		Path:       filepath.ToSlash(path),
		ChangeType: changeType,
		Entry:      entry,
	}:
	default:
	}
}

func buildWatchedEntry(path string) (*protocol.FileEntry, error) {
	info, err := stat(path)
	if err != nil {
		return nil, err
	}
	entry := &protocol.FileEntry{
		Name:        filepath.Base(path),
		Path:        path,
		IsDirectory: info.IsDir(),
		IsHidden:    IsHidden(path),
		Size:        info.Size(),
		Modified:    info.ModTime().Unix(),
	}
	return entry, nil
}

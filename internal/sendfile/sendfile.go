// Package sendfile caches open file descriptors in an LRU and performs
// the zero-copy sendfile(2) transfer for file-backed httpwire.Response
// values: one attempt per Send, with partial writes and EAGAIN left to
// the caller. It lives under
// internal/ because internal/reactor's ResponseWriterService is the
// only caller of Send, and internal packages must not depend on core/.
package sendfile

import (
	"container/list"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// FileCache caches open file descriptors using LRU eviction, so
// repeated requests for the same static asset don't pay an open(2)
// each time.
type FileCache struct {
	mu       sync.RWMutex
	cache    map[string]*cacheEntry
	lruList  *list.List
	maxFiles int
}

type cacheEntry struct {
	file    *os.File
	element *list.Element
}

// NewFileCache creates a cache holding at most maxFiles open descriptors.
func NewFileCache(maxFiles int) *FileCache {
	return &FileCache{
		cache:    make(map[string]*cacheEntry),
		lruList:  list.New(),
		maxFiles: maxFiles,
	}
}

// Get returns an open *os.File for path, from cache or freshly opened.
func (fc *FileCache) Get(path string) (*os.File, error) {
	fc.mu.RLock()
	if entry, ok := fc.cache[path]; ok {
		fc.mu.RUnlock()
		fc.mu.Lock()
		fc.lruList.MoveToFront(entry.element)
		fc.mu.Unlock()
		return entry.file, nil
	}
	fc.mu.RUnlock()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	element := fc.lruList.PushFront(path)
	fc.cache[path] = &cacheEntry{file: file, element: element}

	if fc.lruList.Len() > fc.maxFiles {
		oldest := fc.lruList.Back()
		if oldest != nil {
			oldPath := oldest.Value.(string)
			if oldEntry, ok := fc.cache[oldPath]; ok {
				oldEntry.file.Close()
				delete(fc.cache, oldPath)
			}
			fc.lruList.Remove(oldest)
		}
	}

	return file, nil
}

// Close closes every cached file and empties the cache.
func (fc *FileCache) Close() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for _, entry := range fc.cache {
		entry.file.Close()
	}
	fc.cache = make(map[string]*cacheEntry)
	fc.lruList.Init()
}

// Global is the process-wide cache NewFileResponse and Send share; one
// cache is enough since workers only read these descriptors, never
// write them.
var Global = NewFileCache(1000)

// Send makes one sendfile(2) attempt transferring up to count bytes of
// path starting at offset to connFd. It retries internally only on
// EINTR (interrupted, not a backpressure signal); EAGAIN is returned to
// the caller rather than spun on, since connFd is a non-blocking socket
// owned by a single-goroutine worker that must go back to polling
// other connections instead of busy-waiting for this one to drain.
func Send(connFd int, path string, offset int64, count int) (n int, err error) {
	file, err := Global.Get(path)
	if err != nil {
		return 0, err
	}
	fileFd := int(file.Fd())

	for {
		n, err = unix.Sendfile(connFd, fileFd, &offset, count)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// SPDX-License-Identifier: GPL-2.0-or-later

// Package filesystem resolves sound bytes by case-insensitive filename,
// first against loose files under the content directory, then against
// the indexed snd*.pfs archives.
package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"eqaudio/conlog"
	"eqaudio/pfs"
)

type Store struct {
	root string

	mu       sync.Mutex
	index    map[string]string // lowercase filename -> archive path
	archives map[string]*pfs.Archive
}

// NewStore indexes the content directory. Archives are opened during
// the scan and kept open; entry extraction happens on demand.
func NewStore(root string) *Store {
	s := &Store{
		root:     root,
		index:    make(map[string]string),
		archives: make(map[string]*pfs.Archive),
	}
	s.scanArchives()
	return s
}

func (s *Store) scanArchives() {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		conlog.Printf("filesystem: content path unreadable: %v", err)
		return
	}
	total := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if !strings.HasPrefix(name, "snd") || !strings.HasSuffix(name, ".pfs") {
			continue
		}
		path := filepath.Join(s.root, e.Name())
		a, err := pfs.Open(path)
		if err != nil {
			conlog.Printf("filesystem: skipping archive %s: %v", path, err)
			continue
		}
		for _, f := range a.Filenames(".wav") {
			s.index[f] = path
			total++
		}
		s.archives[path] = a
	}
	if len(s.archives) > 0 {
		conlog.Printf("filesystem: indexed %d sound files from %d archives", total, len(s.archives))
	}
}

// looseDirs are the directories probed for loose files, in order.
func (s *Store) looseDirs() []string {
	return []string{filepath.Join(s.root, "sounds"), s.root}
}

// findLoose resolves name against dir without regard to case. The
// exact name is tried first so the directory scan only happens on a
// case mismatch.
func findLoose(dir, name string) (string, bool) {
	p := filepath.Join(dir, name)
	if _, err := os.Stat(p); err == nil {
		return p, true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	lower := strings.ToLower(name)
	for _, e := range entries {
		if !e.IsDir() && strings.ToLower(e.Name()) == lower {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}

// ReadFile returns the bytes for name, checking loose files in the
// content root and its sounds/ subdirectory before the archives.
// Lookups are case-insensitive throughout.
func (s *Store) ReadFile(name string) ([]byte, error) {
	for _, dir := range s.looseDirs() {
		if p, ok := findLoose(dir, name); ok {
			if data, err := os.ReadFile(p); err == nil {
				return data, nil
			}
		}
	}
	return s.readFromArchive(name)
}

func (s *Store) readFromArchive(name string) ([]byte, error) {
	lower := strings.ToLower(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	path, ok := s.index[lower]
	if !ok {
		return nil, errors.Wrapf(os.ErrNotExist, "sound %s", name)
	}
	a, ok := s.archives[path]
	if !ok {
		var err error
		a, err = pfs.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reopen %s", path)
		}
		s.archives[path] = a
	}
	return a.Get(lower)
}

// Exists reports whether name resolves to a loose file or an archive
// entry.
func (s *Store) Exists(name string) bool {
	for _, dir := range s.looseDirs() {
		if _, ok := findLoose(dir, name); ok {
			return true
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[strings.ToLower(name)]
	return ok
}

func (s *Store) Root() string {
	return s.root
}

func isSep(c uint8) bool {
	return c == '/' || c == '\\'
}

// Ext returns the extension of path including the dot, tolerating
// backslash separators from client data files.
func Ext(path string) string {
	for i := len(path) - 1; i >= 0 && !isSep(path[i]); i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}

// StripExt returns path without its extension.
func StripExt(path string) string {
	for i := len(path) - 1; i >= 0 && !isSep(path[i]); i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}

// SPDX-License-Identifier: MPL-2.0

// Package negcache persists translation pairs that were proven to merge into
// nothing, so later batches can skip them without extracting any records.
//
// The document maps an original plugin's base name to the identity of that
// original and the identities of every rejected translation of it:
//
//	{
//	  "Weapons.esp": {
//	    "original": {"size": 1024, "mtime": 1700000000.5},
//	    "translations": [{"size": 1030, "mtime": 1700000100.25}]
//	  }
//	}
//
// An entry whose stored original no longer matches the file on disk is reset
// on the next Record and never reports a rejection.
package negcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/LightSofa/dsd-generator/pkg/fspath"
	"github.com/LightSofa/dsd-generator/pkg/types"

	"github.com/charmbracelet/log"
)

type (
	// FileIdentity is a cheap fingerprint of a file. Two identities are equal
	// only when both fields match exactly.
	FileIdentity struct {
		Size  int64   `json:"size"`
		Mtime float64 `json:"mtime"`
	}

	// Entry holds the rejected translations of one original.
	Entry struct {
		Original     FileIdentity   `json:"original"`
		Translations []FileIdentity `json:"translations"`
	}

	// Document is the whole persisted cache keyed by original base name.
	Document map[string]Entry

	// Store is the on-disk negative cache. It keeps the last loaded document
	// and reloads it only when the file's modification time changes. All
	// methods are safe for concurrent use; Record is a serialized
	// read-modify-write.
	Store struct {
		path   string
		logger *log.Logger

		mu          sync.Mutex
		doc         Document
		loaded      bool
		loadedMtime time.Time
	}
)

// IdentityOf stats path and returns its identity, mtime in float seconds.
func IdentityOf(path string) (FileIdentity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileIdentity{}, err
	}
	return FileIdentity{
		Size:  info.Size(),
		Mtime: float64(info.ModTime().UnixNano()) / 1e9,
	}, nil
}

// Contains reports whether id is in the entry's translation set.
func (e Entry) Contains(id FileIdentity) bool {
	return slices.Contains(e.Translations, id)
}

// Open returns a Store backed by path. The file is read lazily on first use;
// a missing file is an empty cache. A nil logger discards warnings.
func Open(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{path: path, logger: logger, doc: Document{}}
}

// Path returns the backing document path.
func (s *Store) Path() string { return s.path }

// IsRejected reports whether candidate was previously rejected against the
// current original identity stored under name.
func (s *Store) IsRejected(name string, original, candidate FileIdentity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.current()[name]
	return ok && entry.Original == original && entry.Contains(candidate)
}

// Record adds candidate to the rejected set of name and saves the whole
// document immediately. When the stored original differs from original the
// entry is reset first. Recording an identity twice is a no-op apart from
// the save.
func (s *Store) Record(name string, original, candidate FileIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.current()
	entry, ok := doc[name]
	if !ok || entry.Original != original {
		entry = Entry{Original: original, Translations: []FileIdentity{}}
	}
	if !entry.Contains(candidate) {
		entry.Translations = append(slices.Clone(entry.Translations), candidate)
	}
	doc[name] = entry

	return s.save(doc)
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(Document, len(s.current()))
	for name, entry := range s.doc {
		entry.Translations = slices.Clone(entry.Translations)
		out[name] = entry
	}
	return out
}

// Names returns the cached original names in lexical order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.current()))
}

// Clear empties the cache and persists the empty document.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(Document{})
}

// current returns the in-memory document, reloading it when the file's mtime
// differs from the one it was loaded at. Callers must hold s.mu.
func (s *Store) current() Document {
	info, err := os.Stat(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("negative cache unreadable, treating as empty", "path", s.path, "err", err)
		}
		if s.loaded && !s.loadedMtime.IsZero() {
			// The file disappeared since the last load.
			s.doc = Document{}
		}
		s.loaded = true
		s.loadedMtime = time.Time{}
		return s.doc
	}
	if s.loaded && info.ModTime().Equal(s.loadedMtime) {
		return s.doc
	}

	s.doc = s.read()
	s.loaded = true
	s.loadedMtime = info.ModTime()
	return s.doc
}

// read parses the document. A corrupt document is reported once per
// modification and treated as empty; the next Record overwrites it.
func (s *Store) read() Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("negative cache unreadable, treating as empty", "path", s.path, "err", err)
		return Document{}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("negative cache is corrupt, treating as empty",
			"path", s.path, "err", err, "hint", "run 'dsdgen cache clear' to reset it")
		return Document{}
	}
	if doc == nil {
		doc = Document{}
	}
	for name, entry := range doc {
		if entry.Translations == nil {
			entry.Translations = []FileIdentity{}
			doc[name] = entry
		}
	}
	return doc
}

// save writes doc atomically and adopts it as the loaded state. Callers must hold s.mu.
func (s *Store) save(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding negative cache: %w", err)
	}
	if err := fspath.WriteFileAtomic(types.FilesystemPath(s.path), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("saving negative cache: %w", err)
	}

	s.doc = doc
	s.loaded = true
	if info, err := os.Stat(s.path); err == nil {
		s.loadedMtime = info.ModTime()
	}
	return nil
}

// Package knowledge owns the HR knowledge document served to the prompt
// assembler. The document is loaded whole from one of two named sources
// (production or test compendium) and published as an immutable snapshot;
// readers never observe a partially loaded document.
package knowledge

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/wpietrzak/kadrio/internal/config"
)

// BuiltinSourceName marks a snapshot served from the embedded fallback
// document rather than a file on disk.
const BuiltinSourceName = "builtin-default"

//go:embed default_kompendium.txt
var defaultDocument string

// Snapshot is one fully loaded knowledge document. Snapshots are
// immutable; a reload publishes a new one.
type Snapshot struct {
	Text       string
	TestMode   bool
	SizeBytes  int
	SourceName string
}

// Store serves the current knowledge snapshot. Mode switches are rare
// administrative operations; reads happen on every chat request.
type Store struct {
	dir      string
	file     string
	testFile string

	current atomic.Pointer[Snapshot]
}

// NewStore creates a Store and synchronously loads the document for the
// configured mode. A missing or unreadable source is not fatal: the
// embedded default compendium is served instead.
func NewStore(cfg config.KnowledgeConfig) *Store {
	s := &Store{
		dir:      cfg.Dir,
		file:     cfg.File,
		testFile: cfg.TestFile,
	}
	if _, err := s.SetMode(cfg.TestMode); err != nil {
		log.Printf("knowledge: initial load: %v (serving built-in default)", err)
	}
	return s
}

// Current returns the active snapshot. Never nil after NewStore.
func (s *Store) Current() Snapshot {
	return *s.current.Load()
}

// SetMode reloads the document for the requested mode and atomically
// swaps it in. On read failure the embedded default document is
// published for that mode and the read error is returned so callers can
// log it; the store is never left without a servable document.
func (s *Store) SetMode(testMode bool) (Snapshot, error) {
	name := s.file
	if testMode {
		name = s.testFile
	}
	path := filepath.Join(s.dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		snap := Snapshot{
			Text:       defaultDocument,
			TestMode:   testMode,
			SizeBytes:  len(defaultDocument),
			SourceName: BuiltinSourceName,
		}
		s.current.Store(&snap)
		return snap, fmt.Errorf("knowledge: read %s: %w", path, err)
	}

	snap := Snapshot{
		Text:       string(data),
		TestMode:   testMode,
		SizeBytes:  len(data),
		SourceName: name,
	}
	s.current.Store(&snap)
	log.Printf("knowledge: loaded %s (%d bytes, test_mode=%v)", name, snap.SizeBytes, testMode)
	return snap, nil
}

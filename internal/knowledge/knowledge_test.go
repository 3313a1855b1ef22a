package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/wpietrzak/kadrio/internal/config"
)

const (
	prodDoc = "PEŁNE KOMPENDIUM HR\nUrlop wypoczynkowy: 20 lub 26 dni.\n"
	testDoc = "TESTOWE KOMPENDIUM HR\nWersja skrócona do testów.\n"
)

// writeDocs creates a knowledge directory with both source files.
func writeDocs(t *testing.T) config.KnowledgeConfig {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hr-kompendium.txt"), []byte(prodDoc), 0o644); err != nil {
		t.Fatalf("write prod doc: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "hr-kompendium-test.txt"), []byte(testDoc), 0o644); err != nil {
		t.Fatalf("write test doc: %v", err)
	}
	return config.KnowledgeConfig{
		Dir:      dir,
		File:     "hr-kompendium.txt",
		TestFile: "hr-kompendium-test.txt",
	}
}

func TestNewStore_LoadsProductionDoc(t *testing.T) {
	cfg := writeDocs(t)
	s := NewStore(cfg)

	snap := s.Current()
	if snap.Text != prodDoc {
		t.Errorf("Text = %q, want production document", snap.Text)
	}
	if snap.TestMode {
		t.Error("TestMode = true, want false")
	}
	if snap.SizeBytes != len(prodDoc) {
		t.Errorf("SizeBytes = %d, want %d", snap.SizeBytes, len(prodDoc))
	}
	if snap.SourceName != "hr-kompendium.txt" {
		t.Errorf("SourceName = %q, want hr-kompendium.txt", snap.SourceName)
	}
}

func TestSetMode_SwitchesDocuments(t *testing.T) {
	cfg := writeDocs(t)
	s := NewStore(cfg)

	snap, err := s.SetMode(true)
	if err != nil {
		t.Fatalf("SetMode(true): %v", err)
	}
	if !snap.TestMode {
		t.Error("TestMode = false, want true")
	}
	if snap.Text != testDoc {
		t.Errorf("Text = %q, want test document", snap.Text)
	}

	snap, err = s.SetMode(false)
	if err != nil {
		t.Fatalf("SetMode(false): %v", err)
	}
	if snap.TestMode {
		t.Error("TestMode = true, want false")
	}
	if snap.Text != prodDoc {
		t.Errorf("Text = %q, want production document", snap.Text)
	}
	// Current reflects the last successful call.
	if got := s.Current(); got.TestMode || got.Text != prodDoc {
		t.Errorf("Current() = %+v, want production snapshot", got)
	}
}

func TestSetMode_MissingFileFallsBackToBuiltin(t *testing.T) {
	s := NewStore(config.KnowledgeConfig{
		Dir:      t.TempDir(),
		File:     "hr-kompendium.txt",
		TestFile: "hr-kompendium-test.txt",
	})

	snap := s.Current()
	if snap.SourceName != BuiltinSourceName {
		t.Errorf("SourceName = %q, want %q", snap.SourceName, BuiltinSourceName)
	}
	if snap.Text == "" {
		t.Fatal("builtin document is empty")
	}
	if !strings.Contains(snap.Text, "urlop") && !strings.Contains(snap.Text, "Urlop") {
		t.Error("builtin document should mention urlop")
	}

	_, err := s.SetMode(true)
	if err == nil {
		t.Fatal("SetMode on missing file: expected error")
	}
	// Even after the failed reload a full document is still served.
	if got := s.Current(); got.Text == "" {
		t.Error("Current().Text empty after failed reload")
	}
}

func TestCurrent_NoTornReads(t *testing.T) {
	cfg := writeDocs(t)
	s := NewStore(cfg)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.SetMode(i%2 == 0)
		}
		close(stop)
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Current()
				// A snapshot is internally consistent: the text always
				// matches the mode it claims.
				if snap.TestMode && snap.Text != testDoc {
					t.Error("test-mode snapshot with non-test text")
					return
				}
				if !snap.TestMode && snap.Text != prodDoc {
					t.Error("prod-mode snapshot with non-prod text")
					return
				}
			}
		}()
	}
	wg.Wait()
}

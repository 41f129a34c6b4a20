package journal

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"codeberg.org/snonux/ankify/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath()
	if !strings.HasSuffix(path, filepath.Join(".local", "state", "ankify", "journal.db")) {
		t.Errorf("Unexpected default path: %s", path)
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	s := openTestStore(t)
	testutil.AssertFileExists(t, s.Path())
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, front := range []string{"Q1", "Q2", "Q3"} {
		err := s.Record(ctx, Entry{
			NoteID:    int64(100 + i),
			DeckName:  "Test",
			Front:     front,
			Back:      "A",
			Tags:      []string{"ankify", "source:Google-Chrome"},
			SourceApp: "Google Chrome",
			SourceURL: "https://example.com/page",
			SessionID: "session-1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(recent))
	}
	if recent[0].Front != "Q3" || recent[1].Front != "Q2" {
		t.Errorf("Expected newest first, got %s, %s", recent[0].Front, recent[1].Front)
	}

	e := recent[0]
	if e.NoteID != 102 || e.DeckName != "Test" || e.SourceApp != "Google Chrome" || e.SessionID != "session-1" {
		t.Errorf("Unexpected entry: %+v", e)
	}
	if !reflect.DeepEqual(e.Tags, []string{"ankify", "source:Google-Chrome"}) {
		t.Errorf("Unexpected tags: %v", e.Tags)
	}
	if !e.CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("Unexpected timestamp: %v", e.CreatedAt)
	}

	all, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0) failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected all 3 entries, got %d", len(all))
	}
}

func TestRecord_StampsTime(t *testing.T) {
	s := openTestStore(t)
	before := time.Now().Add(-time.Second)

	if err := s.Record(context.Background(), Entry{NoteID: 1, DeckName: "D", Front: "F", Back: "B"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	entries, _ := s.Recent(context.Background(), 1)
	if len(entries) != 1 || entries[0].CreatedAt.Before(before) {
		t.Errorf("Expected a current timestamp, got %+v", entries)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.Record(context.Background(), Entry{NoteID: 7, DeckName: "D", Front: "F", Back: "B"})
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s.Close()

	entries, err := s.Recent(context.Background(), 0)
	if err != nil || len(entries) != 1 || entries[0].NoteID != 7 {
		t.Errorf("Expected the recorded entry after reopening, got %v (%v)", entries, err)
	}
}

func TestExportCSV(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.Record(ctx, Entry{NoteID: 2, DeckName: "Test", Front: "Second, with comma", Back: "B2", Tags: []string{"ankify"}, CreatedAt: base.Add(time.Minute)})
	s.Record(ctx, Entry{NoteID: 1, DeckName: "Test", Front: "First", Back: "Line one\nline two", Tags: []string{"ankify", "url:example-com"}, CreatedAt: base})

	out := filepath.Join(t.TempDir(), "export.csv")
	n, err := s.ExportCSV(ctx, out)
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 exported notes, got %d", n)
	}

	testutil.AssertFileContains(t, out, "#columns:Front,Back,Tags,Deck")
	testutil.AssertFileContains(t, out, "#deck column:4")

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}

	var body []string
	for _, line := range strings.SplitAfter(string(data), "\n") {
		if !strings.HasPrefix(line, "#") {
			body = append(body, line)
		}
	}

	records, err := csv.NewReader(strings.NewReader(strings.Join(body, ""))).ReadAll()
	if err != nil {
		t.Fatalf("Export is not valid CSV: %v", err)
	}

	want := [][]string{
		{"First", "Line one\nline two", "ankify url:example-com", "Test"},
		{"Second, with comma", "B2", "ankify", "Test"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("Unexpected records:\n got  %q\n want %q", records, want)
	}
}

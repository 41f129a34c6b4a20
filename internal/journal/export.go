package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// csvHeader tells Anki's importer how to read the file
var csvHeader = []string{
	"#separator:comma",
	"#html:true",
	"#columns:Front,Back,Tags,Deck",
	"#tags column:3",
	"#deck column:4",
}

// ExportCSV writes all entries, oldest first, to an Anki-importable CSV file
// and returns the number of notes written.
func (s *Store) ExportCSV(ctx context.Context, path string) (int, error) {
	entries, err := s.All(ctx)
	if err != nil {
		return 0, err
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	for _, line := range csvHeader {
		if _, err := fmt.Fprintln(file, line); err != nil {
			return 0, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	for _, e := range entries {
		record := []string{
			e.Front,
			e.Back,
			strings.Join(e.Tags, " "),
			e.DeckName,
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write note %d: %w", e.NoteID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("failed to write CSV: %w", err)
	}

	return len(entries), nil
}

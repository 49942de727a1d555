// package formatter provides functions to export library data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/quietfall/tonearm/internal/models"
	"github.com/quietfall/tonearm/internal/shared"
)

// ExportToCSV converts a song list to CSV format with columns: ID, Title, Artist, Duration, Source, Owner
func ExportToCSV(songs []models.Song) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Duration", "Source", "Owner"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range songs {
		record := []string{
			song.ID,
			song.Title,
			song.DisplayArtist(),
			shared.FormatDuration(song.DurationSeconds),
			sourceString(song),
			song.OwnerID,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a song list to Markdown format under the given title
func ExportToMarkdown(title string, songs []models.Song) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(songs)))

	buf.WriteString("## Tracks\n\n")
	for i, song := range songs {
		duration := shared.FormatDuration(song.DurationSeconds)
		localPart := ""
		if song.Local {
			localPart = " (local)"
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, song.DisplayArtist(), song.Title, localPart, duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a song list to plain text, one track per line
func ExportToText(songs []models.Song) []byte {
	var buf bytes.Buffer
	for _, song := range songs {
		buf.WriteString(fmt.Sprintf("%s - %s [%s]\n", song.DisplayArtist(), song.Title, shared.FormatDuration(song.DurationSeconds)))
	}
	return buf.Bytes()
}

func sourceString(song models.Song) string {
	if song.Local {
		return "local"
	}
	return "cloud"
}

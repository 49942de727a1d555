package formatter

import (
	"strings"
	"testing"

	"github.com/quietfall/tonearm/internal/models"
)

func sampleSongs() []models.Song {
	return []models.Song{
		{
			ID:              "track1",
			Title:           "Song One",
			Artist:          "Artist One",
			DurationSeconds: 180,
			OwnerID:         "user-1",
		},
		{
			ID:              "track2",
			Title:           "Song Two",
			DurationSeconds: 245,
			OwnerID:         "guest",
			Local:           true,
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleSongs())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "ID,Title,Artist,Duration,Source,Owner") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "track1") {
			t.Errorf("CSV missing track1 ID")
		}
		if !strings.Contains(output, "Song One") {
			t.Errorf("CSV missing track1 title")
		}
		if !strings.Contains(output, "3:00") {
			t.Errorf("CSV missing formatted duration")
		}
		if !strings.Contains(output, models.DefaultArtist) {
			t.Errorf("untagged track should fall back to the default artist")
		}
		if !strings.Contains(output, "local") {
			t.Errorf("CSV missing local source marker")
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown("My Library", sampleSongs())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "# My Library") {
			t.Errorf("Markdown missing title, got: %s", output)
		}
		if !strings.Contains(output, "**Tracks**: 2") {
			t.Errorf("Markdown missing track count")
		}
		if !strings.Contains(output, "1. Artist One - Song One [3:00]") {
			t.Errorf("Markdown missing first track line, got: %s", output)
		}
		if !strings.Contains(output, "(local) [4:05]") {
			t.Errorf("Markdown missing local marker, got: %s", output)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		output := string(ExportToText(sampleSongs()))

		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d: %q", len(lines), output)
		}
		if lines[0] != "Artist One - Song One [3:00]" {
			t.Errorf("unexpected first line %q", lines[0])
		}
	})

	t.Run("empty library", func(t *testing.T) {
		data, err := ExportToCSV(nil)
		if err != nil {
			t.Fatal(err)
		}
		if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 1 {
			t.Errorf("empty export should be headers only, got %q", data)
		}
	})
}

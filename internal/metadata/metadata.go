// package metadata extracts best-effort tag data from audio files.
//
// Extraction never fails the caller: unreadable files, missing tags and
// unsupported formats all degrade to an empty result, logged only.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dhowden/tag"
	"github.com/quietfall/tonearm/internal/shared"
)

// Tags is the best-effort result of reading a file's metadata.
// Any field may be empty.
type Tags struct {
	Title         string
	Artist        string
	CoverImageURL string
}

// Extractor yields tag data for an audio file.
type Extractor interface {
	Extract(path string) Tags
}

// TagExtractor reads ID3v1/ID3v2, MP4 and Vorbis comment tags.
type TagExtractor struct {
	logger *log.Logger

	// coverDir receives extracted cover art as session-local files.
	// Defaults to the system temp directory.
	coverDir string
}

// NewTagExtractor creates a TagExtractor.
func NewTagExtractor(logger *log.Logger) *TagExtractor {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TagExtractor{logger: logger, coverDir: os.TempDir()}
}

var _ Extractor = (*TagExtractor)(nil)

// Extract reads the file's tags. Absence of tags is not an error.
func (e *TagExtractor) Extract(path string) Tags {
	f, err := os.Open(path)
	if err != nil {
		e.logger.Warn("metadata: cannot open file", "path", path, "err", err)
		return Tags{}
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// Common case: the file simply has no tags.
		e.logger.Debug("metadata: no readable tags", "path", path, "err", err)
		return Tags{}
	}

	out := Tags{Title: m.Title(), Artist: m.Artist()}
	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		if coverPath, err := e.writeCover(pic); err != nil {
			e.logger.Warn("metadata: cover extraction failed", "path", path, "err", err)
		} else {
			out.CoverImageURL = coverPath
		}
	}
	return out
}

// writeCover materializes embedded cover art as a session-local file.
// These files live for the session; eviction of the owning song merely drops
// the reference.
func (e *TagExtractor) writeCover(pic *tag.Picture) (string, error) {
	ext := pic.Ext
	if ext == "" {
		ext = "img"
	}
	f, err := os.CreateTemp(e.coverDir, fmt.Sprintf("tonearm-cover-*.%s", ext))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(pic.Data); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return filepath.ToSlash(f.Name()), nil
}

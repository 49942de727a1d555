package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/quietfall/tonearm/internal/models"
)

var (
	_ list.Item = songItem{}
)

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song models.Song
}

func (i songItem) FilterValue() string { return i.song.Title }
func (i songItem) Title() string       { return i.song.Title }
func (i songItem) Description() string {
	desc := i.song.DisplayArtist()
	if i.song.Local {
		desc = fmt.Sprintf("%s • local only", desc)
	}
	return desc
}

package models

import (
	"strings"
	"time"
)

// GuestOwnerID is the sentinel owner for tracks created in guest mode.
// Guest-owned tracks are never persisted remotely.
const GuestOwnerID = "guest"

// DefaultArtist is used when no artist tag can be extracted from a file.
const DefaultArtist = "Unknown Artist"

// Song represents one playable track held by the library.
//
// SourceURL is either a remote URL issued by the backend or a locally
// allocated resource path for guest and fallback tracks.
type Song struct {
	ID              string
	SourceURL       string
	Title           string
	Artist          string
	DurationSeconds float64
	CoverImageURL   string
	OwnerID         string
	Local           bool
}

// IsGuest reports whether the song belongs to the guest owner.
func (s Song) IsGuest() bool {
	return s.OwnerID == GuestOwnerID
}

// DisplayArtist returns the artist or the default placeholder.
func (s Song) DisplayArtist() string {
	if strings.TrimSpace(s.Artist) == "" {
		return DefaultArtist
	}
	return s.Artist
}

// User represents an authenticated identity backed by the remote store.
type User struct {
	ID       string
	Username string
	Email    string
}

// TrackRecord is the persisted form of a track as the backend stores it.
type TrackRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	URL       string    `json:"url"`
	Duration  float64   `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
}

// Song converts a persisted record into a library Song.
func (r TrackRecord) Song() Song {
	return Song{
		ID:              r.ID,
		SourceURL:       r.URL,
		Title:           r.Title,
		Artist:          r.Artist,
		DurationSeconds: r.Duration,
		OwnerID:         r.UserID,
	}
}

package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quietfall/tonearm/internal/models"
)

type trackInsert struct {
	UserID   string  `json:"user_id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
}

// handleInsertTrack creates a track row. Rows can only be written for the
// identity behind the token, mirroring a row-level security policy.
func (s *Server) handleInsertTrack(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(r)
	if !ok {
		policyError(w, http.StatusUnauthorized, `new row violates row-level security policy for table "tracks"`)
		return
	}

	var in trackInsert
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	if in.UserID != userID {
		policyError(w, http.StatusForbidden, `new row violates row-level security policy for table "tracks"`)
		return
	}

	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO tracks (user_id, title, artist, url, duration, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		in.UserID, in.Title, in.Artist, in.URL, in.Duration, now,
	)
	if err != nil {
		s.logger.Error("track insert failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "insert failed"})
		return
	}

	id, err := result.LastInsertId()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "insert failed"})
		return
	}

	rec := models.TrackRecord{
		ID:        fmt.Sprintf("%d", id),
		UserID:    in.UserID,
		Title:     in.Title,
		Artist:    in.Artist,
		URL:       in.URL,
		Duration:  in.Duration,
		CreatedAt: now,
	}
	writeJSON(w, http.StatusCreated, []models.TrackRecord{rec})
}

// handleListTracks returns the caller's rows matching the filter. Filtering
// for another identity yields an empty set, not an error, like a select
// policy would.
func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(r)
	if !ok {
		policyError(w, http.StatusUnauthorized, "permission denied: row-level security")
		return
	}

	owner := strings.TrimPrefix(r.URL.Query().Get("user_id"), "eq.")
	if owner != userID {
		writeJSON(w, http.StatusOK, []models.TrackRecord{})
		return
	}

	order := "id DESC"
	if r.URL.Query().Get("order") == "id.asc" {
		order = "id ASC"
	}

	rows, err := s.db.Query(
		`SELECT id, user_id, title, artist, url, duration, created_at FROM tracks WHERE user_id = ? ORDER BY `+order,
		owner,
	)
	if err != nil {
		s.logger.Error("track query failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "query failed"})
		return
	}
	defer rows.Close()

	records := []models.TrackRecord{}
	for rows.Next() {
		var (
			id  int64
			rec models.TrackRecord
		)
		if err := rows.Scan(&id, &rec.UserID, &rec.Title, &rec.Artist, &rec.URL, &rec.Duration, &rec.CreatedAt); err != nil {
			s.logger.Error("track scan failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "scan failed"})
			return
		}
		rec.ID = fmt.Sprintf("%d", id)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("track iteration failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "query failed"})
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// policyError writes a rejection whose body names the security policy, the
// shape clients classify permission failures by.
func policyError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

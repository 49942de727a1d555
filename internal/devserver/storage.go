package devserver

import (
	"database/sql"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxObjectSize caps uploads at 50 MiB, matching common storage defaults.
const maxObjectSize = 50 << 20

// handlePutObject stores an audio binary. The object path must live under the
// caller's own prefix.
func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	path := r.PathValue("path")

	if bucket != s.bucket {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Bucket not found"})
		return
	}

	userID, ok := s.authenticate(r)
	if !ok || !strings.HasPrefix(path, userID+"/") {
		policyError(w, http.StatusForbidden, "new row violates row-level security policy")
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxObjectSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "could not read body"})
		return
	}
	if len(data) > maxObjectSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"message": "object too large"})
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO objects (bucket, path, content_type, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		bucket, path, contentType, data, time.Now().UTC(),
	)
	if err != nil {
		s.logger.Error("object insert failed", "path", path, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "store failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"Key": bucket + "/" + path})
}

// handleGetObject serves a stored binary. Reads are public, like a public
// storage bucket.
func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	path := r.PathValue("path")

	if bucket != s.bucket {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Bucket not found"})
		return
	}

	var (
		contentType string
		data        []byte
	)
	err := s.db.QueryRow(
		`SELECT content_type, data FROM objects WHERE bucket = ? AND path = ?`,
		bucket, path,
	).Scan(&contentType, &data)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Object not found"})
		return
	}
	if err != nil {
		s.logger.Error("object read failed", "path", path, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "read failed"})
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleDeleteObject removes a stored binary under the caller's prefix.
func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	path := r.PathValue("path")

	if bucket != s.bucket {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Bucket not found"})
		return
	}

	userID, ok := s.authenticate(r)
	if !ok || !strings.HasPrefix(path, userID+"/") {
		policyError(w, http.StatusForbidden, "permission denied: security policy")
		return
	}

	if _, err := s.db.Exec(`DELETE FROM objects WHERE bucket = ? AND path = ?`, bucket, path); err != nil {
		s.logger.Error("object delete failed", "path", path, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "delete failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

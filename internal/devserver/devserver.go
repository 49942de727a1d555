// Package devserver runs a self-hosted persistence backend for local
// development, speaking the same HTTP surface the player's remote client
// expects: auth under /auth/v1, track rows under /rest/v1/tracks and audio
// binaries under /storage/v1/object.
//
// State lives in a single SQLite database. Issued access tokens are held in
// memory only, so identities must sign in again after a restart.
package devserver

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/quietfall/tonearm/internal/shared"
)

// Server is the dev backend.
type Server struct {
	db     *sql.DB
	bucket string
	logger *log.Logger

	mu     sync.Mutex
	tokens map[string]string // access token -> user id
}

// New creates a Server over an open database, applying the schema.
func New(db *sql.DB, bucket string, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if bucket == "" {
		bucket = "audio"
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Server{
		db:     db,
		bucket: bucket,
		logger: logger,
		tokens: map[string]string{},
	}, nil
}

// Open opens (or creates) the database at path and builds a Server on it.
func Open(cfg *shared.Config, logger *log.Logger) (*Server, error) {
	path := cfg.Database.Path
	if path == "" {
		path = "tonearm.db"
	}
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}
	if cfg.Database.MaxOpenConns > 0 {
		shared.ConfigureDatabase(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	}
	return New(db, cfg.Backend.Bucket, logger)
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Handler assembles the HTTP surface.
func (s *Server) Handler() http.Handler {
	router := newRouter()
	router.Use(s.logging)

	router.Handle("POST /auth/v1/signup", http.HandlerFunc(s.handleSignUp))
	router.Handle("POST /auth/v1/token", http.HandlerFunc(s.handleToken))
	router.Handle("POST /auth/v1/logout", http.HandlerFunc(s.handleLogout))
	router.Handle("GET /auth/v1/user", http.HandlerFunc(s.handleUser))

	router.Handle("POST /rest/v1/tracks", http.HandlerFunc(s.handleInsertTrack))
	router.Handle("GET /rest/v1/tracks", http.HandlerFunc(s.handleListTracks))

	router.Handle("GET /storage/v1/object/public/{bucket}/{path...}", http.HandlerFunc(s.handleGetObject))
	router.Handle("POST /storage/v1/object/{bucket}/{path...}", http.HandlerFunc(s.handlePutObject))
	router.Handle("DELETE /storage/v1/object/{bucket}/{path...}", http.HandlerFunc(s.handleDeleteObject))

	return router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dev backend listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

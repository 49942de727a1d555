package devserver

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/quietfall/tonearm/internal/shared"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authPayload struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        userInfo `json:"user"`
}

type userInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// handleSignUp registers a new account and signs it in.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	id := shared.GenerateID()
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		id, creds.Email, hashPassword(creds.Password), time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			authError(w, http.StatusUnprocessableEntity, "User already registered")
			return
		}
		s.logger.Error("signup insert failed", "err", err)
		authError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	s.issueToken(w, userInfo{ID: id, Email: creds.Email})
}

// handleToken implements the password grant.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if grant := r.URL.Query().Get("grant_type"); grant != "password" {
		authError(w, http.StatusBadRequest, "unsupported grant_type")
		return
	}
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	var id, hash string
	err := s.db.QueryRow(`SELECT id, password_hash FROM users WHERE email = ?`, creds.Email).Scan(&id, &hash)
	if err == sql.ErrNoRows || (err == nil && hash != hashPassword(creds.Password)) {
		authError(w, http.StatusBadRequest, "Invalid login credentials")
		return
	}
	if err != nil {
		s.logger.Error("sign-in lookup failed", "err", err)
		authError(w, http.StatusInternalServerError, "could not sign in")
		return
	}

	s.issueToken(w, userInfo{ID: id, Email: creds.Email})
}

// handleLogout revokes the presented token. Always succeeds.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// handleUser resolves the identity behind the presented token.
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(r)
	if !ok {
		authError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	var email string
	if err := s.db.QueryRow(`SELECT email FROM users WHERE id = ?`, userID).Scan(&email); err != nil {
		authError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	writeJSON(w, http.StatusOK, userInfo{ID: userID, Email: email})
}

// issueToken mints an access token for the user and writes the auth response.
func (s *Server) issueToken(w http.ResponseWriter, user userInfo) {
	token := shared.GenerateID()
	s.mu.Lock()
	s.tokens[token] = user.ID
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, authPayload{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}

// authenticate resolves the bearer token to a user id.
func (s *Server) authenticate(r *http.Request) (string, bool) {
	token := bearerToken(r)
	if token == "" {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[token]
	return userID, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	return strings.TrimPrefix(header, "Bearer ")
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email == "" || creds.Password == "" {
		authError(w, http.StatusBadRequest, "email and password are required")
		return credentials{}, false
	}
	return creds, true
}

// authError writes the auth error shape the client reads detail from.
func authError(w http.ResponseWriter, status int, description string) {
	writeJSON(w, status, map[string]string{"error_description": description})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

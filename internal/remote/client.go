// HTTP [Store] implementation for a Supabase-style persistence backend.
//
// Storage objects live under /storage/v1/object/{bucket}, track rows behind
// the REST surface at /rest/v1/tracks, and auth at /auth/v1.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/quietfall/tonearm/internal/models"
	"github.com/quietfall/tonearm/internal/shared"
	"golang.org/x/time/rate"
)

// requestsPerSecond paces backend calls so rapid uploads don't trip the
// backend's own limiter.
const requestsPerSecond = 10

// Client implements [Store] over HTTP.
type Client struct {
	baseURL    string
	anonKey    string
	bucket     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	mu          sync.Mutex
	accessToken string
	user        *models.User
	subs        []chan AuthState
}

// ClientOpts contains configuration options for creating a Client.
type ClientOpts struct {
	BaseURL    string
	AnonKey    string
	Bucket     string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewClient creates a backend client. An empty BaseURL is allowed; every
// operation then fails with [shared.ErrBackendNotConfigured] so the caller can
// degrade to local-only behavior.
func NewClient(opts ClientOpts) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Bucket == "" {
		opts.Bucket = "audio"
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		anonKey:    opts.AnonKey,
		bucket:     opts.Bucket,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:     opts.Logger,
	}
}

var _ Store = (*Client)(nil)

// Configured reports whether a backend URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// UploadBinary stores the audio binary under {owner}/{unique name} and returns
// both the object path and its public URL.
func (c *Client) UploadBinary(ctx context.Context, ownerID, filename string, r io.Reader) (BinaryLocation, error) {
	if !c.Configured() {
		return BinaryLocation{}, fmt.Errorf("%w: %w", shared.ErrStorage, shared.ErrBackendNotConfigured)
	}

	objectPath := fmt.Sprintf("%s/%s-%s", ownerID, shared.GenerateID(), sanitizeFilename(filename))

	body, err := io.ReadAll(r)
	if err != nil {
		return BinaryLocation{}, fmt.Errorf("%w: reading file: %w", shared.ErrStorage, err)
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, objectPath)
	resp, err := c.do(ctx, http.MethodPost, endpoint, "application/octet-stream", bytes.NewReader(body))
	if err != nil {
		return BinaryLocation{}, fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return BinaryLocation{}, fmt.Errorf("%w: %w", shared.ErrStorage, classifyStatus(resp))
	}

	return BinaryLocation{
		Path: objectPath,
		URL:  fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, objectPath),
	}, nil
}

// InsertRecord creates the track row and returns the inserted representation.
func (c *Client) InsertRecord(ctx context.Context, rec models.TrackRecord) (models.TrackRecord, error) {
	if !c.Configured() {
		return models.TrackRecord{}, fmt.Errorf("%w: %w", shared.ErrRecord, shared.ErrBackendNotConfigured)
	}

	payload, err := json.Marshal(map[string]any{
		"user_id":  rec.UserID,
		"title":    rec.Title,
		"artist":   rec.Artist,
		"url":      rec.URL,
		"duration": rec.Duration,
	})
	if err != nil {
		return models.TrackRecord{}, fmt.Errorf("%w: %w", shared.ErrRecord, err)
	}

	endpoint := c.baseURL + "/rest/v1/tracks"
	resp, err := c.do(ctx, http.MethodPost, endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return models.TrackRecord{}, fmt.Errorf("%w: %w", shared.ErrRecord, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return models.TrackRecord{}, fmt.Errorf("%w: %w", shared.ErrRecord, classifyStatus(resp))
	}

	var rows []models.TrackRecord
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return models.TrackRecord{}, fmt.Errorf("%w: decoding response: %w", shared.ErrRecord, err)
	}
	if len(rows) == 0 {
		// Insert succeeded but returned nothing; treat as a policy problem
		// because a select policy is what usually hides the row.
		return models.TrackRecord{}, fmt.Errorf("%w: insert returned no rows: %w", shared.ErrRecord, shared.ErrPermissionPolicy)
	}

	return rows[0], nil
}

// DeleteBinary removes an uploaded object.
func (c *Client) DeleteBinary(ctx context.Context, loc BinaryLocation) error {
	if !c.Configured() {
		return shared.ErrBackendNotConfigured
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, loc.Path)
	resp, err := c.do(ctx, http.MethodDelete, endpoint, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return classifyStatus(resp)
	}
	return nil
}

// ListRecords returns the owner's tracks newest first, ordered by the
// server-assigned sequence id.
func (c *Client) ListRecords(ctx context.Context, ownerID string) ([]models.TrackRecord, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: %w", shared.ErrFetch, shared.ErrBackendNotConfigured)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/tracks?user_id=eq.%s&order=id.desc", c.baseURL, url.QueryEscape(ownerID))
	resp, err := c.do(ctx, http.MethodGet, endpoint, "", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %w", shared.ErrFetch, classifyStatus(resp))
	}

	var rows []models.TrackRecord
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", shared.ErrFetch, err)
	}
	return rows, nil
}

// ObserveAuth returns a stream of auth changes, current state first.
func (c *Client) ObserveAuth(ctx context.Context) <-chan AuthState {
	ch := make(chan AuthState, 1)

	c.mu.Lock()
	ch <- AuthState{User: c.user}
	c.subs = append(c.subs, ch)
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		for i, sub := range c.subs {
			if sub == ch {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
		close(ch)
	}()

	return ch
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (models.User, error) {
	return c.authRequest(ctx, "/auth/v1/token?grant_type=password", email, password)
}

// SignUp registers a new account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password string) (models.User, error) {
	return c.authRequest(ctx, "/auth/v1/signup", email, password)
}

// SignOut invalidates the backend session and clears the local token.
func (c *Client) SignOut(ctx context.Context) error {
	if !c.Configured() {
		return shared.ErrBackendNotConfigured
	}

	endpoint := c.baseURL + "/auth/v1/logout"
	resp, err := c.do(ctx, http.MethodPost, endpoint, "", nil)

	// The local token is dropped regardless of the backend outcome.
	c.setUser(nil, "")

	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, classifyStatus(resp))
	}
	return nil
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

func (c *Client) authRequest(ctx context.Context, path, email, password string) (models.User, error) {
	if !c.Configured() {
		return models.User{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, shared.ErrBackendNotConfigured)
	}

	payload, _ := json.Marshal(map[string]string{"email": email, "password": password})

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return models.User{}, fmt.Errorf("%w: decoding response: %w", shared.ErrAuthFailed, err)
	}

	if resp.StatusCode != http.StatusOK || auth.AccessToken == "" {
		detail := auth.ErrorDescription
		if detail == "" {
			detail = auth.Msg
		}
		if detail == "" {
			detail = resp.Status
		}
		return models.User{}, fmt.Errorf("%w: %s", shared.ErrAuthFailed, detail)
	}

	user := userFromAuth(auth.User.ID, auth.User.Email)
	c.setUser(&user, auth.AccessToken)
	return user, nil
}

// setUser swaps the current identity and notifies auth observers.
func (c *Client) setUser(user *models.User, token string) {
	c.mu.Lock()
	c.user = user
	c.accessToken = token
	subs := make([]chan AuthState, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub <- AuthState{User: user}:
		default:
			c.logger.Warn("auth observer not keeping up, dropping update")
		}
	}
}

func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("apikey", c.anonKey)

	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)

	if method == http.MethodPost && strings.Contains(endpoint, "/rest/v1/") {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// classifyStatus maps a failed backend response onto the error taxonomy.
//
// Policy rejections (RLS) surface as 401/403 or mention a security policy in
// the body; a missing bucket is a backend setup problem.
func classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	text := string(body)
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "bucket not found"):
		return fmt.Errorf("%w: %s", shared.ErrBucketMissing, strings.TrimSpace(text))
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		strings.Contains(lower, "security policy"),
		strings.Contains(lower, "row-level security"):
		return fmt.Errorf("%w: %s %s", shared.ErrPermissionPolicy, resp.Status, strings.TrimSpace(text))
	default:
		return fmt.Errorf("backend error: %s %s", resp.Status, strings.TrimSpace(text))
	}
}

func userFromAuth(id, email string) models.User {
	username := "User"
	if at := strings.Index(email, "@"); at > 0 {
		username = email[:at]
	}
	return models.User{ID: id, Username: username, Email: email}
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}

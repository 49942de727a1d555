package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/quietfall/tonearm/internal/models"
	"github.com/quietfall/tonearm/internal/shared"
	"golang.org/x/oauth2"
)

// callbackResult contains the result of an OAuth authorization flow.
type callbackResult struct {
	Token *oauth2.Token
	err   error
}

// callbackHandler handles OAuth2 callback requests for authorization code flow.
type callbackHandler struct {
	config      *oauth2.Config
	state       string
	resultChan  chan callbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

func newCallbackHandler(config *oauth2.Config, state string) *callbackHandler {
	return &callbackHandler{
		config:     config,
		state:      state,
		resultChan: make(chan callbackResult, 1),
	}
}

// ServeHTTP handles the OAuth callback request.
//
// Validates state parameter, exchanges authorization code for tokens, and sends the result through the result channel.
func (h *callbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle callback once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	state := r.URL.Query().Get("state")
	if state != h.state {
		err := fmt.Errorf("invalid state parameter")
		h.send(callbackResult{err: err})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		err := fmt.Errorf("authorization failed: %s - %s", errParam, errDesc)
		h.send(callbackResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(context.Background(), code)
	if err != nil {
		h.send(callbackResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.send(callbackResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "<html><body><h1>Authorization Successful</h1><p>You can close this window and return to the terminal.</p></body></html>")
}

// send sends the OAuth result through the channel (only once).
func (h *callbackHandler) send(result callbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// SignInWithProvider runs the authorization-code flow for the named provider
// against the backend's auth surface, listening on an ephemeral local port for
// the redirect.
func (c *Client) SignInWithProvider(ctx context.Context, provider string) (models.User, error) {
	if !c.Configured() {
		return models.User{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, shared.ErrBackendNotConfigured)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	defer listener.Close()

	conf := &oauth2.Config{
		ClientID:    c.anonKey,
		RedirectURL: fmt.Sprintf("http://%s/callback", listener.Addr().String()),
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/auth/v1/authorize?provider=%s", c.baseURL, provider),
			TokenURL: c.baseURL + "/auth/v1/token?grant_type=pkce",
		},
	}

	state := shared.GenerateID()
	handler := newCallbackHandler(conf, state)

	mux := http.NewServeMux()
	mux.Handle("/callback", handler)
	srv := &http.Server{Handler: mux}
	go srv.Serve(listener)
	defer srv.Close()

	authURL := conf.AuthCodeURL(state)
	if err := shared.OpenBrowser(authURL); err != nil {
		c.logger.Warn("could not open browser, visit manually", "url", authURL)
	}

	select {
	case <-ctx.Done():
		return models.User{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, ctx.Err())
	case result := <-handler.resultChan:
		if result.err != nil {
			return models.User{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.err)
		}
		return c.adoptToken(ctx, result.Token)
	}
}

// adoptToken resolves the identity behind an access token and installs it.
func (c *Client) adoptToken(ctx context.Context, token *oauth2.Token) (models.User, error) {
	c.mu.Lock()
	c.accessToken = token.AccessToken
	c.mu.Unlock()

	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", "", nil)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.User{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, classifyStatus(resp))
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.User{}, fmt.Errorf("%w: decoding response: %w", shared.ErrAuthFailed, err)
	}

	user := userFromAuth(payload.ID, payload.Email)
	c.setUser(&user, token.AccessToken)
	return user, nil
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// API paths, matching the analytics service's routing.
const (
	pathTokenAuth     = "/api-token-auth/"
	pathProfile       = "/api/users/0/"
	pathRegister      = "/api/users/register/"
	pathPasswordReset = "/api/password-reset/"
	pathHistory       = "/api/sessions/history/"
	pathUploadCSV     = "/api/sessions/upload_csv/"
)

// Client issues authenticated requests against the analytics service.
// The bearer token is set by the session manager after login or token
// verification; all other methods read it. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a Client for the given base URL. httpClient may be
// nil, in which case http.DefaultClient is used.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// SetToken replaces the bearer token used for authenticated requests.
// An empty token clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token, or an empty string.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do sends a request with the stored token (if any) and returns the
// response body for 2xx statuses. Non-2xx responses are returned as
// *statusError carrying the body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{status: resp.StatusCode, body: respBody}
	}
	return respBody, nil
}

// statusError is an internal carrier for non-2xx responses; the typed
// API methods translate it into the public error taxonomy.
type statusError struct {
	status int
	body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.status, strings.TrimSpace(string(e.body)))
}

func (e *statusError) message() string {
	return serverMessage(e.body)
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	return bytes.NewReader(b), nil
}

// Login exchanges credentials for a bearer token. Rejected credentials
// are reported as *AuthError.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := jsonBody(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}
	respBody, err := c.do(ctx, http.MethodPost, pathTokenAuth, body, "application/json")
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return "", &AuthError{Message: se.message()}
		}
		return "", fmt.Errorf("login: %w", err)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("login: invalid response: %w", err)
	}
	if result.Token == "" {
		return "", fmt.Errorf("login: response missing token")
	}
	return result.Token, nil
}

// Profile fetches the identity record for the given token. Used for
// startup verification and post-login hydration; it deliberately does
// not touch the stored token.
func (c *Client) Profile(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathProfile, nil)
	if err != nil {
		return User{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("profile: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return User{}, fmt.Errorf("profile: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return User{}, &statusError{status: resp.StatusCode, body: respBody}
	}

	var user User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return User{}, fmt.Errorf("profile: invalid response: %w", err)
	}
	if err := user.validate(); err != nil {
		return User{}, fmt.Errorf("profile: %w", err)
	}
	return user, nil
}

// Register creates an account. It does not establish a session; callers
// log in afterwards. Failures carry the server message when available.
func (c *Client) Register(ctx context.Context, username, password, email string) (RegisterResponse, error) {
	body, err := jsonBody(map[string]string{
		"username": username,
		"password": password,
		"email":    email,
	})
	if err != nil {
		return RegisterResponse{}, err
	}
	respBody, err := c.do(ctx, http.MethodPost, pathRegister, body, "application/json")
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return RegisterResponse{}, &RegisterError{Message: se.message()}
		}
		return RegisterResponse{}, fmt.Errorf("register: %w", err)
	}

	var result RegisterResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return RegisterResponse{}, fmt.Errorf("register: invalid response: %w", err)
	}
	return result, nil
}

// RequestPasswordReset triggers the out-of-band reset flow for email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (ResetResponse, error) {
	body, err := jsonBody(map[string]string{"email": email})
	if err != nil {
		return ResetResponse{}, err
	}
	respBody, err := c.do(ctx, http.MethodPost, pathPasswordReset, body, "application/json")
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return ResetResponse{}, &ResetError{Message: se.message()}
		}
		return ResetResponse{}, fmt.Errorf("password reset: %w", err)
	}

	var result ResetResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return ResetResponse{}, fmt.Errorf("password reset: invalid response: %w", err)
	}
	return result, nil
}

// History lists the caller's prior upload summaries, newest first.
func (c *Client) History(ctx context.Context) ([]Session, error) {
	respBody, err := c.do(ctx, http.MethodGet, pathHistory, nil, "")
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	var sessions []Session
	if err := json.Unmarshal(respBody, &sessions); err != nil {
		return nil, fmt.Errorf("history: invalid response: %w", err)
	}
	return sessions, nil
}

// UploadCSV submits the CSV file at path and returns the resulting
// session summary. Files without a .csv extension are rejected locally
// before any network call.
func (c *Client) UploadCSV(ctx context.Context, path string) (Session, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return Session{}, &UploadError{Message: fmt.Sprintf("%s is not a CSV file", filepath.Base(path))}
	}

	f, err := os.Open(path)
	if err != nil {
		return Session{}, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return Session{}, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return Session{}, fmt.Errorf("copying file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Session{}, fmt.Errorf("closing form: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, pathUploadCSV, &buf, writer.FormDataContentType())
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			msg := se.message()
			if msg == "" {
				msg = fmt.Sprintf("upload rejected with status %d", se.status)
			}
			return Session{}, &UploadError{Message: msg}
		}
		return Session{}, fmt.Errorf("upload: %w", err)
	}

	var session Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return Session{}, fmt.Errorf("upload: invalid response: %w", err)
	}
	return session, nil
}

// GenerateReport requests a rendered report for the session and returns
// the raw payload.
func (c *Client) GenerateReport(ctx context.Context, sessionID string, format ReportFormat) ([]byte, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
	body, err := jsonBody(map[string]string{"format": string(format)})
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/api/sessions/%s/generate_report/", sessionID)
	blob, err := c.do(ctx, http.MethodPost, path, body, "application/json")
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	return blob, nil
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// UserProfile is the account payload shared by auth and profile responses.
type UserProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Project mirrors the backend project payload.
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"projectName"`
	Description  string    `json:"description"`
	ClientName   string    `json:"clientName"`
	ClientEmail  string    `json:"clientEmail"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	TicketPrefix string    `json:"ticketPrefix"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Task mirrors the backend task payload. TicketNumber is always the
// server-assigned value.
type Task struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project"`
	TicketNumber string    `json:"ticketNumber"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Status       string    `json:"status"`
	AssignedTo   string    `json:"assignedTo,omitempty"`
	StartDate    time.Time `json:"startDate"`
	DueDate      time.Time `json:"dueDate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TeamMember mirrors the backend team member payload.
type TeamMember struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Email    string   `json:"email"`
	Projects []string `json:"projects"`
}

// CreateProjectParams is the create-project request body.
type CreateProjectParams struct {
	Name        string    `json:"projectName"`
	Description string    `json:"description"`
	ClientName  string    `json:"clientName"`
	ClientEmail string    `json:"clientEmail"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
}

// CreateTaskParams is the create-task request body. TicketNumber is an
// optional locally computed preview; the server regenerates it if stale.
type CreateTaskParams struct {
	ProjectID    string    `json:"project"`
	TicketNumber string    `json:"ticketNumber,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	StartDate    time.Time `json:"startDate"`
	DueDate      time.Time `json:"dueDate"`
}

// UpdateProjectParams is a partial project update; nil fields are left
// unchanged server-side.
type UpdateProjectParams struct {
	Name        *string    `json:"projectName,omitempty"`
	Description *string    `json:"description,omitempty"`
	ClientName  *string    `json:"clientName,omitempty"`
	ClientEmail *string    `json:"clientEmail,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

// UpdateTaskParams is a partial task update. The ticket number is not here;
// it never changes after creation.
type UpdateTaskParams struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	AssignedTo  *string    `json:"assignedTo,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// AuthResult is the session opened by signup or login.
type AuthResult struct {
	User      UserProfile `json:"user"`
	Token     string      `json:"token"`
	SessionID string      `json:"sessionId"`
	ExpiresIn int64       `json:"expiresIn"`
	Message   string      `json:"message"`
}

// RefreshResult is a rotated token for the same session.
type RefreshResult struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

type verifyResult struct {
	User    UserProfile `json:"user"`
	Message string      `json:"message"`
}

// APIError is a non-2xx backend answer, decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// APIClient is the typed REST client for the Taskdeck backend. It attaches
// the current bearer token to every call and, when a refresh function is
// installed, retries exactly once after an unauthorized answer.
type APIClient struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	token     string
	refreshFn func(ctx context.Context) (string, error)
}

type APIClientOption func(*APIClient)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) APIClientOption {
	return func(c *APIClient) { c.httpClient = hc }
}

func NewAPIClient(baseURL string, opts ...APIClientOption) *APIClient {
	c := &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken installs the bearer token used for subsequent calls.
func (c *APIClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// SetTokenRefresher installs the transparent 401-retry hook. The function
// must return a fresh valid token or an error.
func (c *APIClient) SetTokenRefresher(fn func(ctx context.Context) (string, error)) {
	c.mu.Lock()
	c.refreshFn = fn
	c.mu.Unlock()
}

func (c *APIClient) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *APIClient) currentRefresher() func(ctx context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshFn
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

type requestSpec struct {
	method         string
	path           string
	body           any
	idempotencyKey string
	bearer         string // overrides the stored token when set
}

func (c *APIClient) do(ctx context.Context, spec requestSpec, out any) error {
	err := c.doOnce(ctx, spec, out)
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.StatusCode != http.StatusUnauthorized || spec.bearer != "" {
		return err
	}
	refresh := c.currentRefresher()
	if refresh == nil {
		return err
	}
	fresh, refreshErr := refresh(ctx)
	if refreshErr != nil {
		return err
	}
	c.SetToken(fresh)
	return c.doOnce(ctx, spec, out)
}

func (c *APIClient) doOnce(ctx context.Context, spec requestSpec, out any) error {
	var body io.Reader
	if spec.body != nil {
		raw, err := json.Marshal(spec.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, c.baseURL+spec.path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if spec.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if spec.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", spec.idempotencyKey)
	}
	token := spec.bearer
	if token == "" {
		token = c.currentToken()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call backend: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return &APIError{StatusCode: resp.StatusCode, Code: "MALFORMED_RESPONSE", Message: string(raw)}
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

func (c *APIClient) Signup(ctx context.Context, name, email, password string) (AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/auth/signup",
		body:   map[string]string{"name": name, "email": email, "password": password},
	}, &res)
	return res, err
}

func (c *APIClient) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var res AuthResult
	err := c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
	}, &res)
	return res, err
}

// VerifyToken exchanges a persisted or provider-issued token for the account
// behind it without opening a new session.
func (c *APIClient) VerifyToken(ctx context.Context, token string) (UserProfile, error) {
	var res verifyResult
	err := c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/auth/verify-token",
		body:   map[string]string{"token": token},
	}, &res)
	return res.User, err
}

// Refresh trades a still-valid token for a fresh one. The token is sent
// explicitly so the call never loops through the 401-retry path itself.
func (c *APIClient) Refresh(ctx context.Context, token string) (RefreshResult, error) {
	var res RefreshResult
	err := c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/auth/refresh",
		bearer: token,
	}, &res)
	return res, err
}

func (c *APIClient) Logout(ctx context.Context) error {
	return c.do(ctx, requestSpec{method: http.MethodPost, path: "/auth/logout"}, nil)
}

func (c *APIClient) UpdateProfile(ctx context.Context, userID, name, email string) (UserProfile, error) {
	var res UserProfile
	err := c.do(ctx, requestSpec{
		method: http.MethodPut,
		path:   "/users/" + userID,
		body:   map[string]string{"name": name, "email": email},
	}, &res)
	return res, err
}

func (c *APIClient) CreateProject(ctx context.Context, params CreateProjectParams) (Project, error) {
	var res Project
	err := c.do(ctx, requestSpec{method: http.MethodPost, path: "/projects", body: params}, &res)
	return res, err
}

func (c *APIClient) ListProjects(ctx context.Context) ([]Project, error) {
	var res []Project
	err := c.do(ctx, requestSpec{method: http.MethodGet, path: "/projects"}, &res)
	return res, err
}

func (c *APIClient) GetProject(ctx context.Context, projectID string) (Project, error) {
	var res Project
	err := c.do(ctx, requestSpec{method: http.MethodGet, path: "/projects/" + projectID}, &res)
	return res, err
}

func (c *APIClient) UpdateProject(ctx context.Context, projectID string, params UpdateProjectParams) (Project, error) {
	var res Project
	err := c.do(ctx, requestSpec{method: http.MethodPatch, path: "/projects/" + projectID, body: params}, &res)
	return res, err
}

func (c *APIClient) DeleteProject(ctx context.Context, projectID string) error {
	return c.do(ctx, requestSpec{method: http.MethodDelete, path: "/projects/" + projectID}, nil)
}

func (c *APIClient) CreateTask(ctx context.Context, params CreateTaskParams, idempotencyKey string) (Task, error) {
	var res Task
	err := c.do(ctx, requestSpec{
		method:         http.MethodPost,
		path:           "/task",
		body:           params,
		idempotencyKey: idempotencyKey,
	}, &res)
	return res, err
}

func (c *APIClient) ListTasks(ctx context.Context, projectID string) ([]Task, error) {
	var res []Task
	err := c.do(ctx, requestSpec{method: http.MethodGet, path: "/task?project=" + projectID}, &res)
	return res, err
}

func (c *APIClient) GetTask(ctx context.Context, taskID string) (Task, error) {
	var res Task
	err := c.do(ctx, requestSpec{method: http.MethodGet, path: "/task/" + taskID}, &res)
	return res, err
}

func (c *APIClient) UpdateTask(ctx context.Context, taskID string, params UpdateTaskParams) (Task, error) {
	var res Task
	err := c.do(ctx, requestSpec{method: http.MethodPatch, path: "/task/" + taskID, body: params}, &res)
	return res, err
}

func (c *APIClient) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, requestSpec{method: http.MethodDelete, path: "/task/" + taskID}, nil)
}

// NextTicketNumber asks the server for the number the next task in the
// project would get. Preview only; creation may still assign a later one.
func (c *APIClient) NextTicketNumber(ctx context.Context, projectID string) (string, error) {
	var res struct {
		TicketNumber string `json:"ticketNumber"`
	}
	err := c.do(ctx, requestSpec{method: http.MethodGet, path: "/task/next-number?project=" + projectID}, &res)
	return res.TicketNumber, err
}

func (c *APIClient) ListTeamMembers(ctx context.Context) ([]TeamMember, error) {
	var res []TeamMember
	err := c.do(ctx, requestSpec{method: http.MethodGet, path: "/team-members"}, &res)
	return res, err
}

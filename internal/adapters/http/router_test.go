package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	httpadapter "github.com/taskdeck/taskdeck/internal/adapters/http"
	"github.com/taskdeck/taskdeck/internal/application"
	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/ports"
)

// envelope mirrors the wire contract shared with the client package.
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

func TestSignupLoginVerifyTokenContract(t *testing.T) {
	t.Parallel()
	router := newContractRouter(t)

	res := postJSON(t, router, "/auth/signup", "", map[string]any{
		"name":     "Ada Lovelace",
		"email":    "ada@example.com",
		"password": "correct-horse-9",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", res.Code, res.Body.String())
	}
	var signup application.AuthResponse
	decodeData(t, res, &signup)
	if signup.Token == "" || signup.User.Email != "ada@example.com" {
		t.Fatalf("signup: unexpected payload %+v", signup)
	}

	res = postJSON(t, router, "/auth/login", "", map[string]any{
		"email":    "ada@example.com",
		"password": "correct-horse-9",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var login application.AuthResponse
	decodeData(t, res, &login)
	if login.Token == "" {
		t.Fatal("login: expected a token")
	}

	res = postJSON(t, router, "/auth/verify-token", "", map[string]any{"token": login.Token})
	if res.Code != http.StatusOK {
		t.Fatalf("verify-token: expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var verify application.VerifyTokenResponse
	decodeData(t, res, &verify)
	if verify.User.ID != signup.User.ID {
		t.Fatalf("verify-token: expected user %s, got %s", signup.User.ID, verify.User.ID)
	}
}

func TestLoginRejectsBadPasswordWithStableCode(t *testing.T) {
	t.Parallel()
	router := newContractRouter(t)

	signupUser(t, router, "bob@example.com")

	res := postJSON(t, router, "/auth/login", "", map[string]any{
		"email":    "bob@example.com",
		"password": "wrong-password-1",
	})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	var body envelope
	mustDecode(t, res, &body)
	if body.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %s", body.Code)
	}
}

func TestLoginLocksAccountAfterRepeatedFailures(t *testing.T) {
	t.Parallel()
	router := newContractRouter(t)
	signupUser(t, router, "carol@example.com")

	for i := 0; i < 3; i++ {
		res := postJSON(t, router, "/auth/login", "", map[string]any{
			"email":    "carol@example.com",
			"password": fmt.Sprintf("bad-guess-%d", i),
		})
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, res.Code)
		}
	}

	res := postJSON(t, router, "/auth/login", "", map[string]any{
		"email":    "carol@example.com",
		"password": "correct-horse-9",
	})
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after lockout, got %d", res.Code)
	}
	var body envelope
	mustDecode(t, res, &body)
	if body.Code != "ACCOUNT_LOCKED" {
		t.Fatalf("expected ACCOUNT_LOCKED, got %s", body.Code)
	}
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	t.Parallel()
	router := newContractRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/projects/", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer, got %d", res.Code)
	}
	var body envelope
	mustDecode(t, res, &body)
	if body.Code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED, got %s", body.Code)
	}
}

func TestLogoutRevokesOutstandingToken(t *testing.T) {
	t.Parallel()
	router := newContractRouter(t)
	token := signupUser(t, router, "dave@example.com")

	res := postJSON(t, router, "/auth/logout", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d: %s", res.Code, res.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/projects/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
	var body envelope
	mustDecode(t, rec, &body)
	if body.Code != "SESSION_REVOKED" {
		t.Fatalf("expected SESSION_REVOKED, got %s", body.Code)
	}
}

func TestTaskLifecycleAllocatesSequentialTicketNumbers(t *testing.T) {
	t.Parallel()
	router := newContractRouter(t)
	token := signupUser(t, router, "erin@example.com")

	res := postJSON(t, router, "/projects/", token, map[string]any{
		"projectName": "Phoenix Initiative",
		"clientName":  "ACME",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("create project: expected 201, got %d: %s", res.Code, res.Body.String())
	}
	var project application.ProjectPayload
	decodeData(t, res, &project)
	if project.TicketPrefix != "PHOE" {
		t.Fatalf("expected derived prefix PHOE, got %s", project.TicketPrefix)
	}

	preview := nextNumber(t, router, token, project.ID)
	if preview != "PHOE-001" {
		t.Fatalf("expected preview PHOE-001, got %s", preview)
	}

	first := createTask(t, router, token, project.ID, "Bootstrap repo", "")
	if first.TicketNumber != "PHOE-001" {
		t.Fatalf("expected PHOE-001, got %s", first.TicketNumber)
	}
	second := createTask(t, router, token, project.ID, "Wire CI", "")
	if second.TicketNumber != "PHOE-002" {
		t.Fatalf("expected PHOE-002, got %s", second.TicketNumber)
	}

	// Deleting a task burns its number; the sequence never reuses it.
	req := httptest.NewRequest(http.MethodDelete, "/task/"+second.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete task: expected 200, got %d", rec.Code)
	}

	third := createTask(t, router, token, project.ID, "Write docs", "")
	if third.TicketNumber != "PHOE-003" {
		t.Fatalf("expected PHOE-003 after delete, got %s", third.TicketNumber)
	}
}

func TestCreateTaskReplaysIdempotentRequest(t *testing.T) {
	t.Parallel()
	router := newContractRouter(t)
	token := signupUser(t, router, "frank@example.com")

	res := postJSON(t, router, "/projects/", token, map[string]any{"projectName": "Atlas"})
	if res.Code != http.StatusCreated {
		t.Fatalf("create project: expected 201, got %d", res.Code)
	}
	var project application.ProjectPayload
	decodeData(t, res, &project)

	first := createTask(t, router, token, project.ID, "Ship it", "key-1")
	replay := createTask(t, router, token, project.ID, "Ship it", "key-1")
	if replay.TicketNumber != first.TicketNumber || replay.ID != first.ID {
		t.Fatalf("expected idempotent replay of %s, got %s", first.TicketNumber, replay.TicketNumber)
	}

	next := createTask(t, router, token, project.ID, "Another one", "")
	if next.TicketNumber == first.TicketNumber {
		t.Fatalf("replay must not consume a number: got duplicate %s", next.TicketNumber)
	}
}

func TestStaleClientPreviewIsRegeneratedServerSide(t *testing.T) {
	t.Parallel()
	router := newContractRouter(t)
	token := signupUser(t, router, "grace@example.com")

	res := postJSON(t, router, "/projects/", token, map[string]any{"projectName": "Nimbus"})
	var project application.ProjectPayload
	decodeData(t, res, &project)

	first := createTask(t, router, token, project.ID, "First", "")
	if first.TicketNumber != "NIMB-001" {
		t.Fatalf("expected NIMB-001, got %s", first.TicketNumber)
	}

	// Client computed NIMB-001 before the first create landed; the server
	// regenerates instead of failing.
	res = postJSON(t, router, "/task/", token, map[string]any{
		"project":      project.ID,
		"title":        "Second",
		"ticketNumber": "NIMB-001",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	var task application.TaskPayload
	decodeData(t, res, &task)
	if task.TicketNumber != "NIMB-002" {
		t.Fatalf("expected regenerated NIMB-002, got %s", task.TicketNumber)
	}

	// A preview for a different project's prefix is replaced server-side.
	res = postJSON(t, router, "/task/", token, map[string]any{
		"project":      project.ID,
		"title":        "Third",
		"ticketNumber": "OTHER-001",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	decodeData(t, res, &task)
	if task.TicketNumber != "NIMB-003" {
		t.Fatalf("expected regenerated NIMB-003, got %s", task.TicketNumber)
	}
}

func TestPartialUpdatesAcceptPatch(t *testing.T) {
	t.Parallel()
	router := newContractRouter(t)
	token := signupUser(t, router, "heidi@example.com")

	res := postJSON(t, router, "/projects/", token, map[string]any{"projectName": "Orbit"})
	if res.Code != http.StatusCreated {
		t.Fatalf("create project: expected 201, got %d", res.Code)
	}
	var project application.ProjectPayload
	decodeData(t, res, &project)

	res = patchJSON(t, router, "/projects/"+project.ID.String(), token, map[string]any{
		"description": "updated scope",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("patch project: expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var updated application.ProjectPayload
	decodeData(t, res, &updated)
	if updated.Description != "updated scope" {
		t.Fatalf("description = %q, want %q", updated.Description, "updated scope")
	}
	if updated.Name != "Orbit" {
		t.Fatalf("untouched name rewritten to %q", updated.Name)
	}

	task := createTask(t, router, token, project.ID, "Spin up", "")
	res = patchJSON(t, router, "/task/"+task.ID.String(), token, map[string]any{
		"status": "in-progress",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("patch task: expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var patched application.TaskPayload
	decodeData(t, res, &patched)
	if patched.Status != domain.TaskStatusInProgress {
		t.Fatalf("status = %q, want %q", patched.Status, domain.TaskStatusInProgress)
	}
	if patched.TicketNumber != task.TicketNumber {
		t.Fatalf("ticket number changed across update: %s -> %s", task.TicketNumber, patched.TicketNumber)
	}
}

func signupUser(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	res := postJSON(t, router, "/auth/signup", "", map[string]any{
		"name":     "Test User",
		"email":    email,
		"password": "correct-horse-9",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("signup %s: expected 201, got %d: %s", email, res.Code, res.Body.String())
	}
	var auth application.AuthResponse
	decodeData(t, res, &auth)
	return auth.Token
}

func createTask(t *testing.T, router http.Handler, token string, projectID uuid.UUID, title, idempotencyKey string) application.TaskPayload {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"project": projectID, "title": title})
	req := httptest.NewRequest(http.MethodPost, "/task/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("create task %q: expected 201, got %d: %s", title, res.Code, res.Body.String())
	}
	var task application.TaskPayload
	decodeData(t, res, &task)
	return task
}

func nextNumber(t *testing.T, router http.Handler, token string, projectID uuid.UUID) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/task/next-number?project="+projectID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("next-number: expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var payload struct {
		TicketNumber string `json:"ticketNumber"`
	}
	decodeData(t, res, &payload)
	return payload.TicketNumber
}

func postJSON(t *testing.T, router http.Handler, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func patchJSON(t *testing.T, router http.Handler, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(payload); err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPatch, path, &body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func mustDecode(t *testing.T, res *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(res.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
}

func decodeData(t *testing.T, res *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env envelope
	mustDecode(t, res, &env)
	if env.Status != "success" {
		t.Fatalf("expected success envelope, got %s: %s", env.Status, res.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data %q: %v", string(env.Data), err)
	}
}

func newContractRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			TokenTTL:             time.Hour,
			SessionTTL:           24 * time.Hour,
			SessionAbsoluteTTL:   48 * time.Hour,
			FailedLoginThreshold: 3,
			LockoutDuration:      10 * time.Minute,
			TaskIdempotencyTTL:   time.Hour,
		},
		Users:         &stubUsers{users: map[uuid.UUID]domain.User{}},
		Sessions:      &stubSessions{sessions: map[uuid.UUID]domain.Session{}},
		LoginAttempts: stubLoginAttempts{},
		Projects:      &stubProjects{projects: map[uuid.UUID]domain.Project{}},
		Tasks:         &stubTasks{tasks: map[uuid.UUID]domain.Task{}, allocated: map[string]bool{}},
		Outbox:        stubOutbox{},
		Idempotency:   &stubIdempotency{records: map[string]*ports.IdempotencyRecord{}},
		Lockouts:      &stubLockouts{states: map[string]ports.LockoutState{}},
		Revocations:   &stubRevocations{revoked: map[uuid.UUID]bool{}},
		Hasher:        stubHasher{},
		TokenSigner:   &stubSigner{claims: map[string]ports.AuthClaims{}},
	})
	return httpadapter.NewRouter(httpadapter.NewHandler(svc), httpadapter.RouterDeps{})
}

// Minimal in-memory port implementations, just enough semantics for the
// contract: ticket uniqueness, revocation, lockout counting.

type stubUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func (r *stubUsers) CreateWithOutboxTx(_ context.Context, params ports.CreateUserParams, _ ports.OutboxEvent) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == params.Email {
			return domain.User{}, domain.ErrConflict
		}
	}
	user := domain.User{
		UserID:       uuid.New(),
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		IsActive:     true,
		CreatedAt:    params.RegisteredAtUTC,
		UpdatedAt:    params.RegisteredAtUTC,
	}
	r.users[user.UserID] = user
	return user, nil
}

func (r *stubUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *stubUsers) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *stubUsers) GetByExternalSubject(context.Context, string) (domain.User, error) {
	return domain.User{}, domain.ErrNotFound
}

func (r *stubUsers) UpdateProfile(_ context.Context, userID uuid.UUID, name, email string, updatedAt time.Time) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	u.Name, u.Email, u.UpdatedAt = name, email, updatedAt
	r.users[userID] = u
	return u, nil
}

func (r *stubUsers) LinkExternalSubject(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}

type stubSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.Session
}

func (r *stubSessions) Create(_ context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := domain.Session{
		SessionID:      uuid.New(),
		UserID:         params.UserID,
		CreatedAt:      params.LastActivityAt,
		LastActivityAt: params.LastActivityAt,
		ExpiresAt:      params.ExpiresAt,
	}
	r.sessions[session.SessionID] = session
	return session, nil
}

func (r *stubSessions) GetByID(_ context.Context, sessionID uuid.UUID) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return s, nil
}

func (r *stubSessions) TouchActivity(_ context.Context, sessionID uuid.UUID, touchedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.LastActivityAt = touchedAt
	r.sessions[sessionID] = s
	return nil
}

func (r *stubSessions) RevokeByID(_ context.Context, sessionID uuid.UUID, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.RevokedAt = &revokedAt
	r.sessions[sessionID] = s
	return nil
}

func (r *stubSessions) RevokeAllByUser(context.Context, uuid.UUID, time.Time) error { return nil }

type stubLoginAttempts struct{}

func (stubLoginAttempts) Insert(context.Context, domain.LoginAttempt) error { return nil }

type stubProjects struct {
	mu       sync.Mutex
	projects map[uuid.UUID]domain.Project
}

func (r *stubProjects) Create(_ context.Context, project domain.Project) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project.ProjectID = uuid.New()
	r.projects[project.ProjectID] = project
	return project, nil
}

func (r *stubProjects) GetByID(_ context.Context, projectID uuid.UUID) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *stubProjects) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Project
	for _, p := range r.projects {
		if p.OwnerID == ownerID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *stubProjects) Update(_ context.Context, project domain.Project) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[project.ProjectID] = project
	return project, nil
}

func (r *stubProjects) Delete(_ context.Context, projectID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, projectID)
	return nil
}

type stubTasks struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]domain.Task
	allocated map[string]bool
}

func (r *stubTasks) Create(_ context.Context, task domain.Task) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allocated[task.TicketNumber] {
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrTicketCollision, task.TicketNumber)
	}
	task.TaskID = uuid.New()
	r.tasks[task.TaskID] = task
	r.allocated[task.TicketNumber] = true
	return task, nil
}

func (r *stubTasks) GetByID(_ context.Context, taskID uuid.UUID) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	return t, nil
}

func (r *stubTasks) ListByProject(_ context.Context, projectID uuid.UUID) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Task
	for _, task := range r.tasks {
		if task.ProjectID == projectID {
			result = append(result, task)
		}
	}
	return result, nil
}

func (r *stubTasks) ListIssuedTicketNumbers(_ context.Context, prefix string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []string
	for number := range r.allocated {
		if strings.HasPrefix(number, prefix+"-") {
			result = append(result, number)
		}
	}
	return result, nil
}

func (r *stubTasks) Update(_ context.Context, task domain.Task) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.TaskID] = task
	return task, nil
}

func (r *stubTasks) Delete(_ context.Context, taskID uuid.UUID, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Number stays allocated after delete.
	delete(r.tasks, taskID)
	return nil
}

type stubOutbox struct{}

func (stubOutbox) Enqueue(context.Context, ports.OutboxEvent) error { return nil }
func (stubOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}
func (stubOutbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error { return nil }
func (stubOutbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}
func (stubOutbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

type stubIdempotency struct {
	mu      sync.Mutex
	records map[string]*ports.IdempotencyRecord
}

func (r *stubIdempotency) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (r *stubIdempotency) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[key]; ok {
		return domain.ErrConflict
	}
	r.records[key] = &ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      "PENDING",
		ExpiresAt:   expiresAt,
	}
	return nil
}

func (r *stubIdempotency) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	record.Status = "COMPLETED"
	record.ResponseCode = responseCode
	record.ResponseBody = responseBody
	record.UpdatedAt = at
	return nil
}

type stubLockouts struct {
	mu     sync.Mutex
	states map[string]ports.LockoutState
}

func (s *stubLockouts) Get(_ context.Context, key string) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[key], nil
}

func (s *stubLockouts) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.states[key]
	state.FailedCount++
	if state.FailedCount >= threshold {
		until := now.Add(lockoutWindow)
		state.LockedUntil = &until
	}
	s.states[key] = state
	return state, nil
}

func (s *stubLockouts) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
	return nil
}

type stubRevocations struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]bool
}

func (s *stubRevocations) MarkRevoked(_ context.Context, sessionID uuid.UUID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[sessionID] = true
	return nil
}

func (s *stubRevocations) IsRevoked(_ context.Context, sessionID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[sessionID], nil
}

type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (stubHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return fmt.Errorf("hash mismatch")
	}
	return nil
}

type stubSigner struct {
	mu     sync.Mutex
	seq    int
	claims map[string]ports.AuthClaims
}

func (s *stubSigner) Sign(claims ports.AuthClaims) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	token := fmt.Sprintf("token-%d", s.seq)
	s.claims[token] = claims
	return token, nil
}

func (s *stubSigner) ParseAndValidate(token string) (ports.AuthClaims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claims, ok := s.claims[token]
	if !ok {
		return ports.AuthClaims{}, fmt.Errorf("unknown token")
	}
	return claims, nil
}

func (s *stubSigner) PublicJWKs() ([]map[string]any, error) {
	return []map[string]any{{"kty": "RSA", "kid": "test"}}, nil
}

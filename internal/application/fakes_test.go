package application_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/ports"
)

// In-memory fakes implementing the ports. They keep just enough semantics to
// exercise the service: ticket uniqueness, revocation, lockout counting.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]domain.User{}}
}

func (r *fakeUserRepo) CreateWithOutboxTx(_ context.Context, params ports.CreateUserParams, _ ports.OutboxEvent) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == params.Email {
			return domain.User{}, domain.ErrConflict
		}
	}
	user := domain.User{
		UserID:          uuid.New(),
		Name:            params.Name,
		Email:           params.Email,
		PasswordHash:    params.PasswordHash,
		ExternalSubject: params.ExternalSubject,
		IsActive:        true,
		CreatedAt:       params.RegisteredAtUTC,
		UpdatedAt:       params.RegisteredAtUTC,
	}
	r.users[user.UserID] = user
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByExternalSubject(_ context.Context, subject string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ExternalSubject == subject && subject != "" {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, userID uuid.UUID, name, email string, updatedAt time.Time) (domain.User, error) {
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

func (r *fakeUserRepo) LinkExternalSubject(_ context.Context, userID uuid.UUID, subject string, linkedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.ExternalSubject, u.UpdatedAt = subject, linkedAt
	r.users[userID] = u
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[uuid.UUID]domain.Session{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := domain.Session{
		SessionID:      uuid.New(),
		UserID:         params.UserID,
		DeviceName:     params.DeviceName,
		DeviceOS:       params.DeviceOS,
		IPAddress:      params.IPAddress,
		UserAgent:      params.UserAgent,
		CreatedAt:      params.LastActivityAt,
		LastActivityAt: params.LastActivityAt,
		ExpiresAt:      params.ExpiresAt,
	}
	r.sessions[session.SessionID] = session
	return session, nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, sessionID uuid.UUID) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return s, nil
}

func (r *fakeSessionRepo) TouchActivity(_ context.Context, sessionID uuid.UUID, touchedAt time.Time) error {
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

func (r *fakeSessionRepo) RevokeByID(_ context.Context, sessionID uuid.UUID, revokedAt time.Time) error {
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

func (r *fakeSessionRepo) RevokeAllByUser(_ context.Context, userID uuid.UUID, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			s.RevokedAt = &revokedAt
			r.sessions[id] = s
		}
	}
	return nil
}

type fakeLoginAttemptRepo struct {
	mu       sync.Mutex
	attempts []domain.LoginAttempt
}

func (r *fakeLoginAttemptRepo) Insert(_ context.Context, attempt domain.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt)
	return nil
}

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[uuid.UUID]domain.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: map[uuid.UUID]domain.Project{}}
}

func (r *fakeProjectRepo) Create(_ context.Context, project domain.Project) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project.ProjectID = uuid.New()
	r.projects[project.ProjectID] = project
	return project, nil
}

func (r *fakeProjectRepo) GetByID(_ context.Context, projectID uuid.UUID) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *fakeProjectRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Project, error) {
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

func (r *fakeProjectRepo) Update(_ context.Context, project domain.Project) (domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[project.ProjectID]; !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	r.projects[project.ProjectID] = project
	return project, nil
}

func (r *fakeProjectRepo) Delete(_ context.Context, projectID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[projectID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.projects, projectID)
	return nil
}

// fakeTaskRepo keeps the allocation-log semantics of the real adapter:
// issued numbers survive task deletion and Create fails on an already
// issued number.
type fakeTaskRepo struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]domain.Task
	allocated map[string]bool
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{
		tasks:     map[uuid.UUID]domain.Task{},
		allocated: map[string]bool{},
	}
}

func (r *fakeTaskRepo) Create(_ context.Context, task domain.Task) (domain.Task, error) {
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

func (r *fakeTaskRepo) GetByID(_ context.Context, taskID uuid.UUID) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	return t, nil
}

func (r *fakeTaskRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Task
	for _, t := range r.tasks {
		if t.ProjectID == projectID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (r *fakeTaskRepo) ListIssuedTicketNumbers(_ context.Context, prefix string) ([]string, error) {
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

func (r *fakeTaskRepo) Update(_ context.Context, task domain.Task) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.TaskID]; !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	r.tasks[task.TaskID] = task
	return task, nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, taskID uuid.UUID, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[taskID]; !ok {
		return domain.ErrNotFound
	}
	// The ticket number stays in allocated; numbers are never reissued.
	delete(r.tasks, taskID)
	return nil
}

type fakeTeamMemberRepo struct {
	mu      sync.Mutex
	members map[uuid.UUID]domain.TeamMember
}

func newFakeTeamMemberRepo() *fakeTeamMemberRepo {
	return &fakeTeamMemberRepo{members: map[uuid.UUID]domain.TeamMember{}}
}

func (r *fakeTeamMemberRepo) Create(_ context.Context, member domain.TeamMember) (domain.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	member.MemberID = uuid.New()
	r.members[member.MemberID] = member
	return member, nil
}

func (r *fakeTeamMemberRepo) GetByID(_ context.Context, memberID uuid.UUID) (domain.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[memberID]
	if !ok {
		return domain.TeamMember{}, domain.ErrNotFound
	}
	return m, nil
}

func (r *fakeTeamMemberRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TeamMember
	for _, m := range r.members {
		if m.OwnerID == ownerID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *fakeTeamMemberRepo) AssignToProject(_ context.Context, projectID uuid.UUID, memberIDs []uuid.UUID, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range memberIDs {
		m, ok := r.members[id]
		if !ok {
			return domain.ErrNotFound
		}
		m.Projects = append(m.Projects, projectID)
		r.members[id] = m
	}
	return nil
}

func (r *fakeTeamMemberRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]domain.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TeamMember
	for _, m := range r.members {
		for _, p := range m.Projects {
			if p == projectID {
				result = append(result, m)
				break
			}
		}
	}
	return result, nil
}

func (r *fakeTeamMemberRepo) Delete(_ context.Context, memberID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[memberID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.members, memberID)
	return nil
}

type fakeOutboxRepo struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
}

func (r *fakeOutboxRepo) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *fakeOutboxRepo) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkPublished(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

func (r *fakeOutboxRepo) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

func (r *fakeOutboxRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var types []string
	for _, e := range r.events {
		types = append(types, e.EventType)
	}
	return types
}

type fakeIdempotencyRepo struct {
	mu      sync.Mutex
	records map[string]*ports.IdempotencyRecord
}

func newFakeIdempotencyRepo() *fakeIdempotencyRepo {
	return &fakeIdempotencyRepo{records: map[string]*ports.IdempotencyRecord{}}
}

func (r *fakeIdempotencyRepo) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (r *fakeIdempotencyRepo) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
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
		CreatedAt:   time.Now().UTC(),
	}
	return nil
}

func (r *fakeIdempotencyRepo) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
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

type fakeLockoutStore struct {
	mu     sync.Mutex
	states map[string]ports.LockoutState
}

func newFakeLockoutStore() *fakeLockoutStore {
	return &fakeLockoutStore{states: map[string]ports.LockoutState{}}
}

func (s *fakeLockoutStore) Get(_ context.Context, key string) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[key], nil
}

func (s *fakeLockoutStore) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
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

func (s *fakeLockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
	return nil
}

type fakeRevocationStore struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]bool
}

func newFakeRevocationStore() *fakeRevocationStore {
	return &fakeRevocationStore{revoked: map[uuid.UUID]bool{}}
}

func (s *fakeRevocationStore) MarkRevoked(_ context.Context, sessionID uuid.UUID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[sessionID] = true
	return nil
}

func (s *fakeRevocationStore) IsRevoked(_ context.Context, sessionID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[sessionID], nil
}

type fakeOIDCStateStore struct {
	mu     sync.Mutex
	states map[string]ports.OIDCAuthState
}

func newFakeOIDCStateStore() *fakeOIDCStateStore {
	return &fakeOIDCStateStore{states: map[string]ports.OIDCAuthState{}}
}

func (s *fakeOIDCStateStore) Put(_ context.Context, state string, value ports.OIDCAuthState, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = value
	return nil
}

func (s *fakeOIDCStateStore) Get(_ context.Context, state string) (*ports.OIDCAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.states[state]
	if !ok {
		return nil, nil
	}
	return &value, nil
}

func (s *fakeOIDCStateStore) Delete(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, state)
	return nil
}

// fakeOIDCVerifier returns a canned identity per authorization code.
type fakeOIDCVerifier struct {
	identities map[string]ports.OIDCIdentity
}

func (v *fakeOIDCVerifier) BuildAuthorizeURL(_ context.Context, provider, redirectURI, state, nonce, loginHint, codeChallenge string) (string, error) {
	return "https://accounts.example.com/" + provider + "/authorize?state=" + state, nil
}

func (v *fakeOIDCVerifier) ExchangeCode(_ context.Context, _, code, _, _, _ string) (ports.OIDCIdentity, error) {
	identity, ok := v.identities[code]
	if !ok {
		return ports.OIDCIdentity{}, fmt.Errorf("unknown code %q", code)
	}
	return identity, nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (fakeHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return fmt.Errorf("hash mismatch")
	}
	return nil
}

// fakeSigner issues opaque tokens backed by an in-memory claims table.
type fakeSigner struct {
	mu     sync.Mutex
	seq    int
	claims map[string]ports.AuthClaims
}

func newFakeSigner() *fakeSigner {
	return &fakeSigner{claims: map[string]ports.AuthClaims{}}
}

func (s *fakeSigner) Sign(claims ports.AuthClaims) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	token := fmt.Sprintf("token-%d", s.seq)
	s.claims[token] = claims
	return token, nil
}

func (s *fakeSigner) ParseAndValidate(token string) (ports.AuthClaims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claims, ok := s.claims[token]
	if !ok {
		return ports.AuthClaims{}, fmt.Errorf("unknown token")
	}
	if claims.ExpiresAt.Before(time.Now().UTC()) {
		return ports.AuthClaims{}, fmt.Errorf("token expired")
	}
	return claims, nil
}

func (s *fakeSigner) PublicJWKs() ([]map[string]any, error) {
	return []map[string]any{{"kty": "RSA", "kid": "test"}}, nil
}

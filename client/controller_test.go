package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/client"
)

type fakeProvider struct {
	verifyFn    func(ctx context.Context, email, password string) (client.Principal, error)
	federatedFn func(ctx context.Context) (client.Principal, error)
	bearerFn    func(ctx context.Context) (string, error)
	signOutErr  error
}

func (p *fakeProvider) VerifyPassword(ctx context.Context, email, password string) (client.Principal, error) {
	return p.verifyFn(ctx, email, password)
}

func (p *fakeProvider) SignInFederated(ctx context.Context) (client.Principal, error) {
	if p.federatedFn == nil {
		return client.Principal{}, errors.New("not configured")
	}
	return p.federatedFn(ctx)
}

func (p *fakeProvider) BearerToken(ctx context.Context) (string, error) {
	if p.bearerFn == nil {
		return "", errors.New("not configured")
	}
	return p.bearerFn(ctx)
}

func (p *fakeProvider) SignOut(context.Context) error { return p.signOutErr }

type memStore struct {
	mu        sync.Mutex
	record    *client.SessionRecord
	failSave  bool
	failClear bool
	clears    int
}

func (s *memStore) Load() (*client.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil, nil
	}
	copied := *s.record
	return &copied, nil
}

func (s *memStore) Save(record client.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("disk full")
	}
	s.record = &record
	return nil
}

func (s *memStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	if s.failClear {
		return errors.New("disk gone")
	}
	s.record = nil
	return nil
}

// backendFixture is an httptest backend speaking the Taskdeck envelope for
// the endpoints the controller touches.
type backendFixture struct {
	server *httptest.Server

	mu          sync.Mutex
	validTokens map[string]client.UserProfile
	logoutCalls int
	verifyCalls int
}

func newBackendFixture(t *testing.T) *backendFixture {
	t.Helper()
	f := &backendFixture{validTokens: map[string]client.UserProfile{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token string `json:"token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		f.verifyCalls++
		profile, ok := f.validTokens[req.Token]
		f.mu.Unlock()
		if !ok {
			writeEnvelopeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}
		writeEnvelopeData(w, http.StatusOK, map[string]any{"user": profile, "message": "ok"})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.logoutCalls++
		f.mu.Unlock()
		writeEnvelopeData(w, http.StatusOK, nil)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *backendFixture) addToken(token string, profile client.UserProfile) {
	f.mu.Lock()
	f.validTokens[token] = profile
	f.mu.Unlock()
}

func writeEnvelopeData(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": data})
}

func writeEnvelopeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "code": errCode, "message": message})
}

func newController(t *testing.T, f *backendFixture, provider client.IdentityProvider, store client.SessionStore) *client.Controller {
	t.Helper()
	api := client.NewAPIClient(f.server.URL)
	return client.NewController(client.ControllerConfig{
		Provider:       provider,
		API:            api,
		Store:          store,
		RestoreTimeout: 2 * time.Second,
	})
}

func TestRestoreSessionWithoutRecordSettlesLoggedOut(t *testing.T) {
	f := newBackendFixture(t)
	ctrl := newController(t, f, &fakeProvider{}, &memStore{})

	require.Equal(t, client.StatusLoading, ctrl.Status())
	ctrl.RestoreSession(context.Background())

	assert.Equal(t, client.StatusLoggedOut, ctrl.Status())
	assert.Nil(t, ctrl.CurrentUser())
}

func TestRestoreSessionWithValidRecord(t *testing.T) {
	f := newBackendFixture(t)
	profile := client.UserProfile{ID: "u-1", Name: "Dana", Email: "dana@example.com"}
	f.addToken("tok-restore", profile)

	store := &memStore{record: &client.SessionRecord{
		Status:      client.StatusLoggedIn,
		CurrentUser: &profile,
		Token:       "tok-restore",
	}}
	ctrl := newController(t, f, &fakeProvider{}, store)

	ctrl.RestoreSession(context.Background())

	assert.Equal(t, client.StatusLoggedIn, ctrl.Status())
	require.NotNil(t, ctrl.CurrentUser())
	assert.Equal(t, "dana@example.com", ctrl.CurrentUser().Email)
	assert.Equal(t, "tok-restore", ctrl.BearerToken())
}

func TestRestoreSessionWithStaleTokenFallsBackSilently(t *testing.T) {
	f := newBackendFixture(t)
	store := &memStore{record: &client.SessionRecord{
		Status: client.StatusLoggedIn,
		Token:  "tok-expired",
	}}
	ctrl := newController(t, f, &fakeProvider{}, store)

	ctrl.RestoreSession(context.Background())

	assert.Equal(t, client.StatusLoggedOut, ctrl.Status())
	record, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, record, "stale record should be cleared")
}

func TestSignInWithCredentialsHappyPath(t *testing.T) {
	f := newBackendFixture(t)
	profile := client.UserProfile{ID: "u-2", Name: "Sam", Email: "sam@example.com"}
	f.addToken("tok-sam", profile)

	provider := &fakeProvider{
		verifyFn: func(_ context.Context, email, password string) (client.Principal, error) {
			require.Equal(t, "sam@example.com", email)
			require.Equal(t, "a sufficient passw0rd", password)
			return client.Principal{Subject: "u-2", Token: "tok-sam"}, nil
		},
	}
	store := &memStore{}
	ctrl := newController(t, f, provider, store)
	ctrl.RestoreSession(context.Background())

	got, err := ctrl.SignInWithCredentials(context.Background(), "sam@example.com", "a sufficient passw0rd")
	require.NoError(t, err)
	assert.Equal(t, "u-2", got.ID)
	assert.Equal(t, client.StatusLoggedIn, ctrl.Status())
	assert.Equal(t, "tok-sam", ctrl.BearerToken())

	record, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, client.StatusLoggedIn, record.Status)
	assert.Equal(t, "tok-sam", record.Token)
}

func TestSignInWithBadCredentialsLeavesStateUntouched(t *testing.T) {
	f := newBackendFixture(t)
	provider := &fakeProvider{
		verifyFn: func(context.Context, string, string) (client.Principal, error) {
			return client.Principal{}, &client.APIError{
				StatusCode: http.StatusUnauthorized,
				Code:       "INVALID_CREDENTIALS",
				Message:    "invalid email or password",
			}
		},
	}
	ctrl := newController(t, f, provider, &memStore{})
	ctrl.RestoreSession(context.Background())

	_, err := ctrl.SignInWithCredentials(context.Background(), "x@example.com", "nope")
	require.Error(t, err)
	authErr, ok := client.AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, client.CodeInvalidCredentials, authErr.Code)
	assert.Equal(t, client.StatusLoggedOut, ctrl.Status())
	assert.Nil(t, ctrl.CurrentUser())
	assert.Empty(t, ctrl.BearerToken())
}

func TestSignInTransportFailureIsNotACredentialError(t *testing.T) {
	f := newBackendFixture(t)
	provider := &fakeProvider{
		verifyFn: func(context.Context, string, string) (client.Principal, error) {
			return client.Principal{}, errors.New("dial tcp: connection refused")
		},
	}
	ctrl := newController(t, f, provider, &memStore{})
	ctrl.RestoreSession(context.Background())

	_, err := ctrl.SignInWithCredentials(context.Background(), "x@example.com", "fine passw0rd")
	require.Error(t, err)
	authErr, ok := client.AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, client.CodeNetwork, authErr.Code,
		"an unreachable backend must not read as a wrong password")
	assert.Equal(t, client.StatusLoggedOut, ctrl.Status())
}

func TestSignInLockedAccountSurfacesLockedCode(t *testing.T) {
	f := newBackendFixture(t)
	provider := &fakeProvider{
		verifyFn: func(context.Context, string, string) (client.Principal, error) {
			return client.Principal{}, &client.APIError{
				StatusCode: http.StatusTooManyRequests,
				Code:       "ACCOUNT_LOCKED",
				Message:    "account temporarily locked",
			}
		},
	}
	ctrl := newController(t, f, provider, &memStore{})
	ctrl.RestoreSession(context.Background())

	_, err := ctrl.SignInWithCredentials(context.Background(), "x@example.com", "fine passw0rd")
	require.Error(t, err)
	authErr, ok := client.AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, client.CodeAccountLocked, authErr.Code)
}

func TestFederatedSignInUnknownIdentitySurfacesNotSignedUp(t *testing.T) {
	provider := &fakeProvider{
		federatedFn: func(context.Context) (client.Principal, error) {
			return client.Principal{Subject: "ext-1", Token: "tok-unknown"}, nil
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelopeError(w, http.StatusForbidden, "NOT_SIGNED_UP", "identity is not signed up")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctrl := client.NewController(client.ControllerConfig{
		Provider:       provider,
		API:            client.NewAPIClient(server.URL),
		Store:          &memStore{},
		RestoreTimeout: 2 * time.Second,
	})
	ctrl.RestoreSession(context.Background())

	_, err := ctrl.SignInFederated(context.Background())
	require.Error(t, err)
	authErr, ok := client.AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, client.CodeNotSignedUp, authErr.Code)
	assert.Equal(t, client.StatusLoggedOut, ctrl.Status())
}

func TestSecondSignInWhileFirstInFlightIsRejected(t *testing.T) {
	f := newBackendFixture(t)
	profile := client.UserProfile{ID: "u-3", Email: "slow@example.com"}
	f.addToken("tok-slow", profile)

	started := make(chan struct{})
	release := make(chan struct{})
	provider := &fakeProvider{
		verifyFn: func(ctx context.Context, _, _ string) (client.Principal, error) {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
				return client.Principal{}, ctx.Err()
			}
			return client.Principal{Subject: "u-3", Token: "tok-slow"}, nil
		},
	}
	ctrl := newController(t, f, provider, &memStore{})
	ctrl.RestoreSession(context.Background())

	firstDone := make(chan error, 1)
	go func() {
		_, err := ctrl.SignInWithCredentials(context.Background(), "slow@example.com", "p4ssword yes")
		firstDone <- err
	}()

	<-started
	_, err := ctrl.SignInWithCredentials(context.Background(), "other@example.com", "whatever 123")
	assert.ErrorIs(t, err, client.ErrSignInInFlight)

	close(release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, client.StatusLoggedIn, ctrl.Status())
	require.NotNil(t, ctrl.CurrentUser())
	assert.Equal(t, "u-3", ctrl.CurrentUser().ID)
}

func TestLogoutClearsStateEvenWhenStoreFails(t *testing.T) {
	f := newBackendFixture(t)
	profile := client.UserProfile{ID: "u-4", Email: "gone@example.com"}
	f.addToken("tok-gone", profile)

	provider := &fakeProvider{
		verifyFn: func(context.Context, string, string) (client.Principal, error) {
			return client.Principal{Subject: "u-4", Token: "tok-gone"}, nil
		},
		signOutErr: errors.New("provider offline"),
	}
	store := &memStore{failClear: true}
	ctrl := newController(t, f, provider, store)
	ctrl.RestoreSession(context.Background())

	_, err := ctrl.SignInWithCredentials(context.Background(), "gone@example.com", "some passw0rd!")
	require.NoError(t, err)

	ctrl.Logout(context.Background())

	assert.Equal(t, client.StatusLoggedOut, ctrl.Status())
	assert.Nil(t, ctrl.CurrentUser())
	assert.Empty(t, ctrl.BearerToken())
	assert.Equal(t, 1, f.logoutCalls)
	assert.GreaterOrEqual(t, store.clears, 1)
}

func TestLogoutWhenLoggedOutIsNoOp(t *testing.T) {
	f := newBackendFixture(t)
	ctrl := newController(t, f, &fakeProvider{}, &memStore{})
	ctrl.RestoreSession(context.Background())

	ctrl.Logout(context.Background())

	assert.Equal(t, client.StatusLoggedOut, ctrl.Status())
	assert.Zero(t, f.logoutCalls)
}

func TestAPIClientRetriesOnceAfterUnauthorized(t *testing.T) {
	var calls int
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 || r.Header.Get("Authorization") != "Bearer tok-fresh" {
			writeEnvelopeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "expired")
			return
		}
		writeEnvelopeData(w, http.StatusOK, []map[string]any{{"id": "p-1", "projectName": "Alpha"}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	api := client.NewAPIClient(server.URL)
	api.SetToken("tok-stale")
	api.SetTokenRefresher(func(context.Context) (string, error) {
		return "tok-fresh", nil
	})

	projects, err := api.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Alpha", projects[0].Name)
	assert.Equal(t, 2, calls)
}

func TestBackendProviderRotatesTokenOnBearerRequest(t *testing.T) {
	var mu sync.Mutex
	rotations := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelopeData(w, http.StatusOK, map[string]any{
			"user":  map[string]any{"id": "u-7", "email": "rot@example.com"},
			"token": "tok-old",
		})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		rotations++
		n := rotations
		mu.Unlock()
		if n == 1 && r.Header.Get("Authorization") != "Bearer tok-old" {
			writeEnvelopeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unexpected bearer")
			return
		}
		if n == 2 && r.Header.Get("Authorization") != "Bearer tok-new" {
			writeEnvelopeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "old token reused after rotation")
			return
		}
		token := "tok-new"
		if n > 1 {
			token = "tok-newer"
		}
		writeEnvelopeData(w, http.StatusOK, map[string]any{"token": token, "expiresIn": 3600})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	api := client.NewAPIClient(server.URL)
	provider := client.NewBackendProvider(api)

	_, err := provider.VerifyPassword(context.Background(), "rot@example.com", "a passw0rd ok")
	require.NoError(t, err)

	fresh, err := provider.BearerToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-new", fresh)

	// The rotated token becomes the new credential for the next rotation.
	fresh, err = provider.BearerToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-newer", fresh)
	assert.Equal(t, 2, rotations)
}

func TestAPIClientPartialUpdatesUsePatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /projects/p-9", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"projectName": "Renamed"}, body,
			"unset fields must stay out of the request body")
		writeEnvelopeData(w, http.StatusOK, map[string]any{"id": "p-9", "projectName": "Renamed"})
	})
	mux.HandleFunc("PATCH /task/t-4", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"status": "completed"}, body)
		writeEnvelopeData(w, http.StatusOK, map[string]any{"id": "t-4", "status": "completed"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	api := client.NewAPIClient(server.URL)

	name := "Renamed"
	project, err := api.UpdateProject(context.Background(), "p-9", client.UpdateProjectParams{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", project.Name)

	status := "completed"
	task, err := api.UpdateTask(context.Background(), "t-4", client.UpdateTaskParams{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "completed", task.Status)
}

func TestFileStoreRoundTripAndClear(t *testing.T) {
	dir := t.TempDir()
	store := client.NewFileStore(dir)

	record, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, record)

	profile := client.UserProfile{ID: "u-5", Name: "Kit", Email: "kit@example.com"}
	require.NoError(t, store.Save(client.SessionRecord{
		Status:      client.StatusLoggedIn,
		CurrentUser: &profile,
		Token:       "tok-file",
	}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, client.StatusLoggedIn, loaded.Status)
	assert.Equal(t, "tok-file", loaded.Token)
	require.NotNil(t, loaded.CurrentUser)
	assert.Equal(t, "kit@example.com", loaded.CurrentUser.Email)

	require.NoError(t, store.Clear())
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// clearing an absent record is not an error
	require.NoError(t, store.Clear())
}

package client

import (
	"context"
	"errors"
	"sync"
)

// BackendProvider is an IdentityProvider backed by the Taskdeck API's own
// credential endpoints. It exists for clients that have no separate identity
// authority, such as the CLI.
type BackendProvider struct {
	api *APIClient

	mu    sync.Mutex
	token string
}

func NewBackendProvider(api *APIClient) *BackendProvider {
	return &BackendProvider{api: api}
}

func (p *BackendProvider) VerifyPassword(ctx context.Context, email, password string) (Principal, error) {
	res, err := p.api.Login(ctx, email, password)
	if err != nil {
		return Principal{}, err
	}
	p.mu.Lock()
	p.token = res.Token
	p.mu.Unlock()
	return Principal{Subject: res.User.ID, Token: res.Token}, nil
}

func (p *BackendProvider) SignInFederated(ctx context.Context) (Principal, error) {
	return Principal{}, errors.New("federated sign-in requires a browser flow")
}

// BearerToken rotates the held token through the backend's refresh endpoint
// and returns the replacement. Handing back the old token would make a
// 401-triggered refresh retry with the same credential that just failed.
func (p *BackendProvider) BearerToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()
	if token == "" {
		return "", errors.New("no credential on record")
	}
	res, err := p.api.Refresh(ctx, token)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	p.token = res.Token
	p.mu.Unlock()
	return res.Token, nil
}

func (p *BackendProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
	return nil
}

package client

import "context"

// Principal is the opaque identity handle returned by an identity provider.
// The controller only forwards its token to the backend; it never inspects
// provider-specific fields.
type Principal struct {
	Subject string
	Token   string
}

// IdentityProvider abstracts the external credential authority. BearerToken
// must return a currently valid token, refreshing transparently when the
// underlying credential supports it.
type IdentityProvider interface {
	VerifyPassword(ctx context.Context, email, password string) (Principal, error)
	SignInFederated(ctx context.Context) (Principal, error)
	BearerToken(ctx context.Context) (string, error)
	SignOut(ctx context.Context) error
}

package interfaces

import "context"

// CredentialSource hands out the bearer token for backend calls.
type CredentialSource interface {
	AccessToken(ctx context.Context) (string, error)

	// Invalidate drops the stored credential after the backend rejected it.
	Invalidate(ctx context.Context) error
}

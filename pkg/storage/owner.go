package storage

import "context"

type ownerKey struct{}

// WithOwner scopes record access in ctx to owner, the authenticated
// subject of the request.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext returns the owner set by WithOwner. An empty owner
// means records are not scoped, as with auth type "none".
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

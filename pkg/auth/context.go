package auth

import "context"

// identityKey is a private type for the verified-identity context key.
type identityKey struct{}

// SetVerified stores the verification outcome in the context.
func SetVerified(ctx context.Context, v *Verified) context.Context {
	return context.WithValue(ctx, identityKey{}, v)
}

// VerifiedFromContext retrieves the verification outcome.
// Returns nil if the request was not authenticated.
func VerifiedFromContext(ctx context.Context) *Verified {
	if v, ok := ctx.Value(identityKey{}).(*Verified); ok {
		return v
	}
	return nil
}

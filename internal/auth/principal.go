package auth

import "context"

type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
)

// Principal is the authenticated caller supplied by the identity
// collaborator. The workflow trusts it and performs no credential
// verification of its own.
type Principal struct {
	ID   string
	Role Role
}

func (p Principal) IsStaff() bool {
	return p.Role == RoleStaff
}

// IsAnonymous reports whether no authenticated principal is present.
func (p Principal) IsAnonymous() bool {
	return p.ID == ""
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

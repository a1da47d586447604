package domain

import "context"

// Role is a staff authorization role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// StaffIdentity is the verified caller of a staff endpoint.
type StaffIdentity struct {
	ID   string
	Role Role
}

func (s StaffIdentity) IsAdmin() bool {
	return s.Role == RoleAdmin
}

type staffIdentityKey struct{}

func WithStaffIdentity(ctx context.Context, identity StaffIdentity) context.Context {
	return context.WithValue(ctx, staffIdentityKey{}, identity)
}

// StaffIdentityFromContext returns the caller attached by the auth layer.
// Background jobs carry none.
func StaffIdentityFromContext(ctx context.Context) (StaffIdentity, bool) {
	if ctx == nil {
		return StaffIdentity{}, false
	}
	identity, ok := ctx.Value(staffIdentityKey{}).(StaffIdentity)
	if !ok || identity.ID == "" {
		return StaffIdentity{}, false
	}
	return identity, true
}

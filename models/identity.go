package models

// UserRole is the platform-side account role. A "lawyer" role means the user
// is already a fully verified professional and outranks any application
// status the review pipeline might still be holding.
type UserRole string

const (
	RoleUser   UserRole = "user"
	RoleLawyer UserRole = "lawyer"
	RoleAdmin  UserRole = "admin"
)

// Identity is the resolved session identity handed to the guard by the auth
// layer. PendingLawyer mirrors the profile marker set when a user starts a
// lawyer application; users without it have no business on status screens.
type Identity struct {
	UserID        string   `json:"user_id"`
	Role          UserRole `json:"role"`
	PendingLawyer bool     `json:"pending_lawyer"`
}

// IsVerifiedLawyer reports whether the role already grants professional
// standing, superseding application status entirely.
func (i *Identity) IsVerifiedLawyer() bool {
	return i != nil && i.Role == RoleLawyer
}

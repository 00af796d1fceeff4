package models

// Role is the authorization level of an authenticated user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// CanValidate reports whether the role may approve, reject, reconcile or reverse.
func (r Role) CanValidate() bool {
	return r == RoleAdmin || r == RoleManager
}

// Actor is the resolved caller of a command: who, with which role, in which boutique.
type Actor struct {
	Principal  Principal
	Role       Role
	BoutiqueID string
}

// SystemActor returns the actor used by the recurring generation job.
func SystemActor(boutiqueID string) Actor {
	return Actor{Principal: System, Role: RoleAdmin, BoutiqueID: boutiqueID}
}

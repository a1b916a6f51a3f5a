package entity

import "github.com/google/uuid"

// Actor is whoever invokes a booking operation. The set of implementations is
// closed: AdminActor, RegisteredUserActor and GuestActor.
type Actor interface {
	actor()
}

// AdminActor holds a role with administrative capability (admin or listing owner).
type AdminActor struct {
	UserID uuid.UUID
	Role   UserRole
}

// RegisteredUserActor is an authenticated customer.
type RegisteredUserActor struct {
	UserID uuid.UUID
}

// GuestActor is an unauthenticated caller.
type GuestActor struct{}

func (AdminActor) actor()          {}
func (RegisteredUserActor) actor() {}
func (GuestActor) actor()          {}

// IsSuperAdmin is true for the platform admin, who is not bound to own listings.
func (a AdminActor) IsSuperAdmin() bool {
	return a.Role == RoleAdmin
}

// ActorFor maps an authenticated user to its actor variant.
func ActorFor(user *User) Actor {
	if user == nil {
		return GuestActor{}
	}
	if user.Role.HasAdminCapability() {
		return AdminActor{UserID: user.ID, Role: user.Role}
	}
	return RegisteredUserActor{UserID: user.ID}
}

// ActorUserID returns the user id behind an actor, if any.
func ActorUserID(a Actor) (uuid.UUID, bool) {
	switch v := a.(type) {
	case AdminActor:
		return v.UserID, true
	case RegisteredUserActor:
		return v.UserID, true
	default:
		return uuid.Nil, false
	}
}

package model

// Identity is the caller resolved from a bearer token: either an
// AdminIdentity or a FamilyIdentity.
type Identity interface {
	IdentityRole() Role
	isIdentity()
}

type AdminIdentity struct {
	AdminID     int64
	Role        Role
	Permissions []Permission
}

func (AdminIdentity) isIdentity() {}

func (a AdminIdentity) IdentityRole() Role { return a.Role }

// Can reports whether the admin holds p. Super admins hold every permission.
func (a AdminIdentity) Can(p Permission) bool {
	if a.Role == RoleSuperAdmin {
		return true
	}
	for _, held := range a.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

type FamilyIdentity struct {
	FamilyID int64
}

func (FamilyIdentity) isIdentity() {}

func (FamilyIdentity) IdentityRole() Role { return RoleFamily }

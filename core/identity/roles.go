// Package identity holds the platform's identity model: the role labels users
// carry, the capability catalog, the role→capability permission matrix and the
// session token claims derived from them.
package identity

// Role is the label assigned to a user controlling their default capability set.
type Role string

// The closed set of role labels. RoleUser is the lowest-privilege default:
// any absent or unrecognized label resolves to it.
const (
	RoleUser             Role = "user"
	RoleInstructor       Role = "instructor"
	RoleContentManager   Role = "content_manager"
	RoleCommunityManager Role = "community_manager"
	RoleUserSupport      Role = "user_support"
	RoleSuperAdmin       Role = "super_admin"
)

// AllRoles lists every known role, lowest privilege first.
var AllRoles = []Role{
	RoleUser,
	RoleInstructor,
	RoleContentManager,
	RoleCommunityManager,
	RoleUserSupport,
	RoleSuperAdmin,
}

var roleNames = map[Role]string{
	RoleUser:             "Learner",
	RoleInstructor:       "Instructor",
	RoleContentManager:   "Content Manager",
	RoleCommunityManager: "Community Manager",
	RoleUserSupport:      "User Support",
	RoleSuperAdmin:       "Super Admin",
}

func (r Role) String() string { return string(r) }

// Name returns the human-readable role name.
func (r Role) Name() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return roleNames[RoleUser]
}

// Valid reports whether r is one of the known role labels.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole maps a raw role label to a Role, falling back to the
// lowest-privilege default for anything it does not recognize.
func ParseRole(label string) Role {
	if r := Role(label); r.Valid() {
		return r
	}
	return RoleUser
}

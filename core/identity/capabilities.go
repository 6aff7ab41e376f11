package identity

import "sort"

// Capability is a named permission of the form "domain:action" checked at
// every protected call site.
type Capability string

// The full capability catalog. Every identifier used by a permission check
// must be declared here; anything else fails closed.
const (
	CapUsersView    Capability = "users:view"
	CapUsersEdit    Capability = "users:edit"
	CapUsersSuspend Capability = "users:suspend"
	CapUsersRoles   Capability = "users:roles"

	CapContentView    Capability = "content:view"
	CapContentCreate  Capability = "content:create"
	CapContentEdit    Capability = "content:edit"
	CapContentPublish Capability = "content:publish"
	CapContentDelete  Capability = "content:delete"

	CapCommunityModerate Capability = "community:moderate"
	CapSupportRespond    Capability = "support:respond"
	CapAuditView         Capability = "audit:view"
	CapSettingsEdit      Capability = "settings:edit"
	CapAnalyticsView     Capability = "analytics:view"
)

// permissionMatrix enumerates each role's capability set independently.
// It is deliberately a flat table, NOT a computed hierarchy: higher roles
// happen to be supersets in practice, but editing one row must never leak
// into another.
var permissionMatrix = map[Role]map[Capability]bool{
	RoleUser: {
		CapContentView: true,
	},
	RoleInstructor: {
		CapContentView:   true,
		CapContentCreate: true,
		CapContentEdit:   true,
		CapAnalyticsView: true,
	},
	RoleContentManager: {
		CapContentView:    true,
		CapContentCreate:  true,
		CapContentEdit:    true,
		CapContentPublish: true,
		CapContentDelete:  true,
		CapAnalyticsView:  true,
	},
	RoleCommunityManager: {
		CapContentView:       true,
		CapCommunityModerate: true,
		CapAnalyticsView:     true,
	},
	RoleUserSupport: {
		CapContentView:    true,
		CapUsersView:      true,
		CapSupportRespond: true,
	},
	RoleSuperAdmin: {
		CapUsersView:         true,
		CapUsersEdit:         true,
		CapUsersSuspend:      true,
		CapUsersRoles:        true,
		CapContentView:       true,
		CapContentCreate:     true,
		CapContentEdit:       true,
		CapContentPublish:    true,
		CapContentDelete:     true,
		CapCommunityModerate: true,
		CapSupportRespond:    true,
		CapAuditView:         true,
		CapSettingsEdit:      true,
		CapAnalyticsView:     true,
	},
}

// HasCapability answers "does role r hold capability cap". Unknown roles are
// resolved as the lowest-privilege default; unknown capabilities are false
// for every role.
func HasCapability(r Role, cap Capability) bool {
	row, ok := permissionMatrix[r]
	if !ok {
		row = permissionMatrix[RoleUser]
	}
	return row[cap]
}

// CapabilitiesFor returns role r's capability set, sorted for stable output.
func CapabilitiesFor(r Role) []Capability {
	row, ok := permissionMatrix[r]
	if !ok {
		row = permissionMatrix[RoleUser]
	}
	caps := make([]Capability, 0, len(row))
	for cap, granted := range row {
		if granted {
			caps = append(caps, cap)
		}
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

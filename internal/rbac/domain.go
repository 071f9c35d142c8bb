// Package rbac manages the role/permission graph: assignments, the
// permission resolver, the invariant guards, and the seed bootstrap.
package rbac

// Role names seeded at bootstrap. RoleAdmin is immutable and non-deletable.
const (
	RoleAdmin  = "Admin"
	RoleViewer = "Viewer"
	RoleEditor = "Editor"
)

// Permission actions seeded at bootstrap.
const (
	ActionCreate = "Create"
	ActionUpdate = "Update"
	ActionDelete = "Delete"
	ActionRead   = "Read"
)

// RolePermissions groups the actions granted through one role. Used by the
// per-user role/permission report.
type RolePermissions struct {
	Role    string   `json:"role"`
	Actions []string `json:"actions"`
}

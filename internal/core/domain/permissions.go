package domain

// Permission is a single named capability with per-role defaults.
type Permission struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Type        string `json:"permission_type"`
	Admin       bool   `json:"admin"`
	Contributor bool   `json:"contributor"`
	Viewer      bool   `json:"viewer"`
}

// PermissionCategory groups related permissions for display in the
// permissions matrix.
type PermissionCategory struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}

// permissionMatrix is the seeded role/permission matrix. Admin defaults to
// everything; contributor to read/write on operational data; viewer to read.
var permissionMatrix = []PermissionCategory{
	{
		Name:        "User Management",
		Description: "User account and profile management",
		Permissions: []Permission{
			{Code: "view_users", Name: "View Users", Type: "page", Admin: true},
			{Code: "create_users", Name: "Create Users", Type: "action", Admin: true},
			{Code: "edit_users", Name: "Edit Users", Type: "edit", Admin: true},
			{Code: "delete_users", Name: "Delete Users", Type: "delete", Admin: true},
		},
	},
	{
		Name:        "Location Management",
		Description: "Facility location management",
		Permissions: []Permission{
			{Code: "view_locations", Name: "View Locations", Type: "view", Admin: true, Contributor: true, Viewer: true},
			{Code: "create_locations", Name: "Create Locations", Type: "action", Admin: true, Contributor: true},
			{Code: "edit_locations", Name: "Edit Locations", Type: "edit", Admin: true, Contributor: true},
			{Code: "delete_locations", Name: "Delete Locations", Type: "delete", Admin: true},
		},
	},
	{
		Name:        "Tank Management",
		Description: "Tank monitoring and management",
		Permissions: []Permission{
			{Code: "view_tanks", Name: "View Tanks", Type: "view", Admin: true, Contributor: true, Viewer: true},
			{Code: "edit_tanks", Name: "Edit Tanks", Type: "edit", Admin: true, Contributor: true},
		},
	},
	{
		Name:        "Permit Management",
		Description: "Permits and licenses management",
		Permissions: []Permission{
			{Code: "view_permits", Name: "View Permits", Type: "view", Admin: true, Contributor: true, Viewer: true},
			{Code: "upload_permits", Name: "Upload Permits", Type: "action", Admin: true, Contributor: true},
			{Code: "renew_permits", Name: "Renew Permits", Type: "action", Admin: true, Contributor: true},
			{Code: "delete_permits", Name: "Delete Permits", Type: "delete", Admin: true},
		},
	},
	{
		Name:        "System Administration",
		Description: "System configuration and administration",
		Permissions: []Permission{
			{Code: "manage_permissions", Name: "Manage Permissions", Type: "page", Admin: true},
			{Code: "view_audit_log", Name: "View Audit Log", Type: "page", Admin: true},
		},
	},
}

// PermissionsMatrix returns the full category/permission/role matrix.
func PermissionsMatrix() []PermissionCategory {
	return permissionMatrix
}

// HasPermission reports whether the given role is granted the permission
// code by default.
func HasPermission(role, code string) bool {
	for _, cat := range permissionMatrix {
		for _, p := range cat.Permissions {
			if p.Code != code {
				continue
			}
			switch role {
			case RoleAdmin:
				return p.Admin
			case RoleContributor:
				return p.Contributor
			case RoleViewer:
				return p.Viewer
			default:
				return false
			}
		}
	}
	return false
}

package domain

// PermissionType names a single action a role may perform
type PermissionType string

const (
	PermissionNotesReadDrafts  PermissionType = "notes:read_drafts"
	PermissionNotesWrite       PermissionType = "notes:write"
	PermissionNotesDelete      PermissionType = "notes:delete"
	PermissionTaxonomyWrite    PermissionType = "taxonomy:write"
	PermissionCommentsWrite    PermissionType = "comments:write"
	PermissionCommentsModerate PermissionType = "comments:moderate"
	PermissionLikesWrite       PermissionType = "likes:write"
	PermissionAttachmentsWrite PermissionType = "attachments:write"
	PermissionUsersRead        PermissionType = "users:read"
	PermissionStatsRead        PermissionType = "stats:read"
	PermissionProfileWrite     PermissionType = "profile:write"
)

// AnonymousPermissions are granted to callers without a token
var AnonymousPermissions = []PermissionType{
	PermissionLikesWrite,
}

// RolePermissions is the default permission set of each role
var RolePermissions = map[UserRole][]PermissionType{
	RoleOwner: {
		PermissionNotesReadDrafts, PermissionNotesWrite, PermissionNotesDelete,
		PermissionTaxonomyWrite,
		PermissionCommentsWrite, PermissionCommentsModerate,
		PermissionLikesWrite,
		PermissionAttachmentsWrite,
		PermissionUsersRead,
		PermissionStatsRead,
		PermissionProfileWrite,
	},
	RoleVisitor: {
		PermissionCommentsWrite,
		PermissionLikesWrite,
		PermissionProfileWrite,
	},
}

// RoleHasPermission checks the default permission table
func RoleHasPermission(role UserRole, permission PermissionType) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

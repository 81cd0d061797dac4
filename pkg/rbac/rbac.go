package rbac

import "fmt"

// 权限常量
const (
	PermissionReadReport   = "report:read"
	PermissionExportReport = "report:export"
	PermissionUploadEmail  = "email:upload"
	PermissionRunAnalysis  = "analysis:run"
	PermissionReplayOutbox = "outbox:replay"
)

// 角色常量
const (
	RoleViewer  = "viewer"
	RoleAnalyst = "analyst"
	RoleAdmin   = "admin"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleViewer: {
		PermissionReadReport,
		PermissionExportReport,
	},
	RoleAnalyst: {
		PermissionReadReport,
		PermissionExportReport,
		PermissionUploadEmail,
		PermissionRunAnalysis,
	},
	RoleAdmin: {
		PermissionReadReport,
		PermissionExportReport,
		PermissionUploadEmail,
		PermissionRunAnalysis,
		PermissionReplayOutbox,
	},
}

// IsKnownRole reports whether role has a permission set.
func IsKnownRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 同 HasPermission，但返回错误便于 handler 处理
func CheckPermission(role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{Role: role, Permission: permission}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("role %q lacks permission %s", e.Role, e.Permission)
}

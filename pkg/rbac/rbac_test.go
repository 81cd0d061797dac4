package rbac

import (
	"errors"
	"testing"
)

func TestPermissions(t *testing.T) {
	tests := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleViewer, PermissionReadReport, true},
		{RoleViewer, PermissionExportReport, true},
		{RoleViewer, PermissionUploadEmail, false},
		{RoleViewer, PermissionRunAnalysis, false},
		{RoleAnalyst, PermissionUploadEmail, true},
		{RoleAnalyst, PermissionRunAnalysis, true},
		{RoleAnalyst, PermissionReplayOutbox, false},
		{RoleAdmin, PermissionReplayOutbox, true},
		{"guest", PermissionReadReport, false},
	}
	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.permission); got != tt.want {
			t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.permission, got, tt.want)
		}
	}
}

func TestCheckPermission(t *testing.T) {
	if err := CheckPermission(RoleAnalyst, PermissionRunAnalysis); err != nil {
		t.Errorf("unexpected error %v", err)
	}

	err := CheckPermission(RoleViewer, PermissionRunAnalysis)
	var denied *PermissionDeniedError
	if !errors.As(err, &denied) || denied.Role != RoleViewer {
		t.Errorf("expected PermissionDeniedError, got %v", err)
	}
	if !IsKnownRole(RoleViewer) || IsKnownRole("root") {
		t.Error("IsKnownRole mismatch")
	}
}

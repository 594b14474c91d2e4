package models

import "testing"

func TestIsValidRole(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		expected bool
	}{
		{"admin role", RoleAdmin, true},
		{"operator role", RoleOperator, true},
		{"viewer role", RoleViewer, true},
		{"lowercase admin", "admin", false},
		{"invalid role", "invalid", false},
		{"empty role", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidRole(tt.role)
			if result != tt.expected {
				t.Errorf("IsValidRole(%s) = %v, want %v", tt.role, result, tt.expected)
			}
		})
	}
}

func TestClaims_HasAnyRole(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		allowed  []Role
		expected bool
	}{
		{"admin in admin-or-operator", RoleAdmin, []Role{RoleAdmin, RoleOperator}, true},
		{"operator in admin-or-operator", RoleOperator, []Role{RoleAdmin, RoleOperator}, true},
		{"viewer not in admin-or-operator", RoleViewer, []Role{RoleAdmin, RoleOperator}, false},
		{"operator only", RoleOperator, []Role{RoleOperator}, true},
		{"no roles allowed", RoleAdmin, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := &Claims{Role: tt.role}
			if got := claims.HasAnyRole(tt.allowed...); got != tt.expected {
				t.Errorf("Claims with role %s HasAnyRole(%v) = %v, want %v", tt.role, tt.allowed, got, tt.expected)
			}
		})
	}
}

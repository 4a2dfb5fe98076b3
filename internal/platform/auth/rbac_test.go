package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRoles(roles ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserRolesKey, roles))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireRole_Allowed(t *testing.T) {
	c, rec := contextWithRoles(RoleClinician)

	if err := RequireRole(RoleClinician)(okHandler)(c); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	c, _ := contextWithRoles(RoleParent)
	expectStatus(t, RequireRole(RoleClinician)(okHandler)(c), http.StatusForbidden)
}

func TestRequireRole_NoRoles(t *testing.T) {
	c, _ := contextWithRoles()
	expectStatus(t, RequireRole(RoleParent)(okHandler)(c), http.StatusForbidden)
}

func TestRequireRole_AdminSatisfiesAny(t *testing.T) {
	c, _ := contextWithRoles(RoleAdmin)
	if err := RequireRole(RoleClinician, RoleParent)(okHandler)(c); err != nil {
		t.Errorf("expected admin to pass, got %v", err)
	}
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		has  []string
		need []string
		want bool
	}{
		{[]string{RoleParent}, []string{RoleClinician, RoleParent}, true},
		{[]string{RoleParent}, []string{RoleClinician}, false},
		{nil, []string{RoleClinician}, false},
		{[]string{RoleAdmin}, []string{RoleClinician}, true},
	}
	for _, tt := range tests {
		if got := HasRole(tt.has, tt.need...); got != tt.want {
			t.Errorf("HasRole(%v, %v) = %v, want %v", tt.has, tt.need, got, tt.want)
		}
	}
}

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gymclub/internal/identity"
	"gymclub/internal/model"
)

func TestResolveRole(t *testing.T) {
	adminProfile := &model.Profile{Role: model.RoleAdmin}
	memberProfile := &model.Profile{Role: model.RoleMember}

	tests := []struct {
		name     string
		ident    *identity.Identity
		profile  *model.Profile
		wantRole model.Role
		wantOK   bool
	}{
		{
			name:   "no session resolves to absent",
			ident:  nil,
			wantOK: false,
		},
		{
			name:     "profile role wins",
			ident:    &identity.Identity{ID: "u1"},
			profile:  adminProfile,
			wantRole: model.RoleAdmin,
			wantOK:   true,
		},
		{
			name:     "profile member beats an admin metadata hint",
			ident:    &identity.Identity{ID: "u1", Metadata: map[string]any{"rol": "admin"}},
			profile:  memberProfile,
			wantRole: model.RoleMember,
			wantOK:   true,
		},
		{
			name:     "metadata hint used when no profile exists",
			ident:    &identity.Identity{ID: "u1", Metadata: map[string]any{"rol": "admin"}},
			wantRole: model.RoleAdmin,
			wantOK:   true,
		},
		{
			name:     "empty profile role falls back to the hint",
			ident:    &identity.Identity{ID: "u1", Metadata: map[string]any{"rol": "admin"}},
			profile:  &model.Profile{},
			wantRole: model.RoleAdmin,
			wantOK:   true,
		},
		{
			name:     "bare identity defaults to member",
			ident:    &identity.Identity{ID: "u1"},
			wantRole: model.RoleMember,
			wantOK:   true,
		},
		{
			name:     "non-string metadata hint is ignored",
			ident:    &identity.Identity{ID: "u1", Metadata: map[string]any{"rol": 7}},
			wantRole: model.RoleMember,
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, ok := ResolveRole(tt.ident, tt.profile)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantRole, role)
			}
		})
	}
}

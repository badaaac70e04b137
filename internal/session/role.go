package session

import (
	"gymclub/internal/identity"
	"gymclub/internal/model"
)

// ResolveRole is the total role-resolution function over the three session
// shapes: no session, session without profile, session with profile. The
// second return is false only when no session exists.
//
// Precedence: the profile row wins over the metadata hint, and any
// authenticated identity without either defaults to member. The hint exists
// for the window between identity creation and profile row insertion.
func ResolveRole(ident *identity.Identity, profile *model.Profile) (model.Role, bool) {
	if ident == nil {
		return "", false
	}

	if profile != nil && profile.Role != "" {
		return profile.Role, true
	}

	if hint, ok := ident.RoleHint(); ok {
		return hint, true
	}

	return model.RoleMember, true
}

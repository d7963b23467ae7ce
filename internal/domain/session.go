package domain

// Session is the authenticated identity and credential held by the running
// client. A non-empty Token means authenticated. RoleID and RoleName are
// always replaced together, never independently.
type Session struct {
	UserID   int64  `json:"id" validate:"required"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email" validate:"required,email"`
	RoleID   *int64 `json:"roleId,omitempty"`
	RoleName string `json:"-"`
	Token    string `json:"-"`
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

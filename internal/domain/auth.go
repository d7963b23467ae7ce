package domain

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	RoleID   *int64 `json:"roleId,omitempty"`
}

// AuthResponse is the body returned by /auth/login and /auth/register.
type AuthResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Role  *Role  `json:"role,omitempty"`
	Token string `json:"token"`
}

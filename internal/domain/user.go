package domain

import "time"

type User struct {
	UserID    int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      *Role     `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpdateUserRequest is the admin-side partial update for PUT /users/{id}.
type UpdateUserRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty" validate:"omitempty,email"`
	RoleID *int64  `json:"roleId,omitempty"`
}

// UpdateProfileRequest is the self-service update for PUT /users/me.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

// ProfileEnvelope wraps the PUT /users/me response body.
type ProfileEnvelope struct {
	User User `json:"user"`
}

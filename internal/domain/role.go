package domain

type Role struct {
	RoleID      int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type RoleInput struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
}

package dto

// CreateUserRequest provisions a back-office account.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=SUPERADMIN ADMIN PRODUCER"`
}

// UpdateUserRequest mutates account fields.
type UpdateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=SUPERADMIN ADMIN PRODUCER"`
	Active   *bool  `json:"active"`
}

package identity

import (
	"errors"
	"time"
)

// CreateUserDTO is the payload for provisioning a new employee account.
type CreateUserDTO struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Password     string    `json:"password"`
	Role         string    `json:"role"`
	DepartmentID int64     `json:"department_id"`
	ManagerID    *int64    `json:"manager_id,omitempty"`
	HireDate     time.Time `json:"hire_date"`
}

func (dto CreateUserDTO) Validate() error {
	if dto.Email == "" {
		return errors.New("email is required")
	}
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if len(dto.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if !ValidRole(dto.Role) {
		return errors.New("role must be one of individual_contributor, manager, hr_admin")
	}
	if dto.DepartmentID <= 0 {
		return errors.New("department_id is required")
	}
	if dto.HireDate.IsZero() {
		return errors.New("hire_date is required")
	}
	return nil
}

// UpdateUserDTO carries the mutable account fields; nil means unchanged.
type UpdateUserDTO struct {
	Name         *string `json:"name,omitempty"`
	Role         *string `json:"role,omitempty"`
	DepartmentID *int64  `json:"department_id,omitempty"`
	ManagerID    *int64  `json:"manager_id,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

func (dto UpdateUserDTO) Validate() error {
	if dto.Name != nil && *dto.Name == "" {
		return errors.New("name cannot be empty")
	}
	if dto.Role != nil && !ValidRole(*dto.Role) {
		return errors.New("role must be one of individual_contributor, manager, hr_admin")
	}
	return nil
}

type CreateDepartmentDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (dto CreateDepartmentDTO) Validate() error {
	if dto.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// UserResponse omits credential fields from API output.
type UserResponse struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	DepartmentID int64     `json:"department_id"`
	ManagerID    *int64    `json:"manager_id,omitempty"`
	HireDate     time.Time `json:"hire_date"`
	IsActive     bool      `json:"is_active"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
		ManagerID:    u.ManagerID,
		HireDate:     u.HireDate,
		IsActive:     u.IsActive,
	}
}

package identity

import (
	"errors"
	"time"
)

// Role values for the three-tier access model.
const (
	RoleIndividualContributor = "individual_contributor"
	RoleManager               = "manager"
	RoleHRAdmin               = "hr_admin"
)

// User represents an employee account. ManagerID is nil for top-level managers
// and HR admins without a reporting line.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Name         string    `json:"name" gorm:"not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	Role         string    `json:"role" gorm:"not null;default:individual_contributor"`
	DepartmentID int64     `json:"department_id" gorm:"column:department_id"`
	ManagerID    *int64    `json:"manager_id,omitempty" gorm:"column:manager_id"`
	HireDate     time.Time `json:"hire_date" gorm:"column:hire_date;type:date"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

func (u *User) IsHRAdmin() bool {
	return u.Role == RoleHRAdmin
}

func (u *User) IsIndividualContributor() bool {
	return u.Role == RoleIndividualContributor
}

func (u *User) IsActiveUser() bool {
	return u.IsActive
}

// ManagesUser reports whether u is the direct manager of the given user.
func (u *User) ManagesUser(other *User) bool {
	return other.ManagerID != nil && *other.ManagerID == u.ID
}

func ValidRole(role string) bool {
	switch role {
	case RoleIndividualContributor, RoleManager, RoleHRAdmin:
		return true
	}
	return false
}

type Department struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (Department) TableName() string {
	return "departments"
}

var (
	ErrNotFound           = errors.New("user not found")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrHierarchyCycle     = errors.New("manager hierarchy contains a cycle")
)

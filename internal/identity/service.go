package identity

import (
	"errors"
	"log/slog"

	"github.com/talenthub/performance-management/internal"
	"golang.org/x/crypto/bcrypt"
)

var errManagerDepartmentMismatch = errors.New("manager must belong to the same department")

// Repository defines the data access methods for users and departments.
type Repository interface {
	GetByID(id int64) (*User, error)
	GetByEmail(email string) (*User, error)
	Create(u *User) error
	Update(u *User) error
	ListAll(limit, offset int) ([]*User, error)
	ListByDepartment(departmentID int64, limit, offset int) ([]*User, error)
	DirectReports(managerID int64) ([]*User, error)
	DirectReportIDs(managerID int64) ([]int64, error)
	ActiveUsersInDepartments(departmentIDs []int64) ([]*User, error)
	GetDepartment(id int64) (*Department, error)
	GetDepartmentByName(name string) (*Department, error)
	CreateDepartment(d *Department) error
	ListDepartments() ([]*Department, error)
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) GetByID(userID int64) (*User, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound).WithCause(err)
	}
	return u, nil
}

// ListUsers returns the accounts visible to the actor: HR admins see everyone,
// managers see their department, individual contributors see only themselves.
func (s *Service) ListUsers(actor *User, limit, offset int) ([]*User, error) {
	switch {
	case actor.IsHRAdmin():
		return s.repo.ListAll(limit, offset)
	case actor.IsManager():
		return s.repo.ListByDepartment(actor.DepartmentID, limit, offset)
	default:
		return []*User{{
			ID: actor.ID, Email: actor.Email, Name: actor.Name, Role: actor.Role,
			DepartmentID: actor.DepartmentID, ManagerID: actor.ManagerID,
			HireDate: actor.HireDate, IsActive: actor.IsActive,
		}}, nil
	}
}

func (s *Service) CreateUser(actor *User, dto CreateUserDTO) (*User, error) {
	if !actor.IsHRAdmin() {
		return nil, internal.NewForbiddenError("only HR admins can create users", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if _, err := s.repo.GetDepartment(dto.DepartmentID); err != nil {
		return nil, internal.NewNotFoundError("department not found", internal.ErrCodeDepartmentNotFound).WithCause(err)
	}

	if dto.ManagerID != nil {
		if err := s.validateManagerLink(0, dto.DepartmentID, *dto.ManagerID); err != nil {
			return nil, managerLinkError(err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: string(hash),
		Role:         dto.Role,
		DepartmentID: dto.DepartmentID,
		ManagerID:    dto.ManagerID,
		HireDate:     dto.HireDate,
		IsActive:     true,
	}
	if err := s.repo.Create(u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "role", u.Role, "department_id", u.DepartmentID)
	return u, nil
}

func (s *Service) UpdateUser(actor *User, userID int64, dto UpdateUserDTO) (*User, error) {
	if !actor.IsHRAdmin() {
		return nil, internal.NewForbiddenError("only HR admins can update users", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound).WithCause(err)
	}

	if dto.Name != nil {
		u.Name = *dto.Name
	}
	if dto.Role != nil {
		u.Role = *dto.Role
	}
	if dto.DepartmentID != nil {
		if _, err := s.repo.GetDepartment(*dto.DepartmentID); err != nil {
			return nil, internal.NewNotFoundError("department not found", internal.ErrCodeDepartmentNotFound).WithCause(err)
		}
		u.DepartmentID = *dto.DepartmentID
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}
	if dto.ManagerID != nil {
		if err := s.validateManagerLink(u.ID, u.DepartmentID, *dto.ManagerID); err != nil {
			return nil, managerLinkError(err)
		}
		u.ManagerID = dto.ManagerID
	}

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", userID)
		return nil, internal.NewInternalError("failed to update user", err)
	}
	return u, nil
}

func (s *Service) CreateDepartment(actor *User, dto CreateDepartmentDTO) (*Department, error) {
	if !actor.IsHRAdmin() {
		return nil, internal.NewForbiddenError("only HR admins can create departments", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if existing, err := s.repo.GetDepartmentByName(dto.Name); err == nil && existing != nil {
		return nil, internal.NewConflictError("department already exists", internal.ErrCodeValidationFailed)
	}

	d := &Department{Name: dto.Name, Description: dto.Description}
	if err := s.repo.CreateDepartment(d); err != nil {
		s.logger.Error("failed to create department", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create department", err)
	}
	return d, nil
}

func (s *Service) ListDepartments() ([]*Department, error) {
	return s.repo.ListDepartments()
}

func (s *Service) DirectReports(managerID int64) ([]*User, error) {
	return s.repo.DirectReports(managerID)
}

// UserByID and IsDirectReport satisfy the access-control engine's Directory.
func (s *Service) UserByID(id int64) (*User, error) {
	return s.repo.GetByID(id)
}

func (s *Service) IsDirectReport(managerID, userID int64) (bool, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return false, err
	}
	return u.ManagerID != nil && *u.ManagerID == managerID, nil
}

func (s *Service) DirectReportIDs(managerID int64) ([]int64, error) {
	return s.repo.DirectReportIDs(managerID)
}

func (s *Service) ActiveUsersInDepartments(departmentIDs []int64) ([]*User, error) {
	return s.repo.ActiveUsersInDepartments(departmentIDs)
}

func managerLinkError(err error) error {
	switch {
	case errors.Is(err, ErrHierarchyCycle):
		return internal.NewValidationError("manager assignment would create a reporting cycle", internal.ErrCodeHierarchyCycle)
	case errors.Is(err, errManagerDepartmentMismatch):
		return internal.NewValidationError("manager must belong to the same department", internal.ErrCodeValidationFailed)
	case errors.Is(err, ErrNotFound):
		return internal.NewNotFoundError("manager not found", internal.ErrCodeUserNotFound)
	default:
		return internal.NewInternalError("failed to validate manager assignment", err)
	}
}

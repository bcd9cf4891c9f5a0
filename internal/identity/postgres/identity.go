package postgres

import (
	"errors"
	"time"

	"github.com/talenthub/performance-management/internal/identity"
	"gorm.io/gorm"
)

// IdentityRepository implements identity.Repository using GORM.
type IdentityRepository struct {
	db *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) identity.Repository {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) GetByID(id int64) (*identity.User, error) {
	var u identity.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *IdentityRepository) GetByEmail(email string) (*identity.User, error) {
	var u identity.User
	err := r.db.Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *IdentityRepository) Create(u *identity.User) error {
	return r.db.Create(u).Error
}

func (r *IdentityRepository) Update(u *identity.User) error {
	u.UpdatedAt = time.Now()
	return r.db.Save(u).Error
}

func (r *IdentityRepository) ListAll(limit, offset int) ([]*identity.User, error) {
	var users []*identity.User
	err := r.db.Order("name ASC").Limit(limit).Offset(offset).Find(&users).Error
	return users, err
}

func (r *IdentityRepository) ListByDepartment(departmentID int64, limit, offset int) ([]*identity.User, error) {
	var users []*identity.User
	err := r.db.Where("department_id = ?", departmentID).
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}

func (r *IdentityRepository) DirectReports(managerID int64) ([]*identity.User, error) {
	var users []*identity.User
	err := r.db.Where("manager_id = ? AND is_active = ?", managerID, true).Find(&users).Error
	return users, err
}

func (r *IdentityRepository) DirectReportIDs(managerID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&identity.User{}).
		Where("manager_id = ? AND is_active = ?", managerID, true).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *IdentityRepository) ActiveUsersInDepartments(departmentIDs []int64) ([]*identity.User, error) {
	var users []*identity.User
	err := r.db.Where("department_id IN ? AND is_active = ?", departmentIDs, true).Find(&users).Error
	return users, err
}

func (r *IdentityRepository) GetDepartment(id int64) (*identity.Department, error) {
	var d identity.Department
	err := r.db.Where("id = ?", id).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *IdentityRepository) GetDepartmentByName(name string) (*identity.Department, error) {
	var d identity.Department
	err := r.db.Where("name = ?", name).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *IdentityRepository) CreateDepartment(d *identity.Department) error {
	return r.db.Create(d).Error
}

func (r *IdentityRepository) ListDepartments() ([]*identity.Department, error) {
	var departments []*identity.Department
	err := r.db.Order("name ASC").Find(&departments).Error
	return departments, err
}

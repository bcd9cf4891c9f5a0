package postgres

import (
	"errors"

	"github.com/talenthub/performance-management/internal/okr"
	"gorm.io/gorm"
)

type OKRRepository struct {
	db *gorm.DB
}

func NewOKRRepository(db *gorm.DB) *OKRRepository {
	return &OKRRepository{db: db}
}

func (r *OKRRepository) CreateObjective(o *okr.Objective, departmentIDs []int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		for _, depID := range departmentIDs {
			link := okr.ObjectiveDepartment{ObjectiveID: o.ID, DepartmentID: depID}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *OKRRepository) GetObjective(id int64) (*okr.Objective, error) {
	var o okr.Objective
	if err := r.db.First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, okr.ErrObjectiveNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OKRRepository) UpdateObjective(o *okr.Objective) error {
	return r.db.Save(o).Error
}

func (r *OKRRepository) DeleteObjective(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("objective_id = ?", id).Delete(&okr.ObjectiveDepartment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&okr.Objective{}, id).Error
	})
}

func (r *OKRRepository) ObjectiveDepartmentIDs(objectiveID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&okr.ObjectiveDepartment{}).
		Where("objective_id = ?", objectiveID).
		Pluck("department_id", &ids).Error
	return ids, err
}

func (r *OKRRepository) ListAllObjectives(limit, offset int) ([]*okr.Objective, error) {
	var objectives []*okr.Objective
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&objectives).Error
	return objectives, err
}

// ListObjectivesForDepartments scopes at the query level so out-of-scope rows
// never reach the service.
func (r *OKRRepository) ListObjectivesForDepartments(departmentIDs []int64, limit, offset int) ([]*okr.Objective, error) {
	var objectives []*okr.Objective
	err := r.db.
		Joins("JOIN objective_departments od ON od.objective_id = objectives.id").
		Where("od.department_id IN ?", departmentIDs).
		Distinct("objectives.*").
		Order("objectives.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&objectives).Error
	return objectives, err
}

// ListObjectivesForUser returns objectives the user owns or holds a goal
// under.
func (r *OKRRepository) ListObjectivesForUser(userID int64, limit, offset int) ([]*okr.Objective, error) {
	var objectives []*okr.Objective
	err := r.db.
		Joins("LEFT JOIN goals g ON g.objective_id = objectives.id").
		Where("objectives.owner_id = ? OR g.assigned_to = ? OR g.created_by = ?", userID, userID, userID).
		Distinct("objectives.*").
		Order("objectives.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&objectives).Error
	return objectives, err
}

func (r *OKRRepository) CountActiveGoals(objectiveID int64) (int64, error) {
	var count int64
	err := r.db.Model(&okr.Goal{}).
		Where("objective_id = ? AND status IN ?", objectiveID, []string{okr.StatusNotStarted, okr.StatusInProgress}).
		Count(&count).Error
	return count, err
}

func (r *OKRRepository) UpdateObjectiveProgress(objectiveID int64, progress float64) error {
	return r.db.Model(&okr.Objective{}).
		Where("id = ?", objectiveID).
		Update("progress_percentage", progress).Error
}

func (r *OKRRepository) CreateGoal(g *okr.Goal) error {
	return r.db.Create(g).Error
}

func (r *OKRRepository) GetGoal(id int64) (*okr.Goal, error) {
	var g okr.Goal
	if err := r.db.First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, okr.ErrGoalNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *OKRRepository) GoalsByObjective(objectiveID int64) ([]*okr.Goal, error) {
	var goals []*okr.Goal
	err := r.db.Where("objective_id = ?", objectiveID).Order("created_at ASC").Find(&goals).Error
	return goals, err
}

func (r *OKRRepository) UpdateGoal(g *okr.Goal) error {
	return r.db.Save(g).Error
}

func (r *OKRRepository) DeleteGoal(id int64) error {
	return r.db.Delete(&okr.Goal{}, id).Error
}

func (r *OKRRepository) CountActiveTasks(goalID int64) (int64, error) {
	var count int64
	err := r.db.Model(&okr.Task{}).
		Where("goal_id = ? AND status <> ?", goalID, okr.StatusCompleted).
		Count(&count).Error
	return count, err
}

func (r *OKRRepository) GoalProgressValues(objectiveID int64) ([]float64, error) {
	var values []float64
	err := r.db.Model(&okr.Goal{}).
		Where("objective_id = ?", objectiveID).
		Pluck("progress_percentage", &values).Error
	return values, err
}

func (r *OKRRepository) UpdateGoalProgress(goalID int64, progress float64) error {
	return r.db.Model(&okr.Goal{}).
		Where("id = ?", goalID).
		Update("progress_percentage", progress).Error
}

func (r *OKRRepository) CreateTask(t *okr.Task) error {
	return r.db.Create(t).Error
}

func (r *OKRRepository) GetTask(id int64) (*okr.Task, error) {
	var t okr.Task
	if err := r.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, okr.ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *OKRRepository) TasksByGoal(goalID int64) ([]*okr.Task, error) {
	var tasks []*okr.Task
	err := r.db.Where("goal_id = ?", goalID).Order("created_at ASC").Find(&tasks).Error
	return tasks, err
}

func (r *OKRRepository) UpdateTask(t *okr.Task) error {
	return r.db.Save(t).Error
}

func (r *OKRRepository) DeleteTask(id int64) error {
	return r.db.Delete(&okr.Task{}, id).Error
}

func (r *OKRRepository) CompletedAndTotalTasks(goalID int64) (completed, total int64, err error) {
	if err = r.db.Model(&okr.Task{}).Where("goal_id = ?", goalID).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.Model(&okr.Task{}).
		Where("goal_id = ? AND status = ?", goalID, okr.StatusCompleted).
		Count(&completed).Error
	return completed, total, err
}

func (r *OKRRepository) AppendTaskUpdate(u *okr.TaskUpdate) error {
	return r.db.Create(u).Error
}

func (r *OKRRepository) TaskUpdates(taskID int64) ([]*okr.TaskUpdate, error) {
	var updates []*okr.TaskUpdate
	err := r.db.Where("task_id = ?", taskID).Order("created_at ASC, id ASC").Find(&updates).Error
	return updates, err
}

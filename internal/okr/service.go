package okr

import (
	"context"
	"log/slog"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/accesscontrol"
	"github.com/talenthub/performance-management/internal/core/events"
	"github.com/talenthub/performance-management/internal/identity"
)

// Repository defines the data access methods for the OKR tree.
type Repository interface {
	CreateObjective(o *Objective, departmentIDs []int64) error
	GetObjective(id int64) (*Objective, error)
	UpdateObjective(o *Objective) error
	DeleteObjective(id int64) error
	ObjectiveDepartmentIDs(objectiveID int64) ([]int64, error)
	ListAllObjectives(limit, offset int) ([]*Objective, error)
	ListObjectivesForDepartments(departmentIDs []int64, limit, offset int) ([]*Objective, error)
	ListObjectivesForUser(userID int64, limit, offset int) ([]*Objective, error)
	CountActiveGoals(objectiveID int64) (int64, error)
	UpdateObjectiveProgress(objectiveID int64, progress float64) error

	CreateGoal(g *Goal) error
	GetGoal(id int64) (*Goal, error)
	GoalsByObjective(objectiveID int64) ([]*Goal, error)
	UpdateGoal(g *Goal) error
	DeleteGoal(id int64) error
	CountActiveTasks(goalID int64) (int64, error)
	GoalProgressValues(objectiveID int64) ([]float64, error)
	UpdateGoalProgress(goalID int64, progress float64) error

	CreateTask(t *Task) error
	GetTask(id int64) (*Task, error)
	TasksByGoal(goalID int64) ([]*Task, error)
	UpdateTask(t *Task) error
	DeleteTask(id int64) error
	CompletedAndTotalTasks(goalID int64) (completed, total int64, err error)

	AppendTaskUpdate(u *TaskUpdate) error
	TaskUpdates(taskID int64) ([]*TaskUpdate, error)
}

// Directory is the slice of the identity service the OKR domain needs.
type Directory interface {
	UserByID(id int64) (*identity.User, error)
}

type Service struct {
	repo   Repository
	engine *accesscontrol.Engine
	dir    Directory
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, engine *accesscontrol.Engine, dir Directory, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		engine: engine,
		dir:    dir,
		bus:    bus,
		logger: logger,
	}
}

// CreateObjective is restricted to HR admins. The owner must be a manager;
// objectives always hang off a manager who then breaks them into goals.
func (s *Service) CreateObjective(actor *identity.User, dto CreateObjectiveDTO) (*Objective, error) {
	if !actor.IsHRAdmin() {
		return nil, internal.NewForbiddenError("only HR admins can create objectives", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	owner, err := s.dir.UserByID(dto.OwnerID)
	if err != nil {
		return nil, internal.NewNotFoundError("owner not found", internal.ErrCodeUserNotFound).WithCause(err)
	}
	if !owner.IsManager() && !owner.IsHRAdmin() {
		return nil, internal.NewValidationError("objective owner must be a manager", internal.ErrCodeValidationFailed)
	}

	o := &Objective{
		Title:       dto.Title,
		Description: dto.Description,
		Status:      ObjectiveStatusDraft,
		OwnerID:     dto.OwnerID,
		CreatedBy:   actor.ID,
		DueDate:     dto.DueDate,
	}
	if err := s.repo.CreateObjective(o, dto.DepartmentIDs); err != nil {
		s.logger.Error("failed to create objective", "error", err)
		return nil, internal.NewInternalError("failed to create objective", err)
	}

	s.logger.Info("objective created", "objective_id", o.ID, "owner_id", o.OwnerID)
	return o, nil
}

func (s *Service) GetObjective(actor *identity.User, objectiveID int64) (*Objective, error) {
	o, err := s.repo.GetObjective(objectiveID)
	if err != nil {
		return nil, internal.NewNotFoundError("objective not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if err := s.engine.CanView(actor, s.objectiveResource(o)); err != nil {
		return nil, err
	}
	return o, nil
}

// ListObjectives scopes results by role: HR admins see everything, managers
// see their department's objectives plus their own, individual contributors
// see objectives they hold goals under.
func (s *Service) ListObjectives(actor *identity.User, limit, offset int) ([]*Objective, error) {
	switch {
	case actor.IsHRAdmin():
		return s.repo.ListAllObjectives(limit, offset)
	case actor.IsManager():
		return s.repo.ListObjectivesForDepartments([]int64{actor.DepartmentID}, limit, offset)
	default:
		return s.repo.ListObjectivesForUser(actor.ID, limit, offset)
	}
}

func (s *Service) UpdateObjective(actor *identity.User, objectiveID int64, dto UpdateObjectiveDTO) (*Objective, error) {
	if !actor.IsHRAdmin() {
		return nil, internal.NewForbiddenError("only HR admins can update objectives", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	o, err := s.repo.GetObjective(objectiveID)
	if err != nil {
		return nil, internal.NewNotFoundError("objective not found", internal.ErrCodeNotFound).WithCause(err)
	}

	if dto.Title != nil {
		o.Title = *dto.Title
	}
	if dto.Description != nil {
		o.Description = *dto.Description
	}
	if dto.Status != nil {
		o.Status = *dto.Status
	}
	if dto.OwnerID != nil {
		owner, err := s.dir.UserByID(*dto.OwnerID)
		if err != nil {
			return nil, internal.NewNotFoundError("owner not found", internal.ErrCodeUserNotFound).WithCause(err)
		}
		if !owner.IsManager() && !owner.IsHRAdmin() {
			return nil, internal.NewValidationError("objective owner must be a manager", internal.ErrCodeValidationFailed)
		}
		o.OwnerID = *dto.OwnerID
	}
	if dto.DueDate != nil {
		o.DueDate = *dto.DueDate
	}

	if err := s.repo.UpdateObjective(o); err != nil {
		return nil, internal.NewInternalError("failed to update objective", err)
	}
	return o, nil
}

// DeleteObjective refuses while any goal underneath is still active. Finished
// or blocked goals do not block deletion.
func (s *Service) DeleteObjective(actor *identity.User, objectiveID int64) error {
	if !actor.IsHRAdmin() {
		return internal.NewForbiddenError("only HR admins can delete objectives", internal.ErrCodeForbidden)
	}
	if _, err := s.repo.GetObjective(objectiveID); err != nil {
		return internal.NewNotFoundError("objective not found", internal.ErrCodeNotFound).WithCause(err)
	}

	active, err := s.repo.CountActiveGoals(objectiveID)
	if err != nil {
		return internal.NewInternalError("failed to count goals", err)
	}
	if active > 0 {
		return internal.NewConflictError("objective still has active goals", internal.ErrCodeActiveChildren)
	}
	if err := s.repo.DeleteObjective(objectiveID); err != nil {
		return internal.NewInternalError("failed to delete objective", err)
	}
	return nil
}

// CreateGoal is restricted to the objective's owning manager.
func (s *Service) CreateGoal(actor *identity.User, objectiveID int64, dto CreateGoalDTO) (*Goal, error) {
	o, err := s.repo.GetObjective(objectiveID)
	if err != nil {
		return nil, internal.NewNotFoundError("objective not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if actor.ID != o.OwnerID {
		return nil, internal.NewForbiddenError("only the objective owner can create goals", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if _, err := s.dir.UserByID(dto.AssignedTo); err != nil {
		return nil, internal.NewNotFoundError("assignee not found", internal.ErrCodeUserNotFound).WithCause(err)
	}

	g := &Goal{
		ObjectiveID: objectiveID,
		Title:       dto.Title,
		Description: dto.Description,
		AssignedTo:  dto.AssignedTo,
		CreatedBy:   actor.ID,
		Status:      StatusNotStarted,
		DueDate:     dto.DueDate,
	}
	if err := s.repo.CreateGoal(g); err != nil {
		s.logger.Error("failed to create goal", "error", err, "objective_id", objectiveID)
		return nil, internal.NewInternalError("failed to create goal", err)
	}

	// A new goal contributes 0 to the objective mean immediately.
	if err := s.recomputeObjectiveProgress(objectiveID); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) GetGoal(actor *identity.User, goalID int64) (*Goal, error) {
	g, err := s.repo.GetGoal(goalID)
	if err != nil {
		return nil, internal.NewNotFoundError("goal not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if err := s.engine.CanView(actor, s.goalResource(g)); err != nil {
		return nil, err
	}
	return g, nil
}

// goalAssigneeFields is what a non-creating assignee may touch on their goal.
// Anything else in the payload rejects the update as a whole.
var goalAssigneeFields = []string{"status", "progress_percentage"}

func (s *Service) UpdateGoal(ctx context.Context, actor *identity.User, goalID int64, dto UpdateGoalDTO) (*Goal, error) {
	g, err := s.repo.GetGoal(goalID)
	if err != nil {
		return nil, internal.NewNotFoundError("goal not found", internal.ErrCodeNotFound).WithCause(err)
	}

	switch {
	case actor.ID == g.CreatedBy:
		// The creating manager has full control.
	case actor.ID == g.AssignedTo:
		if err := accesscontrol.CheckAllowedFields(dto.ProvidedFields(), goalAssigneeFields...); err != nil {
			return nil, err
		}
	default:
		return nil, internal.NewForbiddenError("not allowed to modify this goal", internal.ErrCodeForbidden)
	}

	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if dto.Title != nil {
		g.Title = *dto.Title
	}
	if dto.Description != nil {
		g.Description = *dto.Description
	}
	if dto.AssignedTo != nil {
		if _, err := s.dir.UserByID(*dto.AssignedTo); err != nil {
			return nil, internal.NewNotFoundError("assignee not found", internal.ErrCodeUserNotFound).WithCause(err)
		}
		g.AssignedTo = *dto.AssignedTo
	}
	if dto.Status != nil {
		g.Status = *dto.Status
	}
	if dto.ProgressPercentage != nil {
		g.ProgressPercentage = round2(*dto.ProgressPercentage)
	}
	if dto.DueDate != nil {
		g.DueDate = *dto.DueDate
	}

	if err := s.repo.UpdateGoal(g); err != nil {
		return nil, internal.NewInternalError("failed to update goal", err)
	}

	// Manual progress edits still roll up into the objective mean.
	if dto.ProgressPercentage != nil || dto.Status != nil {
		if err := s.recomputeObjectiveProgress(g.ObjectiveID); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (s *Service) DeleteGoal(actor *identity.User, goalID int64) error {
	g, err := s.repo.GetGoal(goalID)
	if err != nil {
		return internal.NewNotFoundError("goal not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if actor.ID != g.CreatedBy && !actor.IsHRAdmin() {
		return internal.NewForbiddenError("only the goal creator can delete it", internal.ErrCodeForbidden)
	}

	active, err := s.repo.CountActiveTasks(goalID)
	if err != nil {
		return internal.NewInternalError("failed to count tasks", err)
	}
	if active > 0 {
		return internal.NewConflictError("goal still has active tasks", internal.ErrCodeActiveChildren)
	}

	if err := s.repo.DeleteGoal(goalID); err != nil {
		return internal.NewInternalError("failed to delete goal", err)
	}
	return s.recomputeObjectiveProgress(g.ObjectiveID)
}

// CreateTask allows HR admins, the goal's creating manager, and the goal's
// assignee. Individual contributors can only assign tasks to themselves.
func (s *Service) CreateTask(actor *identity.User, goalID int64, dto CreateTaskDTO) (*Task, error) {
	g, err := s.repo.GetGoal(goalID)
	if err != nil {
		return nil, internal.NewNotFoundError("goal not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if !actor.IsHRAdmin() && actor.ID != g.CreatedBy && actor.ID != g.AssignedTo {
		return nil, internal.NewForbiddenError("not allowed to create tasks under this goal", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if actor.IsIndividualContributor() {
		if err := accesscontrol.RequireSelf(actor, dto.AssignedTo); err != nil {
			return nil, err
		}
	}
	if _, err := s.dir.UserByID(dto.AssignedTo); err != nil {
		return nil, internal.NewNotFoundError("assignee not found", internal.ErrCodeUserNotFound).WithCause(err)
	}

	priority := dto.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	t := &Task{
		GoalID:        goalID,
		Title:         dto.Title,
		Description:   dto.Description,
		AssignedTo:    dto.AssignedTo,
		CreatedBy:     actor.ID,
		Status:        StatusNotStarted,
		Priority:      priority,
		EvidenceLinks: dto.EvidenceLinks,
	}
	if err := s.repo.CreateTask(t); err != nil {
		s.logger.Error("failed to create task", "error", err, "goal_id", goalID)
		return nil, internal.NewInternalError("failed to create task", err)
	}

	// Adding a task changes the goal's completion denominator.
	if err := s.propagateFromGoal(g); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) GetTask(actor *identity.User, taskID int64) (*Task, error) {
	t, err := s.repo.GetTask(taskID)
	if err != nil {
		return nil, internal.NewNotFoundError("task not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if err := s.engine.CanView(actor, s.taskResource(t)); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) ListTasks(actor *identity.User, goalID int64) ([]*Task, error) {
	g, err := s.repo.GetGoal(goalID)
	if err != nil {
		return nil, internal.NewNotFoundError("goal not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if err := s.engine.CanView(actor, s.goalResource(g)); err != nil {
		return nil, err
	}
	return s.repo.TasksByGoal(goalID)
}

func (s *Service) UpdateTask(ctx context.Context, actor *identity.User, taskID int64, dto UpdateTaskDTO) (*Task, error) {
	t, err := s.repo.GetTask(taskID)
	if err != nil {
		return nil, internal.NewNotFoundError("task not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if !actor.IsHRAdmin() && actor.ID != t.CreatedBy && actor.ID != t.AssignedTo {
		return nil, internal.NewForbiddenError("not allowed to modify this task", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	prevStatus := t.Status
	prevProgress := t.ProgressPercentage

	if dto.Title != nil {
		t.Title = *dto.Title
	}
	if dto.Description != nil {
		t.Description = *dto.Description
	}
	if dto.ProgressPercentage != nil {
		t.ProgressPercentage = round2(*dto.ProgressPercentage)
	}
	if dto.Status != nil {
		t.Status = *dto.Status
	} else if dto.ProgressPercentage != nil {
		if t.ProgressPercentage >= 100 {
			t.Status = StatusCompleted
		} else if t.ProgressPercentage > 0 && t.Status == StatusNotStarted {
			t.Status = StatusInProgress
		}
	}
	if t.Status == StatusCompleted {
		t.ProgressPercentage = 100
	}
	if dto.Priority != nil {
		t.Priority = *dto.Priority
	}
	if dto.EvidenceLinks != nil {
		t.EvidenceLinks = *dto.EvidenceLinks
	}

	if err := s.repo.UpdateTask(t); err != nil {
		return nil, internal.NewInternalError("failed to update task", err)
	}

	if t.Status != prevStatus || t.ProgressPercentage != prevProgress {
		if err := s.recordAndPropagate(ctx, t, actor.ID, prevStatus, prevProgress, "", nil); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// UpdateTaskProgress is the dedicated progress endpoint. It accepts a
// percentage in [0,100], appends an immutable audit row when the value or
// status actually changed, and synchronously rolls the change up through the
// goal into the objective.
func (s *Service) UpdateTaskProgress(ctx context.Context, actor *identity.User, taskID int64, dto TaskProgressDTO) (*Task, error) {
	t, err := s.repo.GetTask(taskID)
	if err != nil {
		return nil, internal.NewNotFoundError("task not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if !actor.IsHRAdmin() && actor.ID != t.CreatedBy && actor.ID != t.AssignedTo {
		return nil, internal.NewForbiddenError("not allowed to update this task", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	prevStatus := t.Status
	prevProgress := t.ProgressPercentage

	t.ProgressPercentage = round2(dto.ProgressPercentage)
	if dto.Status != "" {
		t.Status = dto.Status
	} else if t.ProgressPercentage >= 100 {
		t.Status = StatusCompleted
	} else if t.ProgressPercentage > 0 && t.Status == StatusNotStarted {
		t.Status = StatusInProgress
	}
	if t.Status == StatusCompleted {
		t.ProgressPercentage = 100
	}
	if len(dto.EvidenceAdded) > 0 {
		t.EvidenceLinks = append(t.EvidenceLinks, dto.EvidenceAdded...)
	}

	if err := s.repo.UpdateTask(t); err != nil {
		return nil, internal.NewInternalError("failed to update task", err)
	}

	if t.Status != prevStatus || t.ProgressPercentage != prevProgress {
		if err := s.recordAndPropagate(ctx, t, actor.ID, prevStatus, prevProgress, dto.Notes, dto.EvidenceAdded); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (s *Service) DeleteTask(actor *identity.User, taskID int64) error {
	t, err := s.repo.GetTask(taskID)
	if err != nil {
		return internal.NewNotFoundError("task not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if !actor.IsHRAdmin() && actor.ID != t.CreatedBy {
		return internal.NewForbiddenError("only the task creator can delete it", internal.ErrCodeForbidden)
	}
	if err := s.repo.DeleteTask(taskID); err != nil {
		return internal.NewInternalError("failed to delete task", err)
	}

	g, err := s.repo.GetGoal(t.GoalID)
	if err != nil {
		return internal.NewInternalError("failed to load parent goal", err)
	}
	return s.propagateFromGoal(g)
}

func (s *Service) TaskHistory(actor *identity.User, taskID int64) ([]*TaskUpdate, error) {
	t, err := s.repo.GetTask(taskID)
	if err != nil {
		return nil, internal.NewNotFoundError("task not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if err := s.engine.CanView(actor, s.taskResource(t)); err != nil {
		return nil, err
	}
	return s.repo.TaskUpdates(taskID)
}

func (s *Service) ListGoals(actor *identity.User, objectiveID int64) ([]*Goal, error) {
	o, err := s.repo.GetObjective(objectiveID)
	if err != nil {
		return nil, internal.NewNotFoundError("objective not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if err := s.engine.CanView(actor, s.objectiveResource(o)); err != nil {
		return nil, err
	}
	return s.repo.GoalsByObjective(objectiveID)
}

// recordAndPropagate appends the audit row, rolls progress up two levels, and
// publishes the progress event. The roll-up is synchronous: once the request
// returns, parent percentages are already consistent.
func (s *Service) recordAndPropagate(ctx context.Context, t *Task, actorID int64, prevStatus string, prevProgress float64, notes string, evidence []string) error {
	update := &TaskUpdate{
		TaskID:           t.ID,
		PreviousProgress: prevProgress,
		NewProgress:      t.ProgressPercentage,
		PreviousStatus:   prevStatus,
		NewStatus:        t.Status,
		UpdatedBy:        actorID,
		Notes:            notes,
		EvidenceAdded:    evidence,
	}
	if err := s.repo.AppendTaskUpdate(update); err != nil {
		return internal.NewInternalError("failed to record task update", err)
	}

	g, err := s.repo.GetGoal(t.GoalID)
	if err != nil {
		return internal.NewInternalError("failed to load parent goal", err)
	}
	if err := s.propagateFromGoal(g); err != nil {
		return err
	}

	if s.bus != nil {
		event := events.NewTaskProgressUpdatedEvent(t.ID, g.ID, g.ObjectiveID, actorID, prevProgress, t.ProgressPercentage)
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish progress event", "task_id", t.ID, "error", err)
		}
	}
	return nil
}

// propagateFromGoal recomputes the goal's percentage from task counts, then
// the objective's from the goal mean.
func (s *Service) propagateFromGoal(g *Goal) error {
	completed, total, err := s.repo.CompletedAndTotalTasks(g.ID)
	if err != nil {
		return internal.NewInternalError("failed to count tasks", err)
	}
	if err := s.repo.UpdateGoalProgress(g.ID, GoalCompletionPercent(completed, total)); err != nil {
		return internal.NewInternalError("failed to update goal progress", err)
	}
	return s.recomputeObjectiveProgress(g.ObjectiveID)
}

func (s *Service) recomputeObjectiveProgress(objectiveID int64) error {
	values, err := s.repo.GoalProgressValues(objectiveID)
	if err != nil {
		return internal.NewInternalError("failed to load goal progress", err)
	}
	if err := s.repo.UpdateObjectiveProgress(objectiveID, ObjectiveCompletionPercent(values)); err != nil {
		return internal.NewInternalError("failed to update objective progress", err)
	}
	return nil
}

func (s *Service) objectiveResource(o *Objective) accesscontrol.Resource {
	depIDs, err := s.repo.ObjectiveDepartmentIDs(o.ID)
	if err != nil {
		s.logger.Warn("failed to load objective departments", "objective_id", o.ID, "error", err)
	}
	return accesscontrol.Resource{
		Kind:          accesscontrol.KindObjective,
		OwnerID:       o.OwnerID,
		CreatorID:     o.CreatedBy,
		DepartmentIDs: depIDs,
	}
}

func (s *Service) goalResource(g *Goal) accesscontrol.Resource {
	return accesscontrol.Resource{
		Kind:      accesscontrol.KindGoal,
		OwnerID:   g.AssignedTo,
		CreatorID: g.CreatedBy,
		Parties:   []int64{g.AssignedTo},
	}
}

func (s *Service) taskResource(t *Task) accesscontrol.Resource {
	return accesscontrol.Resource{
		Kind:      accesscontrol.KindTask,
		OwnerID:   t.AssignedTo,
		CreatorID: t.CreatedBy,
		Parties:   []int64{t.AssignedTo},
	}
}

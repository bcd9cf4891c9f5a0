package okr

import (
	"errors"
	"time"
)

type CreateObjectiveDTO struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	OwnerID       int64     `json:"owner_id"`
	DepartmentIDs []int64   `json:"department_ids"`
	DueDate       time.Time `json:"due_date"`
}

func (d CreateObjectiveDTO) Validate() error {
	if d.Title == "" {
		return errors.New("title is required")
	}
	if d.OwnerID <= 0 {
		return errors.New("owner_id is required")
	}
	if len(d.DepartmentIDs) == 0 {
		return errors.New("at least one department is required")
	}
	return nil
}

type UpdateObjectiveDTO struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	OwnerID     *int64     `json:"owner_id"`
	DueDate     *time.Time `json:"due_date"`
}

func (d UpdateObjectiveDTO) Validate() error {
	if d.Title != nil && *d.Title == "" {
		return errors.New("title cannot be empty")
	}
	if d.Status != nil && !ValidObjectiveStatus(*d.Status) {
		return errors.New("invalid objective status")
	}
	return nil
}

type CreateGoalDTO struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AssignedTo  int64     `json:"assigned_to"`
	DueDate     time.Time `json:"due_date"`
}

func (d CreateGoalDTO) Validate() error {
	if d.Title == "" {
		return errors.New("title is required")
	}
	if d.AssignedTo <= 0 {
		return errors.New("assigned_to is required")
	}
	return nil
}

type UpdateGoalDTO struct {
	Title              *string    `json:"title"`
	Description        *string    `json:"description"`
	AssignedTo         *int64     `json:"assigned_to"`
	Status             *string    `json:"status"`
	ProgressPercentage *float64   `json:"progress_percentage"`
	DueDate            *time.Time `json:"due_date"`
}

func (d UpdateGoalDTO) Validate() error {
	if d.Title != nil && *d.Title == "" {
		return errors.New("title cannot be empty")
	}
	if d.Status != nil && !ValidGoalStatus(*d.Status) {
		return errors.New("invalid goal status")
	}
	if d.ProgressPercentage != nil && (*d.ProgressPercentage < 0 || *d.ProgressPercentage > 100) {
		return errors.New("progress_percentage must be between 0 and 100")
	}
	return nil
}

// ProvidedFields lists the JSON names of fields present in the payload, so
// role-based field restrictions can reject the whole update when it touches
// anything outside the allowed set.
func (d UpdateGoalDTO) ProvidedFields() []string {
	var fields []string
	if d.Title != nil {
		fields = append(fields, "title")
	}
	if d.Description != nil {
		fields = append(fields, "description")
	}
	if d.AssignedTo != nil {
		fields = append(fields, "assigned_to")
	}
	if d.Status != nil {
		fields = append(fields, "status")
	}
	if d.ProgressPercentage != nil {
		fields = append(fields, "progress_percentage")
	}
	if d.DueDate != nil {
		fields = append(fields, "due_date")
	}
	return fields
}

type CreateTaskDTO struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	AssignedTo    int64    `json:"assigned_to"`
	Priority      string   `json:"priority"`
	EvidenceLinks []string `json:"evidence_links"`
}

func (d CreateTaskDTO) Validate() error {
	if d.Title == "" {
		return errors.New("title is required")
	}
	if d.AssignedTo <= 0 {
		return errors.New("assigned_to is required")
	}
	if d.Priority != "" && !ValidPriority(d.Priority) {
		return errors.New("invalid priority")
	}
	return nil
}

type UpdateTaskDTO struct {
	Title              *string   `json:"title"`
	Description        *string   `json:"description"`
	Status             *string   `json:"status"`
	Priority           *string   `json:"priority"`
	ProgressPercentage *float64  `json:"progress_percentage"`
	EvidenceLinks      *[]string `json:"evidence_links"`
}

func (d UpdateTaskDTO) Validate() error {
	if d.Title != nil && *d.Title == "" {
		return errors.New("title cannot be empty")
	}
	if d.Status != nil && !ValidGoalStatus(*d.Status) {
		return errors.New("invalid task status")
	}
	if d.Priority != nil && !ValidPriority(*d.Priority) {
		return errors.New("invalid priority")
	}
	if d.ProgressPercentage != nil && (*d.ProgressPercentage < 0 || *d.ProgressPercentage > 100) {
		return errors.New("progress_percentage must be between 0 and 100")
	}
	return nil
}

// TaskProgressDTO is the payload of the dedicated progress endpoint. An audit
// row is appended whenever the reported progress or status differs from the
// stored value.
type TaskProgressDTO struct {
	ProgressPercentage float64  `json:"progress_percentage"`
	Status             string   `json:"status"`
	Notes              string   `json:"update_notes"`
	EvidenceAdded      []string `json:"evidence_links"`
}

func (d TaskProgressDTO) Validate() error {
	if d.ProgressPercentage < 0 || d.ProgressPercentage > 100 {
		return errors.New("progress_percentage must be between 0 and 100")
	}
	if d.Status != "" && !ValidGoalStatus(d.Status) {
		return errors.New("invalid task status")
	}
	return nil
}

package feedback

import (
	"errors"
	"time"
)

// Feedback types.
const (
	TypePraise     = "praise"
	TypeSuggestion = "suggestion"
	TypeConcern    = "concern"
)

// Visibility levels. Private feedback is only readable by the two parties and
// HR admins; manager_only additionally admits the recipient's manager.
const (
	VisibilityPublic      = "public"
	VisibilityPrivate     = "private"
	VisibilityManagerOnly = "manager_only"
)

type Feedback struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	FromUserID   int64     `json:"from_user_id" gorm:"column:from_user_id;not null"`
	ToUserID     int64     `json:"to_user_id" gorm:"column:to_user_id;not null"`
	FeedbackType string    `json:"feedback_type" gorm:"column:feedback_type;not null"`
	Visibility   string    `json:"visibility" gorm:"not null;default:public"`
	Content      string    `json:"content" gorm:"not null"`
	ObjectiveID  *int64    `json:"objective_id,omitempty" gorm:"column:objective_id"`
	GoalID       *int64    `json:"goal_id,omitempty" gorm:"column:goal_id"`
	TaskID       *int64    `json:"task_id,omitempty" gorm:"column:task_id"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;default:CURRENT_TIMESTAMP"`
}

func (Feedback) TableName() string {
	return "feedback"
}

func (f *Feedback) IsParty(userID int64) bool {
	return f.FromUserID == userID || f.ToUserID == userID
}

// Tag is unique per feedback; adding the same tag twice is a conflict.
type Tag struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	FeedbackID int64     `json:"feedback_id" gorm:"column:feedback_id;not null;uniqueIndex:idx_feedback_tag"`
	Tag        string    `json:"tag" gorm:"not null;uniqueIndex:idx_feedback_tag"`
	CreatedBy  int64     `json:"created_by" gorm:"column:created_by;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
}

func (Tag) TableName() string {
	return "feedback_tags"
}

// Comment rows are append-only; there is no edit or delete path.
type Comment struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	FeedbackID int64     `json:"feedback_id" gorm:"column:feedback_id;not null"`
	UserID     int64     `json:"user_id" gorm:"column:user_id;not null"`
	Content    string    `json:"content" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
}

func (Comment) TableName() string {
	return "feedback_comments"
}

func ValidType(t string) bool {
	switch t {
	case TypePraise, TypeSuggestion, TypeConcern:
		return true
	}
	return false
}

func ValidVisibility(v string) bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityManagerOnly:
		return true
	}
	return false
}

var (
	ErrNotFound    = errors.New("feedback not found")
	ErrTagNotFound = errors.New("tag not found")
)

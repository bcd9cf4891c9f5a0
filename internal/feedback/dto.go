package feedback

import "errors"

type CreateFeedbackDTO struct {
	ToUserID     int64  `json:"to_user_id"`
	FeedbackType string `json:"feedback_type"`
	Visibility   string `json:"visibility"`
	Content      string `json:"content"`
	ObjectiveID  *int64 `json:"objective_id"`
	GoalID       *int64 `json:"goal_id"`
	TaskID       *int64 `json:"task_id"`
}

func (d CreateFeedbackDTO) Validate() error {
	if d.ToUserID <= 0 {
		return errors.New("to_user_id is required")
	}
	if d.Content == "" {
		return errors.New("content is required")
	}
	if !ValidType(d.FeedbackType) {
		return errors.New("feedback_type must be praise, suggestion or concern")
	}
	if d.Visibility != "" && !ValidVisibility(d.Visibility) {
		return errors.New("invalid visibility")
	}
	return nil
}

type UpdateFeedbackDTO struct {
	FeedbackType *string `json:"feedback_type"`
	Visibility   *string `json:"visibility"`
	Content      *string `json:"content"`
}

func (d UpdateFeedbackDTO) Validate() error {
	if d.FeedbackType != nil && !ValidType(*d.FeedbackType) {
		return errors.New("feedback_type must be praise, suggestion or concern")
	}
	if d.Visibility != nil && !ValidVisibility(*d.Visibility) {
		return errors.New("invalid visibility")
	}
	if d.Content != nil && *d.Content == "" {
		return errors.New("content cannot be empty")
	}
	return nil
}

type AddTagDTO struct {
	Tag string `json:"tag"`
}

func (d AddTagDTO) Validate() error {
	if d.Tag == "" {
		return errors.New("tag is required")
	}
	return nil
}

type AddCommentDTO struct {
	Content string `json:"content"`
}

func (d AddCommentDTO) Validate() error {
	if d.Content == "" {
		return errors.New("content is required")
	}
	return nil
}

// FeedbackResponse bundles a feedback row with its tags and comments.
type FeedbackResponse struct {
	Feedback
	Tags     []Tag     `json:"tags"`
	Comments []Comment `json:"comments"`
}

package postgres

import (
	"errors"

	"github.com/talenthub/performance-management/internal/feedback"
	"gorm.io/gorm"
)

type FeedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Create(f *feedback.Feedback) error {
	return r.db.Create(f).Error
}

func (r *FeedbackRepository) GetByID(id int64) (*feedback.Feedback, error) {
	var f feedback.Feedback
	if err := r.db.First(&f, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, feedback.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *FeedbackRepository) Update(f *feedback.Feedback) error {
	return r.db.Save(f).Error
}

func (r *FeedbackRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("feedback_id = ?", id).Delete(&feedback.Tag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("feedback_id = ?", id).Delete(&feedback.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&feedback.Feedback{}, id).Error
	})
}

func (r *FeedbackRepository) ListAll(limit, offset int) ([]*feedback.Feedback, error) {
	var rows []*feedback.Feedback
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, err
}

func (r *FeedbackRepository) ListForUser(userID int64, limit, offset int) ([]*feedback.Feedback, error) {
	var rows []*feedback.Feedback
	err := r.db.
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	return rows, err
}

// ListForManager returns feedback the manager is a party to plus feedback
// received by users in the manager's department. Visibility filtering on top
// of this scope happens in the service.
func (r *FeedbackRepository) ListForManager(managerID, departmentID int64, limit, offset int) ([]*feedback.Feedback, error) {
	var rows []*feedback.Feedback
	err := r.db.
		Joins("JOIN users recipient ON recipient.id = feedback.to_user_id").
		Where("feedback.from_user_id = ? OR feedback.to_user_id = ? OR recipient.department_id = ?",
			managerID, managerID, departmentID).
		Order("feedback.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	return rows, err
}

func (r *FeedbackRepository) AddTag(t *feedback.Tag) error {
	return r.db.Create(t).Error
}

func (r *FeedbackRepository) HasTag(feedbackID int64, tag string) (bool, error) {
	var count int64
	err := r.db.Model(&feedback.Tag{}).
		Where("feedback_id = ? AND tag = ?", feedbackID, tag).
		Count(&count).Error
	return count > 0, err
}

func (r *FeedbackRepository) RemoveTag(feedbackID int64, tag string) error {
	return r.db.Where("feedback_id = ? AND tag = ?", feedbackID, tag).Delete(&feedback.Tag{}).Error
}

func (r *FeedbackRepository) TagsFor(feedbackID int64) ([]feedback.Tag, error) {
	var tags []feedback.Tag
	err := r.db.Where("feedback_id = ?", feedbackID).Order("created_at ASC").Find(&tags).Error
	return tags, err
}

func (r *FeedbackRepository) AddComment(c *feedback.Comment) error {
	return r.db.Create(c).Error
}

func (r *FeedbackRepository) CommentsFor(feedbackID int64) ([]feedback.Comment, error) {
	var comments []feedback.Comment
	err := r.db.Where("feedback_id = ?", feedbackID).Order("created_at ASC, id ASC").Find(&comments).Error
	return comments, err
}

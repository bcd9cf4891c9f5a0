package postgres

import (
	"errors"

	"github.com/talenthub/performance-management/internal/review"
	"gorm.io/gorm"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) CreateCycle(c *review.ReviewCycle) error {
	return r.db.Create(c).Error
}

func (r *ReviewRepository) GetCycle(id int64) (*review.ReviewCycle, error) {
	var c review.ReviewCycle
	if err := r.db.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, review.ErrCycleNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ReviewRepository) UpdateCycle(c *review.ReviewCycle) error {
	return r.db.Save(c).Error
}

func (r *ReviewRepository) DeleteCycle(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&review.ReviewParticipant{}, &review.SelfAssessment{},
			&review.PeerReview{}, &review.ManagerReview{},
			&review.UpwardReview{}, &review.ReviewMeeting{},
		} {
			if err := tx.Where("cycle_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&review.ReviewCycle{}, id).Error
	})
}

func (r *ReviewRepository) ListCycles(includeDraft bool, limit, offset int) ([]*review.ReviewCycle, error) {
	q := r.db.Order("created_at DESC").Limit(limit).Offset(offset)
	if !includeDraft {
		q = q.Where("status <> ?", review.CycleStatusDraft)
	}
	var cycles []*review.ReviewCycle
	err := q.Find(&cycles).Error
	return cycles, err
}

// fanOutStore binds the fan-out operations to one transaction.
type fanOutStore struct {
	tx *gorm.DB
}

// ActivateDraftCycle flips draft to active with a conditional update. Zero
// affected rows means someone else already started (or completed) the cycle.
func (s *fanOutStore) ActivateDraftCycle(cycleID int64) (bool, error) {
	res := s.tx.Model(&review.ReviewCycle{}).
		Where("id = ? AND status = ?", cycleID, review.CycleStatusDraft).
		Update("status", review.CycleStatusActive)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *fanOutStore) GetOrCreateParticipant(p *review.ReviewParticipant) (bool, error) {
	return firstOrCreate(s.tx, p, "cycle_id = ? AND user_id = ?", p.CycleID, p.UserID)
}

func (s *fanOutStore) GetOrCreateSelfAssessment(sa *review.SelfAssessment) (bool, error) {
	return firstOrCreate(s.tx, sa, "cycle_id = ? AND user_id = ?", sa.CycleID, sa.UserID)
}

func (s *fanOutStore) GetOrCreatePeerReview(pr *review.PeerReview) (bool, error) {
	return firstOrCreate(s.tx, pr, "cycle_id = ? AND reviewer_id = ? AND reviewee_id = ?",
		pr.CycleID, pr.ReviewerID, pr.RevieweeID)
}

func (s *fanOutStore) GetOrCreateManagerReview(mr *review.ManagerReview) (bool, error) {
	return firstOrCreate(s.tx, mr, "cycle_id = ? AND manager_id = ? AND employee_id = ?",
		mr.CycleID, mr.ManagerID, mr.EmployeeID)
}

// firstOrCreate reports whether the row was newly created.
func firstOrCreate(tx *gorm.DB, dest interface{}, query string, args ...interface{}) (bool, error) {
	res := tx.Where(query, args...).FirstOrCreate(dest)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ReviewRepository) WithinTransaction(fn func(store review.FanOutStore) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&fanOutStore{tx: tx})
	})
}

func (r *ReviewRepository) GetParticipant(cycleID, userID int64) (*review.ReviewParticipant, error) {
	var p review.ReviewParticipant
	err := r.db.Where("cycle_id = ? AND user_id = ?", cycleID, userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, review.ErrRecordNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ReviewRepository) AddParticipant(p *review.ReviewParticipant) (bool, error) {
	return firstOrCreate(r.db, p, "cycle_id = ? AND user_id = ?", p.CycleID, p.UserID)
}

func (r *ReviewRepository) CountParticipants(cycleID int64) (int64, error) {
	var count int64
	err := r.db.Model(&review.ReviewParticipant{}).
		Where("cycle_id = ? AND is_active = ?", cycleID, true).
		Count(&count).Error
	return count, err
}

func (r *ReviewRepository) GetSelfAssessment(cycleID, userID int64) (*review.SelfAssessment, error) {
	var sa review.SelfAssessment
	err := r.db.Where("cycle_id = ? AND user_id = ?", cycleID, userID).First(&sa).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, review.ErrRecordNotFound
		}
		return nil, err
	}
	return &sa, nil
}

func (r *ReviewRepository) GetSelfAssessmentByID(id int64) (*review.SelfAssessment, error) {
	var sa review.SelfAssessment
	if err := r.db.First(&sa, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, review.ErrRecordNotFound
		}
		return nil, err
	}
	return &sa, nil
}

func (r *ReviewRepository) UpdateSelfAssessment(sa *review.SelfAssessment) error {
	return r.db.Save(sa).Error
}

func (r *ReviewRepository) CreateSelfAssessment(sa *review.SelfAssessment) (bool, error) {
	return firstOrCreate(r.db, sa, "cycle_id = ? AND user_id = ?", sa.CycleID, sa.UserID)
}

func (r *ReviewRepository) ReplaceGoalAssessments(selfAssessmentID int64, rows []review.GoalAssessment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("self_assessment_id = ?", selfAssessmentID).Delete(&review.GoalAssessment{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (r *ReviewRepository) GoalAssessmentsFor(selfAssessmentID int64) ([]review.GoalAssessment, error) {
	var rows []review.GoalAssessment
	err := r.db.Where("self_assessment_id = ?", selfAssessmentID).Find(&rows).Error
	return rows, err
}

func (r *ReviewRepository) CountSelfAssessments(cycleID int64, status string) (int64, error) {
	return r.countByStatus(&review.SelfAssessment{}, cycleID, status)
}

func (r *ReviewRepository) CreatePeerReview(pr *review.PeerReview) (bool, error) {
	return firstOrCreate(r.db, pr, "cycle_id = ? AND reviewer_id = ? AND reviewee_id = ?",
		pr.CycleID, pr.ReviewerID, pr.RevieweeID)
}

func (r *ReviewRepository) GetPeerReview(id int64) (*review.PeerReview, error) {
	var pr review.PeerReview
	if err := r.db.First(&pr, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, review.ErrRecordNotFound
		}
		return nil, err
	}
	return &pr, nil
}

func (r *ReviewRepository) PeerReviewsForReviewer(cycleID, reviewerID int64) ([]*review.PeerReview, error) {
	var rows []*review.PeerReview
	err := r.db.Where("cycle_id = ? AND reviewer_id = ?", cycleID, reviewerID).Find(&rows).Error
	return rows, err
}

func (r *ReviewRepository) PeerReviewsForCycle(cycleID int64) ([]*review.PeerReview, error) {
	var rows []*review.PeerReview
	err := r.db.Where("cycle_id = ?", cycleID).Find(&rows).Error
	return rows, err
}

func (r *ReviewRepository) PeerReviewsForReviewee(cycleID, revieweeID int64) ([]*review.PeerReview, error) {
	var rows []*review.PeerReview
	err := r.db.Where("cycle_id = ? AND reviewee_id = ?", cycleID, revieweeID).Find(&rows).Error
	return rows, err
}

func (r *ReviewRepository) UpdatePeerReview(pr *review.PeerReview) error {
	return r.db.Save(pr).Error
}

func (r *ReviewRepository) CountPeerReviews(cycleID int64, status string) (int64, error) {
	return r.countByStatus(&review.PeerReview{}, cycleID, status)
}

func (r *ReviewRepository) CreateManagerReview(mr *review.ManagerReview) (bool, error) {
	return firstOrCreate(r.db, mr, "cycle_id = ? AND manager_id = ? AND employee_id = ?",
		mr.CycleID, mr.ManagerID, mr.EmployeeID)
}

func (r *ReviewRepository) GetManagerReview(id int64) (*review.ManagerReview, error) {
	var mr review.ManagerReview
	if err := r.db.First(&mr, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, review.ErrRecordNotFound
		}
		return nil, err
	}
	return &mr, nil
}

func (r *ReviewRepository) GetManagerReviewFor(cycleID, employeeID int64) (*review.ManagerReview, error) {
	var mr review.ManagerReview
	err := r.db.Where("cycle_id = ? AND employee_id = ?", cycleID, employeeID).First(&mr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, review.ErrRecordNotFound
		}
		return nil, err
	}
	return &mr, nil
}

func (r *ReviewRepository) ManagerReviewsForManager(cycleID, managerID int64) ([]*review.ManagerReview, error) {
	var rows []*review.ManagerReview
	err := r.db.Where("cycle_id = ? AND manager_id = ?", cycleID, managerID).Find(&rows).Error
	return rows, err
}

func (r *ReviewRepository) UpdateManagerReview(mr *review.ManagerReview) error {
	return r.db.Save(mr).Error
}

func (r *ReviewRepository) ReplaceGoalManagerAssessments(managerReviewID int64, rows []review.GoalManagerAssessment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("manager_review_id = ?", managerReviewID).Delete(&review.GoalManagerAssessment{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (r *ReviewRepository) CountManagerReviews(cycleID int64, status string) (int64, error) {
	return r.countByStatus(&review.ManagerReview{}, cycleID, status)
}

func (r *ReviewRepository) CreateUpwardReview(ur *review.UpwardReview) (bool, error) {
	return firstOrCreate(r.db, ur, "cycle_id = ? AND reviewer_id = ? AND manager_id = ?",
		ur.CycleID, ur.ReviewerID, ur.ManagerID)
}

func (r *ReviewRepository) GetUpwardReview(id int64) (*review.UpwardReview, error) {
	var ur review.UpwardReview
	if err := r.db.First(&ur, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, review.ErrRecordNotFound
		}
		return nil, err
	}
	return &ur, nil
}

func (r *ReviewRepository) UpwardReviewsForManager(cycleID, managerID int64) ([]*review.UpwardReview, error) {
	var rows []*review.UpwardReview
	err := r.db.Where("cycle_id = ? AND manager_id = ?", cycleID, managerID).Find(&rows).Error
	return rows, err
}

func (r *ReviewRepository) UpdateUpwardReview(ur *review.UpwardReview) error {
	return r.db.Save(ur).Error
}

func (r *ReviewRepository) CreateMeeting(m *review.ReviewMeeting) error {
	return r.db.Create(m).Error
}

func (r *ReviewRepository) GetMeeting(id int64) (*review.ReviewMeeting, error) {
	var m review.ReviewMeeting
	if err := r.db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, review.ErrRecordNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *ReviewRepository) MeetingsForCycle(cycleID int64) ([]*review.ReviewMeeting, error) {
	var rows []*review.ReviewMeeting
	err := r.db.Where("cycle_id = ?", cycleID).Order("scheduled_at ASC").Find(&rows).Error
	return rows, err
}

func (r *ReviewRepository) MeetingsForUser(cycleID, userID int64) ([]*review.ReviewMeeting, error) {
	var rows []*review.ReviewMeeting
	err := r.db.
		Where("cycle_id = ? AND (manager_id = ? OR employee_id = ?)", cycleID, userID, userID).
		Order("scheduled_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ReviewRepository) UpdateMeeting(m *review.ReviewMeeting) error {
	return r.db.Save(m).Error
}

func (r *ReviewRepository) countByStatus(model interface{}, cycleID int64, status string) (int64, error) {
	q := r.db.Model(model).Where("cycle_id = ?", cycleID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

package feedback

import (
	"context"
	"log/slog"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/core/events"
	"github.com/talenthub/performance-management/internal/identity"
)

// Repository defines the data access methods for feedback, tags and comments.
type Repository interface {
	Create(f *Feedback) error
	GetByID(id int64) (*Feedback, error)
	Update(f *Feedback) error
	Delete(id int64) error
	ListAll(limit, offset int) ([]*Feedback, error)
	ListForUser(userID int64, limit, offset int) ([]*Feedback, error)
	ListForManager(managerID, departmentID int64, limit, offset int) ([]*Feedback, error)

	AddTag(t *Tag) error
	HasTag(feedbackID int64, tag string) (bool, error)
	RemoveTag(feedbackID int64, tag string) error
	TagsFor(feedbackID int64) ([]Tag, error)

	AddComment(c *Comment) error
	CommentsFor(feedbackID int64) ([]Comment, error)
}

// Directory resolves the recipient's manager for manager_only visibility.
type Directory interface {
	UserByID(id int64) (*identity.User, error)
}

type Service struct {
	repo   Repository
	dir    Directory
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, dir Directory, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{repo: repo, dir: dir, bus: bus, logger: logger}
}

func (s *Service) Create(ctx context.Context, actor *identity.User, dto CreateFeedbackDTO) (*Feedback, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}
	if _, err := s.dir.UserByID(dto.ToUserID); err != nil {
		return nil, internal.NewNotFoundError("recipient not found", internal.ErrCodeUserNotFound).WithCause(err)
	}

	visibility := dto.Visibility
	if visibility == "" {
		visibility = VisibilityPublic
	}
	f := &Feedback{
		FromUserID:   actor.ID,
		ToUserID:     dto.ToUserID,
		FeedbackType: dto.FeedbackType,
		Visibility:   visibility,
		Content:      dto.Content,
		ObjectiveID:  dto.ObjectiveID,
		GoalID:       dto.GoalID,
		TaskID:       dto.TaskID,
	}
	if err := s.repo.Create(f); err != nil {
		s.logger.Error("failed to create feedback", "error", err)
		return nil, internal.NewInternalError("failed to create feedback", err)
	}

	if s.bus != nil {
		event := events.NewFeedbackCreatedEvent(f.ID, f.FromUserID, f.ToUserID, f.FeedbackType)
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish feedback event", "feedback_id", f.ID, "error", err)
		}
	}
	return f, nil
}

func (s *Service) Get(actor *identity.User, feedbackID int64) (*FeedbackResponse, error) {
	f, err := s.repo.GetByID(feedbackID)
	if err != nil {
		return nil, internal.NewNotFoundError("feedback not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if err := s.checkView(actor, f); err != nil {
		return nil, err
	}

	tags, err := s.repo.TagsFor(feedbackID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load tags", err)
	}
	comments, err := s.repo.CommentsFor(feedbackID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load comments", err)
	}
	return &FeedbackResponse{Feedback: *f, Tags: tags, Comments: comments}, nil
}

// List returns feedback visible to the actor. Visibility filtering happens
// twice: the repository narrows by scope, then per-row rules drop private
// entries a manager should not see.
func (s *Service) List(actor *identity.User, limit, offset int) ([]*Feedback, error) {
	var (
		rows []*Feedback
		err  error
	)
	switch {
	case actor.IsHRAdmin():
		rows, err = s.repo.ListAll(limit, offset)
	case actor.IsManager():
		rows, err = s.repo.ListForManager(actor.ID, actor.DepartmentID, limit, offset)
	default:
		rows, err = s.repo.ListForUser(actor.ID, limit, offset)
	}
	if err != nil {
		return nil, internal.NewInternalError("failed to list feedback", err)
	}

	visible := make([]*Feedback, 0, len(rows))
	for _, f := range rows {
		if s.checkView(actor, f) == nil {
			visible = append(visible, f)
		}
	}
	return visible, nil
}

// Update is restricted to the author, regardless of role.
func (s *Service) Update(actor *identity.User, feedbackID int64, dto UpdateFeedbackDTO) (*Feedback, error) {
	f, err := s.repo.GetByID(feedbackID)
	if err != nil {
		return nil, internal.NewNotFoundError("feedback not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if actor.ID != f.FromUserID {
		return nil, internal.NewForbiddenError("only the author can edit feedback", internal.ErrCodeForbidden)
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if dto.FeedbackType != nil {
		f.FeedbackType = *dto.FeedbackType
	}
	if dto.Visibility != nil {
		f.Visibility = *dto.Visibility
	}
	if dto.Content != nil {
		f.Content = *dto.Content
	}
	if err := s.repo.Update(f); err != nil {
		return nil, internal.NewInternalError("failed to update feedback", err)
	}
	return f, nil
}

func (s *Service) Delete(actor *identity.User, feedbackID int64) error {
	f, err := s.repo.GetByID(feedbackID)
	if err != nil {
		return internal.NewNotFoundError("feedback not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if actor.ID != f.FromUserID && !actor.IsHRAdmin() {
		return internal.NewForbiddenError("only the author or an HR admin can delete feedback", internal.ErrCodeForbidden)
	}
	if err := s.repo.Delete(feedbackID); err != nil {
		return internal.NewInternalError("failed to delete feedback", err)
	}
	return nil
}

func (s *Service) AddTag(actor *identity.User, feedbackID int64, dto AddTagDTO) (*Tag, error) {
	f, err := s.repo.GetByID(feedbackID)
	if err != nil {
		return nil, internal.NewNotFoundError("feedback not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if err := s.checkView(actor, f); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	exists, err := s.repo.HasTag(feedbackID, dto.Tag)
	if err != nil {
		return nil, internal.NewInternalError("failed to check tag", err)
	}
	if exists {
		return nil, internal.NewConflictError("tag already exists on this feedback", internal.ErrCodeDuplicateTag)
	}

	t := &Tag{FeedbackID: feedbackID, Tag: dto.Tag, CreatedBy: actor.ID}
	if err := s.repo.AddTag(t); err != nil {
		return nil, internal.NewInternalError("failed to add tag", err)
	}
	return t, nil
}

func (s *Service) RemoveTag(actor *identity.User, feedbackID int64, tag string) error {
	f, err := s.repo.GetByID(feedbackID)
	if err != nil {
		return internal.NewNotFoundError("feedback not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if err := s.checkView(actor, f); err != nil {
		return err
	}

	exists, err := s.repo.HasTag(feedbackID, tag)
	if err != nil {
		return internal.NewInternalError("failed to check tag", err)
	}
	if !exists {
		return internal.NewNotFoundError("tag not found on this feedback", internal.ErrCodeNotFound)
	}
	if err := s.repo.RemoveTag(feedbackID, tag); err != nil {
		return internal.NewInternalError("failed to remove tag", err)
	}
	return nil
}

func (s *Service) AddComment(actor *identity.User, feedbackID int64, dto AddCommentDTO) (*Comment, error) {
	f, err := s.repo.GetByID(feedbackID)
	if err != nil {
		return nil, internal.NewNotFoundError("feedback not found", internal.ErrCodeNotFound).WithCause(err)
	}
	if err := s.checkView(actor, f); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	c := &Comment{FeedbackID: feedbackID, UserID: actor.ID, Content: dto.Content}
	if err := s.repo.AddComment(c); err != nil {
		return nil, internal.NewInternalError("failed to add comment", err)
	}
	return c, nil
}

// checkView applies the visibility field on top of the role scoping. Parties
// and HR admins always see their feedback; beyond that, private is sealed,
// manager_only admits the recipient's manager, and public follows the normal
// manager department scope.
func (s *Service) checkView(actor *identity.User, f *Feedback) error {
	if actor.IsHRAdmin() || f.IsParty(actor.ID) {
		return nil
	}

	switch f.Visibility {
	case VisibilityPrivate:
		return s.denied()
	case VisibilityManagerOnly:
		recipient, err := s.dir.UserByID(f.ToUserID)
		if err != nil {
			return internal.NewInternalError("failed to resolve recipient", err)
		}
		if recipient.ManagerID != nil && *recipient.ManagerID == actor.ID {
			return nil
		}
		return s.denied()
	default:
		if !actor.IsManager() {
			return s.denied()
		}
		recipient, err := s.dir.UserByID(f.ToUserID)
		if err != nil {
			return internal.NewInternalError("failed to resolve recipient", err)
		}
		if recipient.DepartmentID == actor.DepartmentID {
			return nil
		}
		if recipient.ManagerID != nil && *recipient.ManagerID == actor.ID {
			return nil
		}
		return s.denied()
	}
}

func (s *Service) denied() error {
	return internal.NewForbiddenError("not allowed to view this feedback", internal.ErrCodeForbidden)
}

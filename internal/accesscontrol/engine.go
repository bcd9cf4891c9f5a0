package accesscontrol

import (
	"fmt"
	"log/slog"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/identity"
)

// Kind tags the entity a capability check applies to. Scope narrowing is done
// with explicit per-entity query scopes in each domain's postgres package; the
// kind here exists so denials can name what was denied.
type Kind string

const (
	KindObjective      Kind = "objective"
	KindGoal           Kind = "goal"
	KindTask           Kind = "task"
	KindFeedback       Kind = "feedback"
	KindReviewCycle    Kind = "review_cycle"
	KindSelfAssessment Kind = "self_assessment"
	KindPeerReview     Kind = "peer_review"
	KindManagerReview  Kind = "manager_review"
	KindUpwardReview   Kind = "upward_review"
	KindReviewMeeting  Kind = "review_meeting"
)

// Resource describes the access-relevant attributes of a domain entity.
// Parties lists every named participant: assignee, feedback giver and
// receiver, reviewer, reviewee, employee.
type Resource struct {
	Kind          Kind
	OwnerID       int64
	CreatorID     int64
	Parties       []int64
	DepartmentIDs []int64
}

func (r Resource) isParty(userID int64) bool {
	if r.OwnerID == userID || r.CreatorID == userID {
		return true
	}
	for _, p := range r.Parties {
		if p == userID {
			return true
		}
	}
	return false
}

// Directory provides the hierarchy lookups the engine needs.
type Directory interface {
	UserByID(id int64) (*identity.User, error)
	IsDirectReport(managerID, userID int64) (bool, error)
}

// Engine is the single decision procedure for "can actor X perform action A on
// resource R". Every domain service routes its checks through here; endpoints
// never re-implement role logic.
type Engine struct {
	dir    Directory
	logger *slog.Logger
}

func NewEngine(dir Directory, logger *slog.Logger) *Engine {
	return &Engine{dir: dir, logger: logger}
}

// CanView reports whether the actor may read the resource.
//
// hr_admin: unrestricted. manager: own resources, resources of direct
// reports, and resources touching their department. individual contributor:
// only resources where the actor is a named party.
func (e *Engine) CanView(actor *identity.User, res Resource) error {
	if actor.IsHRAdmin() {
		return nil
	}
	if res.isParty(actor.ID) {
		return nil
	}

	if actor.IsManager() {
		for _, depID := range res.DepartmentIDs {
			if depID == actor.DepartmentID {
				return nil
			}
		}
		for _, party := range res.Parties {
			related, err := e.relatedToManager(actor, party)
			if err != nil {
				return internal.NewInternalError("failed to resolve reporting relationship", err)
			}
			if related {
				return nil
			}
		}
	}

	return e.deny(actor, "view", res)
}

// CanMutate reports whether the actor may write the resource. Write access is
// narrower than read: only HR admins, the creator, or the owner qualify.
// Domain services layer entity-specific rules (creator-only updates,
// field restrictions) on top.
func (e *Engine) CanMutate(actor *identity.User, res Resource) error {
	if actor.IsHRAdmin() {
		return nil
	}
	if res.OwnerID == actor.ID || res.CreatorID == actor.ID {
		return nil
	}
	return e.deny(actor, "modify", res)
}

// RequireSelf rejects requests that name a different user_id than the actor.
// Individual contributors cannot act on behalf of anyone else.
func RequireSelf(actor *identity.User, userID int64) error {
	if actor.IsHRAdmin() || userID == actor.ID {
		return nil
	}
	return internal.NewForbiddenError(
		fmt.Sprintf("cannot act on behalf of user %d", userID),
		internal.ErrCodeForbidden,
	)
}

// relatedToManager is true when the given user is a direct report of the
// manager or sits in the manager's department.
func (e *Engine) relatedToManager(manager *identity.User, userID int64) (bool, error) {
	isReport, err := e.dir.IsDirectReport(manager.ID, userID)
	if err != nil {
		return false, err
	}
	if isReport {
		return true, nil
	}

	u, err := e.dir.UserByID(userID)
	if err != nil {
		return false, err
	}
	return u.DepartmentID == manager.DepartmentID, nil
}

func (e *Engine) deny(actor *identity.User, action string, res Resource) error {
	e.logger.Warn("access denied",
		"actor_id", actor.ID,
		"role", actor.Role,
		"action", action,
		"resource_kind", res.Kind)
	return internal.NewForbiddenError(
		fmt.Sprintf("not allowed to %s this %s", action, res.Kind),
		internal.ErrCodeForbidden,
	)
}

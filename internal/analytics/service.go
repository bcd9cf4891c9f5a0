package analytics

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/identity"
)

// Service recomputes every report from current rows; nothing is cached or
// maintained incrementally. It reads through sqlx directly because every
// query is an aggregate that would fight gorm's model mapping.
type Service struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewService(db *sqlx.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// filter accumulates WHERE clauses with ?-style placeholders; queries are
// rebound for the active driver before execution.
type filter struct {
	clauses []string
	args    []interface{}
}

func (f *filter) add(clause string, args ...interface{}) {
	f.clauses = append(f.clauses, clause)
	f.args = append(f.args, args...)
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

func (f *filter) and() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " AND " + strings.Join(f.clauses, " AND ")
}

func (f *filter) dateRange(column string, p *Params) {
	if p.StartDate != nil {
		f.add(column+" >= ?", *p.StartDate)
	}
	if p.EndDate != nil {
		f.add(column+" <= ?", *p.EndDate)
	}
}

// userScope narrows a user-id column to the requested user or department.
func (f *filter) userScope(column string, p *Params) {
	switch {
	case p.UserID != nil:
		f.add(column+" = ?", *p.UserID)
	case p.DepartmentID != nil:
		f.add(column+" IN (SELECT id FROM users WHERE department_id = ?)", *p.DepartmentID)
	case p.DepartmentName != "":
		f.add(column+" IN (SELECT id FROM users WHERE department_id IN (SELECT id FROM departments WHERE name = ?))", p.DepartmentName)
	}
}

func (s *Service) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return s.db.GetContext(ctx, dest, s.db.Rebind(query), args...)
}

func (s *Service) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return s.db.SelectContext(ctx, dest, s.db.Rebind(query), args...)
}

// OKRProgress is open to every role; the scope override already restricted
// individual contributors to themselves.
func (s *Service) OKRProgress(ctx context.Context, actor *identity.User, p *Params) (*OKRProgressReport, error) {
	p.ApplyRoleScope(actor)
	report := &OKRProgressReport{GoalsByStatus: make(map[string]int64)}

	objectives := &filter{}
	objectives.dateRange("created_at", p)
	switch {
	case p.UserID != nil:
		objectives.add("(owner_id = ? OR id IN (SELECT objective_id FROM goals WHERE assigned_to = ?))",
			*p.UserID, *p.UserID)
	case p.DepartmentID != nil:
		objectives.add("id IN (SELECT objective_id FROM objective_departments WHERE department_id = ?)", *p.DepartmentID)
	case p.DepartmentName != "":
		objectives.add("id IN (SELECT objective_id FROM objective_departments WHERE department_id IN (SELECT id FROM departments WHERE name = ?))", p.DepartmentName)
	}

	var objAgg struct {
		Count int64   `db:"count"`
		Avg   float64 `db:"avg"`
	}
	err := s.get(ctx, &objAgg,
		"SELECT COUNT(*) AS count, COALESCE(AVG(progress_percentage), 0) AS avg FROM objectives"+objectives.where(),
		objectives.args...)
	if err != nil {
		return nil, internal.NewInternalError("failed to aggregate objectives", err)
	}
	report.TotalObjectives = objAgg.Count
	report.AverageObjectiveProgress = objAgg.Avg

	goals := &filter{}
	goals.dateRange("created_at", p)
	goals.userScope("assigned_to", p)
	var goalRows []struct {
		Status string `db:"status"`
		Count  int64  `db:"count"`
	}
	err = s.selectAll(ctx, &goalRows,
		"SELECT status, COUNT(*) AS count FROM goals"+goals.where()+" GROUP BY status",
		goals.args...)
	if err != nil {
		return nil, internal.NewInternalError("failed to aggregate goals", err)
	}
	for _, row := range goalRows {
		report.GoalsByStatus[row.Status] = row.Count
	}

	tasks := &filter{}
	tasks.dateRange("created_at", p)
	tasks.userScope("assigned_to", p)
	var taskAgg struct {
		Total int64 `db:"total"`
		Done  int64 `db:"done"`
	}
	err = s.get(ctx, &taskAgg,
		"SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) AS done FROM individual_tasks"+tasks.where(),
		tasks.args...)
	if err != nil {
		return nil, internal.NewInternalError("failed to aggregate tasks", err)
	}
	report.TasksTotal = taskAgg.Total
	report.TasksCompleted = taskAgg.Done
	if taskAgg.Total > 0 {
		report.TaskCompletionRate = float64(taskAgg.Done) / float64(taskAgg.Total) * 100
	}
	return report, nil
}

func (s *Service) FeedbackEngagement(ctx context.Context, actor *identity.User, p *Params) (*FeedbackEngagementReport, error) {
	p.ApplyRoleScope(actor)
	report := &FeedbackEngagementReport{
		ByType:   make(map[string]int64),
		Interval: p.Interval,
		Trend:    []TrendBucket{},
	}

	base := &filter{}
	base.dateRange("created_at", p)
	switch {
	case p.UserID != nil:
		base.add("(from_user_id = ? OR to_user_id = ?)", *p.UserID, *p.UserID)
	case p.DepartmentID != nil:
		base.add("to_user_id IN (SELECT id FROM users WHERE department_id = ?)", *p.DepartmentID)
	case p.DepartmentName != "":
		base.add("to_user_id IN (SELECT id FROM users WHERE department_id IN (SELECT id FROM departments WHERE name = ?))", p.DepartmentName)
	}

	var typeRows []struct {
		Type  string `db:"feedback_type"`
		Count int64  `db:"count"`
	}
	err := s.selectAll(ctx, &typeRows,
		"SELECT feedback_type, COUNT(*) AS count FROM feedback"+base.where()+" GROUP BY feedback_type",
		base.args...)
	if err != nil {
		return nil, internal.NewInternalError("failed to aggregate feedback", err)
	}
	for _, row := range typeRows {
		report.ByType[row.Type] = row.Count
		report.Total += row.Count
	}

	if p.UserID != nil {
		directional := &filter{}
		directional.dateRange("created_at", p)
		var counts struct {
			Given    int64 `db:"given"`
			Received int64 `db:"received"`
		}
		err = s.get(ctx, &counts,
			"SELECT COALESCE(SUM(CASE WHEN from_user_id = ? THEN 1 ELSE 0 END), 0) AS given, "+
				"COALESCE(SUM(CASE WHEN to_user_id = ? THEN 1 ELSE 0 END), 0) AS received FROM feedback"+directional.where(),
			append([]interface{}{*p.UserID, *p.UserID}, directional.args...)...)
		if err != nil {
			return nil, internal.NewInternalError("failed to aggregate feedback direction", err)
		}
		report.Given = counts.Given
		report.Received = counts.Received
	}

	var createdAt []time.Time
	err = s.selectAll(ctx, &createdAt,
		"SELECT created_at FROM feedback"+base.where(), base.args...)
	if err != nil {
		return nil, internal.NewInternalError("failed to load feedback trend", err)
	}
	report.Trend = BucketTrend(createdAt, p.Interval)
	return report, nil
}

// ReviewParticipation reports per-cycle submission counts. Individual
// contributors have no access to aggregate participation data.
func (s *Service) ReviewParticipation(ctx context.Context, actor *identity.User, p *Params) (*ReviewParticipationReport, error) {
	if actor.IsIndividualContributor() {
		return nil, internal.NewForbiddenError("not allowed to view participation analytics", internal.ErrCodeForbidden)
	}
	p.ApplyRoleScope(actor)

	cycles, err := s.visibleCycles(ctx, p)
	if err != nil {
		return nil, err
	}

	report := &ReviewParticipationReport{Cycles: []CycleParticipation{}}
	for _, c := range cycles {
		row := CycleParticipation{CycleID: c.ID, Name: c.Name, Status: c.Status}
		if row.Participants, err = s.scopedCount(ctx, "review_participants", "user_id", "is_active = ?", c.ID, p, true); err != nil {
			return nil, err
		}
		if row.SelfTotal, err = s.scopedCount(ctx, "self_assessments", "user_id", "", c.ID, p); err != nil {
			return nil, err
		}
		if row.SelfSubmitted, err = s.scopedCount(ctx, "self_assessments", "user_id", "status = ?", c.ID, p, "completed"); err != nil {
			return nil, err
		}
		if row.PeerTotal, err = s.scopedCount(ctx, "peer_reviews", "reviewer_id", "", c.ID, p); err != nil {
			return nil, err
		}
		if row.PeerCompleted, err = s.scopedCount(ctx, "peer_reviews", "reviewer_id", "status = ?", c.ID, p, "completed"); err != nil {
			return nil, err
		}
		if row.ManagerTotal, err = s.scopedCount(ctx, "manager_reviews", "employee_id", "", c.ID, p); err != nil {
			return nil, err
		}
		if row.ManagerCompleted, err = s.scopedCount(ctx, "manager_reviews", "employee_id", "status = ?", c.ID, p, "completed"); err != nil {
			return nil, err
		}

		total := row.SelfTotal + row.PeerTotal + row.ManagerTotal
		done := row.SelfSubmitted + row.PeerCompleted + row.ManagerCompleted
		if total > 0 {
			row.Rate = float64(done) / float64(total) * 100
		}
		report.Cycles = append(report.Cycles, row)
	}
	return report, nil
}

// Sentiment maps feedback types onto a sentiment distribution: praise is
// positive, concern negative, suggestion neutral.
func (s *Service) Sentiment(ctx context.Context, actor *identity.User, p *Params) (*SentimentReport, error) {
	if actor.IsIndividualContributor() {
		return nil, internal.NewForbiddenError("not allowed to view sentiment analytics", internal.ErrCodeForbidden)
	}
	p.ApplyRoleScope(actor)

	base := &filter{}
	base.dateRange("created_at", p)
	base.userScope("to_user_id", p)

	var rows []struct {
		Type  string `db:"feedback_type"`
		Count int64  `db:"count"`
	}
	err := s.selectAll(ctx, &rows,
		"SELECT feedback_type, COUNT(*) AS count FROM feedback"+base.where()+" GROUP BY feedback_type",
		base.args...)
	if err != nil {
		return nil, internal.NewInternalError("failed to aggregate sentiment", err)
	}

	report := &SentimentReport{}
	for _, row := range rows {
		report.Total += row.Count
		switch row.Type {
		case "praise":
			report.Positive += row.Count
		case "concern":
			report.Negative += row.Count
		default:
			report.Neutral += row.Count
		}
	}
	if report.Total > 0 {
		report.Score = float64(report.Positive-report.Negative) / float64(report.Total)
	}
	return report, nil
}

func (s *Service) CycleCompletion(ctx context.Context, actor *identity.User, p *Params) (*CycleCompletionReport, error) {
	if actor.IsIndividualContributor() {
		return nil, internal.NewForbiddenError("not allowed to view cycle completion analytics", internal.ErrCodeForbidden)
	}
	p.ApplyRoleScope(actor)

	cycles, err := s.visibleCycles(ctx, p)
	if err != nil {
		return nil, err
	}

	report := &CycleCompletionReport{Cycles: []CycleCompletion{}}
	for _, c := range cycles {
		var done, total int64
		for _, spec := range []struct {
			table, column string
		}{
			{"self_assessments", "user_id"},
			{"peer_reviews", "reviewer_id"},
			{"manager_reviews", "employee_id"},
		} {
			t, err := s.scopedCount(ctx, spec.table, spec.column, "", c.ID, p)
			if err != nil {
				return nil, err
			}
			d, err := s.scopedCount(ctx, spec.table, spec.column, "status = ?", c.ID, p, "completed")
			if err != nil {
				return nil, err
			}
			total += t
			done += d
		}

		row := CycleCompletion{CycleID: c.ID, Name: c.Name, Status: c.Status}
		if total > 0 {
			row.CompletionPercentage = float64(done) / float64(total) * 100
		}
		report.Cycles = append(report.Cycles, row)
	}
	return report, nil
}

type cycleRow struct {
	ID     int64  `db:"id"`
	Name   string `db:"name"`
	Status string `db:"status"`
}

// visibleCycles lists non-draft cycles in the requested date range.
func (s *Service) visibleCycles(ctx context.Context, p *Params) ([]cycleRow, error) {
	f := &filter{}
	f.add("status <> ?", "draft")
	f.dateRange("created_at", p)

	var cycles []cycleRow
	err := s.selectAll(ctx, &cycles,
		"SELECT id, name, status FROM review_cycles"+f.where()+" ORDER BY id ASC", f.args...)
	if err != nil {
		return nil, internal.NewInternalError("failed to list review cycles", err)
	}
	return cycles, nil
}

// scopedCount counts rows for one cycle, narrowed by the user/department
// scope on the given user-id column plus an optional extra condition.
func (s *Service) scopedCount(ctx context.Context, table, userColumn, extra string, cycleID int64, p *Params, extraArgs ...interface{}) (int64, error) {
	f := &filter{}
	f.add("cycle_id = ?", cycleID)
	if extra != "" {
		f.add(extra, extraArgs...)
	}
	f.userScope(userColumn, p)

	var count int64
	err := s.get(ctx, &count, "SELECT COUNT(*) FROM "+table+f.where(), f.args...)
	if err != nil {
		return 0, internal.NewInternalError("failed to count "+table, err)
	}
	return count, nil
}

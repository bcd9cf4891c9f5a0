package analytics

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/talenthub/performance-management/internal/identity"
)

const dateLayout = "2006-01-02"

// Params are the query parameters shared by every analytics endpoint.
// Department can arrive as a name from the query string or as an id when the
// role override fills it in from the actor.
type Params struct {
	StartDate      *time.Time
	EndDate        *time.Time
	DepartmentName string
	DepartmentID   *int64
	UserID         *int64
	Interval       string
}

// ParseParams reads the shared query parameters. Malformed dates and a
// non-integer user_id are reported as errors; the handler surfaces them
// through the uniform analytics error envelope.
func ParseParams(q url.Values) (*Params, error) {
	p := &Params{
		DepartmentName: q.Get("department"),
		Interval:       IntervalWeekly,
	}

	if raw := q.Get("start_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", raw)
		}
		p.StartDate = &t
	}
	if raw := q.Get("end_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", raw)
		}
		// End dates are inclusive, so the filter runs to the end of the day.
		end := t.Add(24*time.Hour - time.Nanosecond)
		p.EndDate = &end
	}
	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user_id %q: expected an integer", raw)
		}
		p.UserID = &id
	}
	if raw := q.Get("interval"); raw != "" {
		switch raw {
		case IntervalWeekly, IntervalMonthly:
			p.Interval = raw
		default:
			return nil, fmt.Errorf("invalid interval %q: expected weekly or monthly", raw)
		}
	}
	return p, nil
}

// ApplyRoleScope enforces the parameter override rules. Individual
// contributors are always pinned to themselves with any department filter
// cleared; managers default to their own department when none was given.
func (p *Params) ApplyRoleScope(actor *identity.User) {
	switch {
	case actor.IsIndividualContributor():
		id := actor.ID
		p.UserID = &id
		p.DepartmentName = ""
		p.DepartmentID = nil
	case actor.IsManager():
		if p.DepartmentName == "" && p.DepartmentID == nil {
			dep := actor.DepartmentID
			p.DepartmentID = &dep
		}
	}
}

package draftgen

import "errors"

// Draft categories the generator understands.
const (
	CategoryStrengths          = "strengths"
	CategoryAreasToImprove     = "areas_for_improvement"
	CategoryAchievements       = "achievements"
	CategoryOverallPerformance = "overall_performance"
)

// Draft sources reported in the response.
const (
	SourceGenerated = "generated"
	SourceFallback  = "fallback"
)

func ValidCategory(c string) bool {
	switch c {
	case CategoryStrengths, CategoryAreasToImprove, CategoryAchievements, CategoryOverallPerformance:
		return true
	}
	return false
}

// ContextBundle is the read-only snapshot handed to the text service. Missing
// pieces stay nil; the generator works with whatever is available.
type ContextBundle struct {
	EmployeeName   string             `json:"employee_name"`
	EmployeeRole   string             `json:"employee_role"`
	SelfRatings    map[string]int     `json:"self_ratings,omitempty"`
	SelfComments   string             `json:"self_comments,omitempty"`
	PeerAverages   map[string]float64 `json:"peer_averages,omitempty"`
	PeerComments   []string           `json:"peer_comments,omitempty"`
	ManagerSummary string             `json:"manager_summary,omitempty"`
	RecentFeedback []string           `json:"recent_feedback,omitempty"`
}

var ErrEmptyDraft = errors.New("text service returned empty content")

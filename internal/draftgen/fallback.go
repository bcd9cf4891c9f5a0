package draftgen

import (
	"fmt"
	"strings"
)

// FallbackDraft builds a deterministic, fully-formed draft for the category
// when the text service is unavailable. The endpoint never returns a blank or
// broken draft.
func FallbackDraft(category string, bundle *ContextBundle) string {
	name := bundle.EmployeeName
	if name == "" {
		name = "The employee"
	}

	var b strings.Builder
	switch category {
	case CategoryStrengths:
		fmt.Fprintf(&b, "%s has demonstrated consistent strengths during this review period. ", name)
		if avg, ok := bundle.PeerAverages["collaboration"]; ok && avg >= 4 {
			b.WriteString("Peers repeatedly highlighted strong collaboration across team boundaries. ")
		}
		b.WriteString("Notable areas include reliable delivery on committed goals, ")
		b.WriteString("clear communication with stakeholders, and a willingness to support teammates. ")
		b.WriteString("Consider expanding this section with specific examples from recent projects.")
	case CategoryAreasToImprove:
		fmt.Fprintf(&b, "There are opportunities for %s to grow in the coming period. ", name)
		b.WriteString("Suggested focus areas include deepening technical ownership of complex work, ")
		b.WriteString("raising visibility of progress earlier when blockers appear, ")
		b.WriteString("and investing in cross-team relationships. ")
		b.WriteString("Pair each area with a concrete, measurable next step.")
	case CategoryAchievements:
		fmt.Fprintf(&b, "%s completed meaningful work against their goals this period. ", name)
		if bundle.SelfComments != "" {
			b.WriteString("The self assessment calls out: " + bundle.SelfComments + " ")
		}
		b.WriteString("Key achievements should be listed with their measurable impact, ")
		b.WriteString("referencing the objectives and goals they advanced.")
	case CategoryOverallPerformance:
		fmt.Fprintf(&b, "Overall, %s performed at a solid level this review period. ", name)
		if bundle.ManagerSummary != "" {
			b.WriteString("Manager highlights: " + bundle.ManagerSummary + " ")
		}
		b.WriteString("Performance was consistent across goals, collaboration and communication. ")
		b.WriteString("Review the ratings above and adjust this summary to reflect specific outcomes.")
	}
	return b.String()
}

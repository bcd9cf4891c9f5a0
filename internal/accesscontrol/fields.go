package accesscontrol

import (
	"fmt"
	"sort"
	"strings"

	"github.com/talenthub/performance-management/internal"
)

// CheckAllowedFields rejects an update payload as a whole when it contains any
// field outside the allowed set. The caller lists the names of fields actually
// present in the payload; nothing is silently dropped.
func CheckAllowedFields(provided []string, allowed ...string) error {
	allowedSet := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		allowedSet[f] = true
	}

	var rejected []string
	for _, f := range provided {
		if !allowedSet[f] {
			rejected = append(rejected, f)
		}
	}
	if len(rejected) == 0 {
		return nil
	}

	sort.Strings(rejected)
	return internal.NewForbiddenError(
		fmt.Sprintf("fields not allowed for this role: %s", strings.Join(rejected, ", ")),
		internal.ErrCodeFieldNotAllowed,
	)
}

package identity

// maxHierarchyDepth bounds the reporting-chain traversal. Org charts deeper
// than this indicate corrupt data rather than a real structure.
const maxHierarchyDepth = 10

// SubordinateIDs collects every transitive report of the given manager using a
// work-list traversal. A user appearing twice means the manager links form a
// cycle, which is rejected outright.
func (s *Service) SubordinateIDs(managerID int64) ([]int64, error) {
	visited := map[int64]bool{managerID: true}
	queue := []int64{managerID}
	var result []int64

	for depth := 0; depth < maxHierarchyDepth && len(queue) > 0; depth++ {
		var next []int64
		for _, id := range queue {
			reportIDs, err := s.repo.DirectReportIDs(id)
			if err != nil {
				return nil, err
			}
			for _, rid := range reportIDs {
				if visited[rid] {
					return nil, ErrHierarchyCycle
				}
				visited[rid] = true
				result = append(result, rid)
				next = append(next, rid)
			}
		}
		queue = next
	}

	return result, nil
}

// validateManagerLink enforces the hierarchy invariants before a manager
// assignment is persisted: the manager must exist, be in the same department,
// and the link must not make the user their own (transitive) manager.
func (s *Service) validateManagerLink(userID int64, departmentID int64, managerID int64) error {
	manager, err := s.repo.GetByID(managerID)
	if err != nil {
		return ErrNotFound
	}
	if manager.DepartmentID != departmentID {
		return errManagerDepartmentMismatch
	}

	// Walk up from the proposed manager; hitting the user means the
	// assignment would close a reporting loop.
	visited := map[int64]bool{}
	current := manager
	for depth := 0; depth < maxHierarchyDepth; depth++ {
		if current.ID == userID {
			return ErrHierarchyCycle
		}
		if current.ManagerID == nil {
			return nil
		}
		if visited[current.ID] {
			return ErrHierarchyCycle
		}
		visited[current.ID] = true

		parent, err := s.repo.GetByID(*current.ManagerID)
		if err != nil {
			return err
		}
		current = parent
	}

	return nil
}

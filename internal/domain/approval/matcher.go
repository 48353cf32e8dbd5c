package approval

import "sort"

// SelectRule picks the single rule governing a claim. Active non-default
// rules are evaluated in ascending priority; ties break on rule ID so that
// selection is deterministic regardless of input order. If no non-default
// rule matches, the active default rule is returned. With neither,
// ErrNoApplicableRule is returned.
//
// Pure selection: no side effects.
func SelectRule(attrs ClaimAttributes, rules []*Rule) (*Rule, error) {
	candidates := make([]*Rule, 0, len(rules))
	var fallback *Rule

	for _, r := range rules {
		if !r.IsActive {
			continue
		}
		if r.IsDefault {
			if fallback == nil {
				fallback = r
			}
			continue
		}
		candidates = append(candidates, r)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	for _, r := range candidates {
		if r.MatchesClaim(attrs) {
			return r, nil
		}
	}

	if fallback != nil {
		return fallback, nil
	}

	return nil, ErrNoApplicableRule
}

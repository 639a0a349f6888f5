package tracker

import (
	"context"
	"strings"

	"wardtrack/server/internal/model"
)

const defaultSearchLimit = 50

// SearchQuery carries the optional search filters. IsPresent is a tri-state:
// nil means "don't filter on presence".
type SearchQuery struct {
	Query     string
	Type      string
	IsPresent *bool
	Limit     int
}

// SearchTags filters the roster by free text (name or MAC substring,
// case-insensitive) and tag type, then computes status for at most Limit
// survivors. The limit bounds status computation, not the final count, so a
// presence filter can shrink the result below it. A status failure for one
// tag is logged and that tag skipped.
func (s *Service) SearchTags(ctx context.Context, q SearchQuery) model.SearchResult {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	filtered := s.registry.All()

	if q.Query != "" {
		needle := strings.ToLower(q.Query)
		kept := filtered[:0]
		for _, tag := range filtered {
			if strings.Contains(strings.ToLower(tag.Name), needle) ||
				strings.Contains(strings.ToLower(tag.MAC), needle) {
				kept = append(kept, tag)
			}
		}
		filtered = kept
	}

	if q.Type != "" {
		kept := filtered[:0]
		for _, tag := range filtered {
			if strings.EqualFold(tag.Type, q.Type) {
				kept = append(kept, tag)
			}
		}
		filtered = kept
	}

	statuses := []model.TagStatus{}
	for i, tag := range filtered {
		if i >= limit {
			break
		}
		status, err := s.statusFor(ctx, tag)
		if err != nil {
			s.logger.Warn("tag search status failed", "tag", tag.Name, "error", err)
			continue
		}
		if q.IsPresent != nil && status.IsPresent != *q.IsPresent {
			continue
		}
		statuses = append(statuses, status)
	}

	return model.SearchResult{
		TotalFound: len(filtered),
		Returned:   len(statuses),
		Tags:       statuses,
	}
}

package state

import (
	"slices"

	"github.com/papercomputeco/vera/pkg/section"
)

// Reduce folds a into s and returns the resulting snapshot. It is pure: s is
// never modified. Unknown actions return s itself.
func Reduce(s *State, a Action) *State {
	if s == nil {
		s = Initial()
	}

	switch a := a.(type) {
	case Start:
		next := Initial()
		next.IsStreaming = true
		return next

	case AppendMarkdown:
		if a.Text == "" {
			return s
		}
		res := section.Extract(s.Markdown + a.Text)
		next := s.clone()
		next.Markdown = res.Cleaned
		if len(res.Extracted) > 0 {
			next.Sections = mergeSections(s.Sections, res.Extracted)
		}
		return next

	case UpsertSection:
		next := s.clone()
		next.Sections = mergeSections(s.Sections, []section.Section{a.Section})
		return next

	case SetSteps:
		next := s.clone()
		steps := slices.Clone(a.Steps)
		if steps == nil {
			steps = []string{}
		}
		next.Search = Search{Steps: steps, Progress: s.Search.Progress}
		return next

	case SetProgress:
		next := s.clone()
		var progress *float64
		if a.Value != nil {
			progress = Progress(*a.Value)
		}
		next.Search = Search{Steps: s.Search.Steps, Progress: progress}
		return next

	case Fail:
		next := s.clone()
		next.Error = a.Message
		next.IsStreaming = false
		return next

	case Done:
		next := s.clone()
		next.IsStreaming = false
		return next

	default:
		return s
	}
}

// mergeSections returns a new slice holding existing with every incoming
// section applied by ID: replaced in place when present, appended otherwise.
func mergeSections(existing, incoming []section.Section) []section.Section {
	merged := slices.Clone(existing)
	if merged == nil {
		merged = make([]section.Section, 0, len(incoming))
	}

	for _, sec := range incoming {
		idx := slices.IndexFunc(merged, func(s section.Section) bool {
			return s.ID == sec.ID
		})
		if idx >= 0 {
			merged[idx] = sec
			continue
		}
		merged = append(merged, sec)
	}

	return merged
}

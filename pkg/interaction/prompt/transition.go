package prompt

import (
	"sort"
	"strconv"
)

// Outcome tells the engine what a transition asks of it.
type Outcome int

const (
	// OutcomeNoop acknowledges the click and writes nothing.
	OutcomeNoop Outcome = iota
	// OutcomeRender stores the new state and re-renders the message.
	OutcomeRender
	// OutcomeStop deletes the prompt and its linked action.
	OutcomeStop
	// OutcomeHandoff ends the prompt and passes Values to the linked action.
	OutcomeHandoff
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoop:
		return "noop"
	case OutcomeRender:
		return "render"
	case OutcomeStop:
		return "stop"
	case OutcomeHandoff:
		return "handoff"
	default:
		return "unknown"
	}
}

// Result is what Apply produced besides the next state.
type Result struct {
	Outcome Outcome
	Values  []string
}

// Apply computes the next state for an action. It never mutates s and performs no I/O.
// values are the component values of the click: global option indices for query and select
// prompts, flag names for the filter editor and a group index for set page.
func Apply(s State, action Action, values []string) (State, Result) {
	noop := Result{Outcome: OutcomeNoop}
	pages := s.PageCount()

	switch action {
	case ActionStop:
		return s, Result{Outcome: OutcomeStop}
	case ActionPrevious:
		if s.Page <= 0 {
			return s, noop
		}
		return withPage(s, s.Page-1), Result{Outcome: OutcomeRender}
	case ActionNext:
		if s.Page >= pages-1 {
			return s, noop
		}
		return withPage(s, s.Page+1), Result{Outcome: OutcomeRender}
	case ActionSetPage:
		if s.Flavor != FlavorFilter || len(values) == 0 {
			return s, noop
		}
		target, err := strconv.Atoi(values[0])
		if err != nil || target < 0 || target >= pages || target == s.Page {
			return s, noop
		}
		return withPage(s, target), Result{Outcome: OutcomeRender}
	case ActionSelect:
		return applySelect(s, values)
	case ActionDone:
		return applyDone(s)
	default:
		return s, noop
	}
}

func withPage(s State, page int) State {
	s.Page = page
	return s
}

func applySelect(s State, values []string) (State, Result) {
	noop := Result{Outcome: OutcomeNoop}
	switch body := s.Body.(type) {
	case QueryBody:
		if len(values) != 1 {
			return s, noop
		}
		idx, ok := onPage(values[0], s.Page, len(body.Options))
		if !ok {
			return s, noop
		}
		return s, Result{Outcome: OutcomeHandoff, Values: []string{body.Options[idx].Value}}

	case SelectBody:
		local := make([]int, 0, len(values))
		for _, v := range values {
			idx, ok := onPage(v, s.Page, len(body.Options))
			if !ok {
				continue
			}
			local = appendUnique(local, idx-s.Page*PageSize)
		}
		sort.Ints(local)
		selected := make([][]int, len(body.Selected))
		copy(selected, body.Selected)
		for len(selected) <= s.Page {
			selected = append(selected, []int{})
		}
		selected[s.Page] = local
		body.Selected = selected
		s.Body = body
		return s, Result{Outcome: OutcomeRender}

	case FilterBody:
		if s.Page < 0 || s.Page >= len(body.Groups) {
			return s, noop
		}
		group := body.Groups[s.Page]
		inGroup := make(map[string]bool, len(group.Options))
		for _, o := range group.Options {
			inGroup[o.Value] = true
		}
		next := make([]string, 0, len(body.Selected)+len(values))
		for _, name := range body.Selected {
			if !inGroup[name] {
				next = append(next, name)
			}
		}
		for _, v := range values {
			if inGroup[v] {
				next = append(next, v)
			}
		}
		body.Selected = body.normalize(next)
		s.Body = body
		return s, Result{Outcome: OutcomeRender}
	}
	return s, noop
}

func applyDone(s State) (State, Result) {
	switch body := s.Body.(type) {
	case SelectBody:
		return s, Result{Outcome: OutcomeHandoff, Values: body.Flatten()}
	case FilterBody:
		return s, Result{Outcome: OutcomeHandoff, Values: append([]string{}, body.Selected...)}
	}
	return s, Result{Outcome: OutcomeNoop}
}

// Flatten returns the selected option values in page order, ascending within a page.
func (b SelectBody) Flatten() []string {
	out := []string{}
	for page, locals := range b.Selected {
		sorted := append([]int(nil), locals...)
		sort.Ints(sorted)
		for _, l := range sorted {
			idx := page*PageSize + l
			if l < 0 || l >= PageSize || idx >= len(b.Options) {
				continue
			}
			out = append(out, b.Options[idx].Value)
		}
	}
	return out
}

// onPage parses a global option index and checks it lies on page.
func onPage(raw string, page, total int) (int, bool) {
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	start, end := pageBounds(page, total)
	if idx < start || idx >= end {
		return 0, false
	}
	return idx, true
}

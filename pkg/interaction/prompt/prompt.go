// Package prompt implements the paged interactive messages: lists, single and multi select
// pickers, attachment viewers and the grouped filter editor.
//
// A prompt's state lives in the token store under "prompt:<messageID>" and every click is a
// pure transition of that state followed by a re-render with the same function used on
// creation.
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// PageSize is the number of options on one page; Discord select menus hold at most 25.
const PageSize = 25

var (
	ErrPromptExpired = errors.New("prompt expired")
	// ErrConflict means a concurrent callback changed the prompt first.
	ErrConflict = errors.New("prompt changed concurrently")
	// ErrNotOwner is returned when someone other than the prompt's user clicks it.
	ErrNotOwner = errors.New("prompt belongs to another user")
	ErrEmpty    = errors.New("prompt has nothing to show")
)

// Flavor selects the prompt variant. Values appear in custom ids.
type Flavor int

const (
	FlavorList Flavor = iota
	FlavorQuery
	FlavorSelect
	FlavorAttachment
	FlavorFilter
)

func (f Flavor) String() string {
	switch f {
	case FlavorList:
		return "list"
	case FlavorQuery:
		return "query"
	case FlavorSelect:
		return "select"
	case FlavorAttachment:
		return "attachment"
	case FlavorFilter:
		return "filter"
	default:
		return "unknown"
	}
}

// Action is a prompt transition. Values appear in custom ids.
type Action int

const (
	ActionPrevious Action = iota
	ActionNext
	ActionStop
	ActionSelect
	ActionDone
	ActionSetPage
)

func (a Action) String() string {
	switch a {
	case ActionPrevious:
		return "previous"
	case ActionNext:
		return "next"
	case ActionStop:
		return "stop"
	case ActionSelect:
		return "select"
	case ActionDone:
		return "done"
	case ActionSetPage:
		return "set_page"
	default:
		return "unknown"
	}
}

// Display is the presentation metadata shared by every flavor.
type Display struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
	Footer      string `json:"footer,omitempty"`
	Color       int    `json:"color,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Option is one selectable entry. Value is what a finished prompt hands off.
type Option struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
	Emoji       string `json:"emoji,omitempty"`
}

// Attachment is one page of an attachment viewer.
type Attachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType,omitempty"`
	Bytes    int64  `json:"bytes,omitempty"`
}

// IsImage reports whether the attachment can be previewed in an embed.
func (a Attachment) IsImage() bool {
	return len(a.MimeType) > 6 && a.MimeType[:6] == "image/"
}

// Group is one page of the filter editor.
type Group struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Options []Option `json:"options"`
}

// Body is the flavor-specific part of a State.
type Body interface {
	Flavor() Flavor
	PageCount() int
}

type ListBody struct {
	Pages []string `json:"pages"`
}

type QueryBody struct {
	Options []Option `json:"options"`
}

type SelectBody struct {
	Options []Option `json:"options"`
	// Selected holds page-local indices per page.
	Selected [][]int `json:"selected"`
}

type AttachmentBody struct {
	Items []Attachment `json:"items"`
}

type FilterBody struct {
	Groups   []Group  `json:"groups"`
	Selected []string `json:"selected"`
}

func (ListBody) Flavor() Flavor       { return FlavorList }
func (QueryBody) Flavor() Flavor      { return FlavorQuery }
func (SelectBody) Flavor() Flavor     { return FlavorSelect }
func (AttachmentBody) Flavor() Flavor { return FlavorAttachment }
func (FilterBody) Flavor() Flavor     { return FlavorFilter }

func (b ListBody) PageCount() int       { return len(b.Pages) }
func (b QueryBody) PageCount() int      { return optionPages(len(b.Options)) }
func (b SelectBody) PageCount() int     { return optionPages(len(b.Options)) }
func (b AttachmentBody) PageCount() int { return len(b.Items) }
func (b FilterBody) PageCount() int     { return len(b.Groups) }

func optionPages(n int) int {
	return (n + PageSize - 1) / PageSize
}

// pageBounds returns the [start, end) option range of page.
func pageBounds(page, total int) (int, int) {
	start := page * PageSize
	end := start + PageSize
	if end > total {
		end = total
	}
	return start, end
}

// State is the stored record of one prompt message.
type State struct {
	Flavor    Flavor  `json:"flavor"`
	Version   int64   `json:"version"`
	Page      int     `json:"page"`
	ActionID  string  `json:"action,omitempty"`
	UserID    string  `json:"user"`
	Ephemeral bool    `json:"ephemeral,omitempty"`
	Display   Display `json:"display"`
	Body      Body    `json:"-"`
}

// PageCount is the number of pages of the body.
func (s State) PageCount() int {
	if s.Body == nil {
		return 0
	}
	return s.Body.PageCount()
}

type stateJSON struct {
	Flavor    Flavor          `json:"flavor"`
	Version   int64           `json:"version"`
	Page      int             `json:"page"`
	ActionID  string          `json:"action,omitempty"`
	UserID    string          `json:"user"`
	Ephemeral bool            `json:"ephemeral,omitempty"`
	Display   Display         `json:"display"`
	Body      json.RawMessage `json:"body"`
}

func (s State) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(s.Body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(stateJSON{
		Flavor:    s.Flavor,
		Version:   s.Version,
		Page:      s.Page,
		ActionID:  s.ActionID,
		UserID:    s.UserID,
		Ephemeral: s.Ephemeral,
		Display:   s.Display,
		Body:      body,
	})
}

func (s *State) UnmarshalJSON(b []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	body, err := decodeBody(raw.Flavor, raw.Body)
	if err != nil {
		return err
	}
	*s = State{
		Flavor:    raw.Flavor,
		Version:   raw.Version,
		Page:      raw.Page,
		ActionID:  raw.ActionID,
		UserID:    raw.UserID,
		Ephemeral: raw.Ephemeral,
		Display:   raw.Display,
		Body:      body,
	}
	return nil
}

// decodeBody is the only place that maps a flavor to its body type.
func decodeBody(f Flavor, raw json.RawMessage) (Body, error) {
	var (
		body Body
		err  error
	)
	switch f {
	case FlavorList:
		var b ListBody
		err = json.Unmarshal(raw, &b)
		body = b
	case FlavorQuery:
		var b QueryBody
		err = json.Unmarshal(raw, &b)
		body = b
	case FlavorSelect:
		var b SelectBody
		err = json.Unmarshal(raw, &b)
		body = b
	case FlavorAttachment:
		var b AttachmentBody
		err = json.Unmarshal(raw, &b)
		body = b
	case FlavorFilter:
		var b FilterBody
		err = json.Unmarshal(raw, &b)
		body = b
	default:
		return nil, fmt.Errorf("unknown prompt flavor %d", f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s prompt: %w", f, err)
	}
	return body, nil
}

func newState(body Body, d Display) (State, error) {
	if body.PageCount() == 0 {
		return State{}, ErrEmpty
	}
	return State{Flavor: body.Flavor(), Display: d, Body: body}, nil
}

// NewList builds a paged list of pre-rendered text blocks.
func NewList(pages []string, d Display) (State, error) {
	return newState(ListBody{Pages: append([]string(nil), pages...)}, d)
}

// NewQuery builds a single-select picker.
func NewQuery(options []Option, d Display) (State, error) {
	return newState(QueryBody{Options: append([]Option(nil), options...)}, d)
}

// NewSelect builds a multi-select accumulator. preselected holds global option indices;
// negative or out of range indices are dropped.
func NewSelect(options []Option, preselected []int, d Display) (State, error) {
	body := SelectBody{Options: append([]Option(nil), options...)}
	body.Selected = make([][]int, body.PageCount())
	for i := range body.Selected {
		body.Selected[i] = []int{}
	}
	for _, idx := range preselected {
		if idx < 0 || idx >= len(options) {
			continue
		}
		page := idx / PageSize
		body.Selected[page] = appendUnique(body.Selected[page], idx%PageSize)
	}
	for i := range body.Selected {
		sort.Ints(body.Selected[i])
	}
	return newState(body, d)
}

// NewAttachment builds a one-attachment-per-page viewer.
func NewAttachment(items []Attachment, d Display) (State, error) {
	return newState(AttachmentBody{Items: append([]Attachment(nil), items...)}, d)
}

// NewFilter builds the grouped filter editor. Selected names that belong to no group are
// dropped.
func NewFilter(groups []Group, selected []string, d Display) (State, error) {
	body := FilterBody{Groups: append([]Group(nil), groups...)}
	body.Selected = body.normalize(selected)
	return newState(body, d)
}

// normalize keeps known names and orders them by group, then by option order.
func (b FilterBody) normalize(names []string) []string {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := make([]string, 0, len(names))
	for _, g := range b.Groups {
		for _, o := range g.Options {
			if want[o.Value] {
				out = append(out, o.Value)
				delete(want, o.Value)
			}
		}
	}
	return out
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

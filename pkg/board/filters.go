package board

import (
	"strings"

	"github.com/small-frappuccino/boardcore/pkg/bitfield"
)

// FilterGroup is one page of the webhook filter editor.
type FilterGroup struct {
	Key   string
	Flags []string
}

// filterGroups is the webhook event taxonomy. Bit positions follow this order, so new flags
// must only ever be appended to the end of a group that is itself last, or to a new group.
var filterGroups = []FilterGroup{
	{Key: "board", Flags: []string{
		"BOARD_ADDED_TO_TEAM", "BOARD_REMOVED_FROM_TEAM", "BOARD_NAME", "BOARD_DESCRIPTION",
		"BOARD_BACKGROUND", "BOARD_CLOSED", "BOARD_REOPENED", "BOARD_VISIBILITY",
		"BOARD_COMMENTING", "BOARD_INVITATIONS", "BOARD_VOTING", "BOARD_SELF_JOIN",
		"BOARD_CARD_COVERS", "BOARD_HIDE_VOTES", "BOARD_ENABLE_PLUGIN", "BOARD_DISABLE_PLUGIN",
	}},
	{Key: "label", Flags: []string{
		"LABEL_CREATED", "LABEL_NAME", "LABEL_COLOR", "LABEL_DELETED",
	}},
	{Key: "card", Flags: []string{
		"CARD_CREATED", "CARD_COPIED", "CARD_EMAILED", "CARD_DELETED", "CARD_NAME",
		"CARD_DESCRIPTION", "CARD_POSITION", "CARD_LIST", "CARD_BOARD", "CARD_ARCHIVED",
		"CARD_UNARCHIVED", "CARD_DUE", "CARD_DUE_COMPLETE", "CARD_START", "CARD_COVER",
		"CARD_LOCATION", "CARD_ADD_LABEL", "CARD_REMOVE_LABEL", "CARD_ADD_MEMBER",
		"CARD_REMOVE_MEMBER", "CARD_ATTACH", "CARD_DELETE_ATTACHMENT", "CARD_COMMENT",
		"CARD_EDIT_COMMENT", "CARD_DELETE_COMMENT",
	}},
	{Key: "list", Flags: []string{
		"LIST_CREATED", "LIST_NAME", "LIST_POSITION", "LIST_ARCHIVED", "LIST_UNARCHIVED",
		"LIST_MOVED_TO_BOARD", "LIST_MOVED_FROM_BOARD",
	}},
	{Key: "checklist", Flags: []string{
		"CHECKLIST_CREATED", "CHECKLIST_NAME", "CHECKLIST_POSITION", "CHECKLIST_DELETED",
		"CHECKLIST_ADDED_TO_CARD", "CHECKLIST_REMOVED_FROM_CARD", "CHECKLIST_ITEM_CREATED",
		"CHECKLIST_ITEM_NAME", "CHECKLIST_ITEM_POSITION", "CHECKLIST_ITEM_DELETED",
		"CHECKLIST_ITEM_CHECKED", "CHECKLIST_ITEM_UNCHECKED", "CHECKLIST_ITEM_DUE",
		"CHECKLIST_ITEM_MEMBER",
	}},
	{Key: "member", Flags: []string{
		"MEMBER_JOINED", "MEMBER_LEFT", "MEMBER_MADE_ADMIN", "MEMBER_MADE_NORMAL",
		"MEMBER_MADE_OBSERVER", "MEMBER_INVITED",
	}},
	{Key: "custom_field", Flags: []string{
		"CUSTOM_FIELD_CREATED", "CUSTOM_FIELD_NAME", "CUSTOM_FIELD_DISPLAY",
		"CUSTOM_FIELD_DELETED", "CARD_CUSTOM_FIELD_VALUE",
	}},
}

var defaultWebhookFlags = []string{
	"BOARD_NAME", "BOARD_CLOSED",
	"CARD_CREATED", "CARD_DELETED", "CARD_NAME", "CARD_DESCRIPTION", "CARD_LIST",
	"CARD_ARCHIVED", "CARD_UNARCHIVED", "CARD_DUE", "CARD_ADD_MEMBER", "CARD_REMOVE_MEMBER",
	"CARD_ATTACH", "CARD_COMMENT",
	"LIST_CREATED", "LIST_NAME", "LIST_ARCHIVED",
	"CHECKLIST_ITEM_CHECKED", "CHECKLIST_ITEM_UNCHECKED",
	"MEMBER_JOINED",
}

var webhookCatalog = func() *bitfield.Catalog {
	var names []string
	for _, g := range filterGroups {
		names = append(names, g.Flags...)
	}
	return bitfield.NewCatalog(names...)
}()

// WebhookFilterDef binds WebhookFilters to the webhook event catalog.
type WebhookFilterDef struct{}

func (WebhookFilterDef) Catalog() *bitfield.Catalog { return webhookCatalog }
func (WebhookFilterDef) Defaults() []string         { return defaultWebhookFlags }

// WebhookFilters is the set of events a webhook delivers.
type WebhookFilters = bitfield.Set[WebhookFilterDef]

// DefaultWebhookFilters is the policy new webhooks start with.
func DefaultWebhookFilters() WebhookFilters { return bitfield.Default[WebhookFilterDef]() }

// WebhookFiltersFromNames builds a set from flag names.
func WebhookFiltersFromNames(names ...string) (WebhookFilters, error) {
	return bitfield.FromNames[WebhookFilterDef](names...)
}

// ParseWebhookFilters decodes a stored decimal value. dropped counts bits outside the catalog.
func ParseWebhookFilters(s string) (WebhookFilters, int, error) {
	return bitfield.Parse[WebhookFilterDef](s)
}

// FilterGroups returns a copy of the taxonomy in catalog order.
func FilterGroups() []FilterGroup {
	out := make([]FilterGroup, len(filterGroups))
	for i, g := range filterGroups {
		out[i] = FilterGroup{Key: g.Key, Flags: append([]string(nil), g.Flags...)}
	}
	return out
}

// FlagLabel turns CARD_ADD_MEMBER into "Card add member".
func FlagLabel(name string) string {
	words := strings.Split(strings.ToLower(name), "_")
	if len(words) == 0 || words[0] == "" {
		return name
	}
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ")
}

package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogNeedsMoreThan64Bits(t *testing.T) {
	assert.Greater(t, webhookCatalog.Len(), 64)
	for _, g := range FilterGroups() {
		assert.LessOrEqual(t, len(g.Flags), 25, g.Key)
		assert.NotEmpty(t, g.Flags, g.Key)
	}
}

func TestDefaultPolicyIsDistinct(t *testing.T) {
	def := DefaultWebhookFilters()
	assert.True(t, def.Has("CARD_CREATED"))
	assert.False(t, def.Has("BOARD_VOTING"))
	all, _ := WebhookFiltersFromNames(webhookCatalog.Names()...)
	assert.False(t, def.Equal(all))
	assert.NotZero(t, def.Len())
}

func TestStoredValueRoundTrip(t *testing.T) {
	set, err := WebhookFiltersFromNames("CARD_CUSTOM_FIELD_VALUE", "BOARD_NAME", "CHECKLIST_ITEM_DUE")
	require.NoError(t, err)

	parsed, dropped, err := ParseWebhookFilters(set.String())
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, []string{"BOARD_NAME", "CHECKLIST_ITEM_DUE", "CARD_CUSTOM_FIELD_VALUE"}, parsed.Names())
}

func TestFlagLabel(t *testing.T) {
	assert.Equal(t, "Card add member", FlagLabel("CARD_ADD_MEMBER"))
	assert.Equal(t, "", FlagLabel(""))
}

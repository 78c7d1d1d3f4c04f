package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/small-frappuccino/boardcore/pkg/board"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := NewStore(dbPath)
	if err := store.Init(); err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSchemaInitialized(t *testing.T) {
	store := newTempStore(t)
	rows, err := store.db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	if err != nil {
		t.Fatalf("query schema: %v", err)
	}
	defer rows.Close()

	required := map[string]bool{"users": false, "guilds": false, "webhooks": false}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if _, ok := required[name]; ok {
			required[name] = true
		}
	}
	for k, ok := range required {
		if !ok {
			t.Fatalf("expected table %s to exist", k)
		}
	}
}

func TestUninitializedStoreFails(t *testing.T) {
	store := NewStore("")
	if err := store.Init(); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := store.GetUser(context.Background(), "u"); err == nil {
		t.Fatalf("expected error from uninitialized store")
	}
}

func TestUserLifecycle(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()

	if u, err := store.GetUser(ctx, "u1"); err != nil || u != nil {
		t.Fatalf("expected no user, got %v %v", u, err)
	}
	if err := store.SetCurrentBoard(ctx, "u1", "b1"); err == nil {
		t.Fatalf("expected error updating a missing user")
	}

	if err := store.UpsertUser(ctx, UserRecord{UserID: "u1", Token: "tok"}); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	if err := store.SetCurrentBoard(ctx, "u1", "b1"); err != nil {
		t.Fatalf("set board: %v", err)
	}
	if err := store.SetUserLocale(ctx, "u1", "pt-BR"); err != nil {
		t.Fatalf("set locale: %v", err)
	}

	u, err := store.GetUser(ctx, "u1")
	if err != nil || u == nil {
		t.Fatalf("get user: %v %v", u, err)
	}
	if u.Token != "tok" || u.BoardID != "b1" || u.Locale != "pt-BR" {
		t.Fatalf("unexpected user record: %+v", u)
	}
}

func TestPreferredLocales(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()
	_ = store.UpsertUser(ctx, UserRecord{UserID: "u1", Locale: "pt-BR"})
	_ = store.UpsertGuild(ctx, GuildRecord{GuildID: "g1", Locale: "en-US"})

	user, guild := store.PreferredLocales(ctx, "u1", "g1")
	if user != "pt-BR" || guild != "en-US" {
		t.Fatalf("got %q %q", user, guild)
	}
	user, guild = store.PreferredLocales(ctx, "nobody", "")
	if user != "" || guild != "" {
		t.Fatalf("expected empty locales, got %q %q", user, guild)
	}

	g, err := store.GetGuild(ctx, "g1")
	if err != nil || g == nil || g.MaxWebhooks != DefaultMaxWebhooks {
		t.Fatalf("unexpected guild record: %+v %v", g, err)
	}
}

func TestWebhookFiltersPersistAsDecimal(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()

	filters, err := board.WebhookFiltersFromNames("CARD_CREATED", "CARD_CUSTOM_FIELD_VALUE")
	if err != nil {
		t.Fatalf("filters: %v", err)
	}
	rec := WebhookRecord{ID: "w1", GuildID: "g1", BoardID: "b1", RemoteID: "r1", Filters: filters, Active: true}
	if err := store.UpsertWebhook(ctx, rec); err != nil {
		t.Fatalf("upsert webhook: %v", err)
	}

	var raw string
	if err := store.db.QueryRow(`SELECT filters FROM webhooks WHERE id='w1'`).Scan(&raw); err != nil {
		t.Fatalf("raw filters: %v", err)
	}
	if raw != filters.String() {
		t.Fatalf("expected decimal %s, got %s", filters.String(), raw)
	}

	got, err := store.GetWebhook(ctx, "g1", "w1")
	if err != nil || got == nil {
		t.Fatalf("get webhook: %v %v", got, err)
	}
	if !got.Filters.Equal(filters) || !got.Active {
		t.Fatalf("unexpected webhook: %+v", got)
	}

	if err := store.SetWebhookFilters(ctx, "g1", "w1", board.DefaultWebhookFilters()); err != nil {
		t.Fatalf("set filters: %v", err)
	}
	got, _ = store.GetWebhook(ctx, "g1", "w1")
	if !got.Filters.Equal(board.DefaultWebhookFilters()) {
		t.Fatalf("filters not replaced: %v", got.Filters.Names())
	}

	if err := store.SetWebhookFilters(ctx, "other", "w1", filters); err == nil {
		t.Fatalf("expected error for a webhook of another guild")
	}
}

func TestCorruptFiltersAreRepaired(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()
	_ = store.UpsertWebhook(ctx, WebhookRecord{ID: "w1", GuildID: "g1", BoardID: "b1"})

	// Bit 200 is outside the catalog; bit 0 is BOARD_ADDED_TO_TEAM.
	if _, err := store.db.Exec(`UPDATE webhooks SET filters=? WHERE id='w1'`,
		"1606938044258990275541962092341162602522202993782792835301377"); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	got, err := store.GetWebhook(ctx, "g1", "w1")
	if err != nil {
		t.Fatalf("get webhook: %v", err)
	}
	if names := got.Filters.Names(); len(names) != 1 || names[0] != "BOARD_ADDED_TO_TEAM" {
		t.Fatalf("expected only BOARD_ADDED_TO_TEAM, got %v", names)
	}

	_, _ = store.db.Exec(`UPDATE webhooks SET filters='garbage' WHERE id='w1'`)
	got, _ = store.GetWebhook(ctx, "g1", "w1")
	if !got.Filters.Equal(board.DefaultWebhookFilters()) {
		t.Fatalf("expected defaults for unreadable filters")
	}
}

func TestListAndDeleteWebhooks(t *testing.T) {
	store := newTempStore(t)
	ctx := context.Background()
	for _, id := range []string{"w1", "w2"} {
		if err := store.UpsertWebhook(ctx, WebhookRecord{ID: id, GuildID: "g1", BoardID: "b1"}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	_ = store.UpsertWebhook(ctx, WebhookRecord{ID: "w3", GuildID: "g2", BoardID: "b1"})

	list, err := store.ListWebhooks(ctx, "g1")
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v %v", list, err)
	}
	if n, _ := store.CountWebhooks(ctx, "g1"); n != 2 {
		t.Fatalf("expected 2 webhooks, got %d", n)
	}

	if err := store.DeleteWebhook(ctx, "g1", "w1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := store.GetWebhook(ctx, "g1", "w1"); got != nil {
		t.Fatalf("expected webhook to be gone")
	}
	if _, err := store.GetWebhook(ctx, "g1", "w2"); err != nil && err != sql.ErrNoRows {
		t.Fatalf("unexpected error: %v", err)
	}
}

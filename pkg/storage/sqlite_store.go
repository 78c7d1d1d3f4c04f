package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/small-frappuccino/boardcore/pkg/board"
	"github.com/small-frappuccino/boardcore/pkg/log"
	_ "modernc.org/sqlite"
)

// DefaultMaxWebhooks is the per-guild webhook limit when a guild has no record.
const DefaultMaxWebhooks = 5

var errNotInitialized = errors.New("store not initialized")

// Store wraps an embedded SQLite database holding user, guild and webhook records.
// It uses modernc.org/sqlite for CGO-less builds.
type Store struct {
	dbPath string
	db     *sql.DB
}

// NewStore creates a new Store pointing to dbPath. Call Init() before using it.
func NewStore(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

// Init opens the SQLite database, configures pragmas, and ensures the schema exists.
func (s *Store) Init() error {
	if s.db != nil {
		return nil
	}
	if s.dbPath == "" {
		return fmt.Errorf("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	// Pragmas for durability and concurrency
	pragmas := []struct{ stmt, what string }{
		{`PRAGMA journal_mode=WAL;`, "set WAL"},
		{`PRAGMA foreign_keys=ON;`, "enable FKs"},
		{`PRAGMA busy_timeout=5000;`, "set busy_timeout"},
		{`PRAGMA synchronous=NORMAL;`, "set synchronous"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("%s: %w", p.what, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errNotInitialized
	}
	return s.db.PingContext(ctx)
}

// UserRecord is a Discord user linked to a board account.
type UserRecord struct {
	UserID    string
	Token     string
	BoardID   string
	Locale    string
	UpdatedAt time.Time
}

// GetUser returns the user record, or nil if the user never linked an account.
func (s *Store) GetUser(ctx context.Context, userID string) (*UserRecord, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, token, board_id, locale, updated_at FROM users WHERE user_id=?`, userID)
	var rec UserRecord
	if err := row.Scan(&rec.UserID, &rec.Token, &rec.BoardID, &rec.Locale, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// UpsertUser writes the whole user record.
func (s *Store) UpsertUser(ctx context.Context, u UserRecord) error {
	if s.db == nil {
		return errNotInitialized
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, token, board_id, locale, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(user_id) DO UPDATE SET
           token=excluded.token,
           board_id=excluded.board_id,
           locale=excluded.locale,
           updated_at=excluded.updated_at`,
		u.UserID, u.Token, u.BoardID, u.Locale, time.Now().UTC(),
	)
	return err
}

// SetCurrentBoard changes the board a user works on. The user must exist.
func (s *Store) SetCurrentBoard(ctx context.Context, userID, boardID string) error {
	return s.updateUser(ctx, `UPDATE users SET board_id=?, updated_at=? WHERE user_id=?`, boardID, userID)
}

// SetUserLocale stores the user's preferred locale. The user must exist.
func (s *Store) SetUserLocale(ctx context.Context, userID, locale string) error {
	return s.updateUser(ctx, `UPDATE users SET locale=?, updated_at=? WHERE user_id=?`, locale, userID)
}

func (s *Store) updateUser(ctx context.Context, query, value, userID string) error {
	if s.db == nil {
		return errNotInitialized
	}
	res, err := s.db.ExecContext(ctx, query, value, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", userID, sql.ErrNoRows)
	}
	return nil
}

// GuildRecord holds per-guild settings.
type GuildRecord struct {
	GuildID     string
	Locale      string
	MaxWebhooks int
}

// GetGuild returns the guild record, or nil if the guild has none.
func (s *Store) GetGuild(ctx context.Context, guildID string) (*GuildRecord, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}
	row := s.db.QueryRowContext(ctx, `SELECT guild_id, locale, max_webhooks FROM guilds WHERE guild_id=?`, guildID)
	var rec GuildRecord
	if err := row.Scan(&rec.GuildID, &rec.Locale, &rec.MaxWebhooks); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// UpsertGuild writes the guild record.
func (s *Store) UpsertGuild(ctx context.Context, g GuildRecord) error {
	if s.db == nil {
		return errNotInitialized
	}
	if g.MaxWebhooks <= 0 {
		g.MaxWebhooks = DefaultMaxWebhooks
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guilds (guild_id, locale, max_webhooks, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(guild_id) DO UPDATE SET
           locale=excluded.locale,
           max_webhooks=excluded.max_webhooks,
           updated_at=excluded.updated_at`,
		g.GuildID, g.Locale, g.MaxWebhooks, time.Now().UTC(),
	)
	return err
}

// PreferredLocales implements core.LocaleResolver. Lookup failures are logged and treated
// as unset so a database hiccup never blocks an interaction.
func (s *Store) PreferredLocales(ctx context.Context, userID, guildID string) (string, string) {
	var userLocale, guildLocale string
	if userID != "" {
		if u, err := s.GetUser(ctx, userID); err != nil {
			log.DatabaseLogger().Warn("Failed to load user locale", "userID", userID, "error", err)
		} else if u != nil {
			userLocale = u.Locale
		}
	}
	if guildID != "" {
		if g, err := s.GetGuild(ctx, guildID); err != nil {
			log.DatabaseLogger().Warn("Failed to load guild locale", "guildID", guildID, "error", err)
		} else if g != nil {
			guildLocale = g.Locale
		}
	}
	return userLocale, guildLocale
}

// WebhookRecord links a board webhook to a Discord channel webhook.
type WebhookRecord struct {
	ID                  string
	GuildID             string
	BoardID             string
	ChannelID           string
	RemoteID            string
	DiscordWebhookID    string
	DiscordWebhookToken string
	Filters             board.WebhookFilters
	Active              bool
	CreatedAt           time.Time
}

const webhookColumns = `id, guild_id, board_id, channel_id, remote_id, discord_webhook_id,
       discord_webhook_token, filters, active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWebhook(row rowScanner) (*WebhookRecord, error) {
	var (
		rec     WebhookRecord
		filters string
	)
	if err := row.Scan(&rec.ID, &rec.GuildID, &rec.BoardID, &rec.ChannelID, &rec.RemoteID,
		&rec.DiscordWebhookID, &rec.DiscordWebhookToken, &filters, &rec.Active, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Filters = decodeFilters(rec.ID, filters)
	return &rec, nil
}

// decodeFilters drops unknown bits and falls back to the default policy on garbage; both
// are data-integrity faults worth a log line, not a failed request.
func decodeFilters(webhookID, raw string) board.WebhookFilters {
	set, dropped, err := board.ParseWebhookFilters(raw)
	if err != nil {
		log.DatabaseLogger().Error("Stored webhook filters are unreadable, using defaults",
			"webhookID", webhookID, "value", raw, "error", err)
		return board.DefaultWebhookFilters()
	}
	if dropped > 0 {
		log.DatabaseLogger().Warn("Stored webhook filters reference unknown flags",
			"webhookID", webhookID, "dropped", dropped)
	}
	return set
}

// GetWebhook returns a guild's webhook, or nil if it does not exist.
func (s *Store) GetWebhook(ctx context.Context, guildID, id string) (*WebhookRecord, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE guild_id=? AND id=?`, guildID, id)
	rec, err := scanWebhook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// ListWebhooks returns a guild's webhooks, oldest first.
func (s *Store) ListWebhooks(ctx context.Context, guildID string) ([]WebhookRecord, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE guild_id=? ORDER BY created_at, id`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WebhookRecord
	for rows.Next() {
		rec, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// UpsertWebhook writes a webhook record. A zero CreatedAt is set to now.
func (s *Store) UpsertWebhook(ctx context.Context, w WebhookRecord) error {
	if s.db == nil {
		return errNotInitialized
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO webhooks (`+webhookColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
           guild_id=excluded.guild_id,
           board_id=excluded.board_id,
           channel_id=excluded.channel_id,
           remote_id=excluded.remote_id,
           discord_webhook_id=excluded.discord_webhook_id,
           discord_webhook_token=excluded.discord_webhook_token,
           filters=excluded.filters,
           active=excluded.active`,
		w.ID, w.GuildID, w.BoardID, w.ChannelID, w.RemoteID, w.DiscordWebhookID,
		w.DiscordWebhookToken, w.Filters.String(), w.Active, w.CreatedAt.UTC(),
	)
	return err
}

// SetWebhookFilters replaces the filters of one webhook.
func (s *Store) SetWebhookFilters(ctx context.Context, guildID, id string, filters board.WebhookFilters) error {
	if s.db == nil {
		return errNotInitialized
	}
	res, err := s.db.ExecContext(ctx, `UPDATE webhooks SET filters=? WHERE guild_id=? AND id=?`,
		filters.String(), guildID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("webhook %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// DeleteWebhook removes a webhook record (no error if absent).
func (s *Store) DeleteWebhook(ctx context.Context, guildID, id string) error {
	if s.db == nil {
		return errNotInitialized
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE guild_id=? AND id=?`, guildID, id)
	return err
}

// CountWebhooks returns how many webhooks a guild has.
func (s *Store) CountWebhooks(ctx context.Context, guildID string) (int, error) {
	if s.db == nil {
		return 0, errNotInitialized
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM webhooks WHERE guild_id=?`, guildID).Scan(&n)
	return n, err
}

func ensureSchema(db *sql.DB) error {
	const createUsers = `
CREATE TABLE IF NOT EXISTS users (
  user_id    TEXT PRIMARY KEY,
  token      TEXT NOT NULL DEFAULT '',
  board_id   TEXT NOT NULL DEFAULT '',
  locale     TEXT NOT NULL DEFAULT '',
  updated_at TIMESTAMP NOT NULL
);`

	const createGuilds = `
CREATE TABLE IF NOT EXISTS guilds (
  guild_id     TEXT PRIMARY KEY,
  locale       TEXT NOT NULL DEFAULT '',
  max_webhooks INTEGER NOT NULL DEFAULT 5,
  updated_at   TIMESTAMP NOT NULL
);`

	const createWebhooks = `
CREATE TABLE IF NOT EXISTS webhooks (
  id                    TEXT PRIMARY KEY,
  guild_id              TEXT NOT NULL,
  board_id              TEXT NOT NULL,
  channel_id            TEXT NOT NULL DEFAULT '',
  remote_id             TEXT NOT NULL DEFAULT '',
  discord_webhook_id    TEXT NOT NULL DEFAULT '',
  discord_webhook_token TEXT NOT NULL DEFAULT '',
  filters               TEXT NOT NULL DEFAULT '0',
  active                INTEGER NOT NULL DEFAULT 1,
  created_at            TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_webhooks_guild ON webhooks(guild_id);`

	for _, stmt := range []string{createUsers, createGuilds, createWebhooks} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

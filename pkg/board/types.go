// Package board talks to the remote project-management board API and defines the records
// the bot shows: boards, lists, cards, labels, attachments and webhooks.
package board

import "context"

type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

type Board struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	URL    string `json:"url"`
	Closed bool   `json:"closed"`
}

type List struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	BoardID string  `json:"idBoard"`
	Closed  bool    `json:"closed"`
	Pos     float64 `json:"pos"`
}

type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Card struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Desc     string  `json:"desc"`
	ListID   string  `json:"idList"`
	BoardID  string  `json:"idBoard"`
	ShortURL string  `json:"shortUrl"`
	Closed   bool    `json:"closed"`
	Labels   []Label `json:"labels"`
}

type Attachment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Bytes    int64  `json:"bytes"`
}

type Webhook struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	ModelID     string `json:"idModel"`
	CallbackURL string `json:"callbackURL"`
	Active      bool   `json:"active"`
}

// Client is the part of the board API the bot uses. token is the member's own API token.
type Client interface {
	Me(ctx context.Context, token string) (Member, error)
	MemberBoards(ctx context.Context, token string) ([]Board, error)
	Board(ctx context.Context, token, boardID string) (Board, error)
	BoardLists(ctx context.Context, token, boardID string) ([]List, error)
	BoardCards(ctx context.Context, token, boardID string) ([]Card, error)
	BoardLabels(ctx context.Context, token, boardID string) ([]Label, error)
	CardAttachments(ctx context.Context, token, cardID string) ([]Attachment, error)
	ArchiveCard(ctx context.Context, token, cardID string) error
	DeleteWebhook(ctx context.Context, token, webhookID string) error
}

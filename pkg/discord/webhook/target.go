// Package webhook manages the Discord-side webhooks that receive board events.
package webhook

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Class classifies webhook call failures.
type Class string

const (
	ClassAuthDenied         Class = "auth_denied"
	ClassNotFound           Class = "not_found"
	ClassRateLimited        Class = "rate_limited"
	ClassDiscordUnavailable Class = "discord_unavailable"
	ClassUnknown            Class = "unknown"
)

// Error provides structured classification for remote webhook failures.
type Error struct {
	Operation  string
	StatusCode int
	Class      Class
	Temporary  bool
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return "webhook error"
	}

	statusLabel := "status unknown"
	if e.StatusCode > 0 {
		statusLabel = fmt.Sprintf("status %d", e.StatusCode)
	}

	var base string
	switch e.Class {
	case ClassAuthDenied:
		base = fmt.Sprintf("%s denied (%s: invalid token or missing permission)", e.Operation, statusLabel)
	case ClassNotFound:
		base = fmt.Sprintf("%s failed (%s: webhook not found)", e.Operation, statusLabel)
	case ClassRateLimited:
		base = fmt.Sprintf("%s failed (%s: rate limited; temporary)", e.Operation, statusLabel)
	case ClassDiscordUnavailable:
		base = fmt.Sprintf("%s failed (%s: Discord API unavailable; temporary)", e.Operation, statusLabel)
	default:
		base = fmt.Sprintf("%s failed (%s)", e.Operation, statusLabel)
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsClass reports whether err carries a webhook Error of class c.
func IsClass(err error, c Class) bool {
	var whErr *Error
	return errors.As(err, &whErr) && whErr.Class == c
}

// Target identifies a Discord webhook by id and token.
type Target struct {
	ID    string
	Token string
}

// Valid reports whether both halves are present.
func (t Target) Valid() bool {
	return strings.TrimSpace(t.ID) != "" && strings.TrimSpace(t.Token) != ""
}

// URL renders the execute URL of the webhook.
func (t Target) URL() string {
	return discordgo.EndpointWebhookToken(t.ID, t.Token)
}

// ParseURL extracts the target from a webhook URL such as
// https://discord.com/api/webhooks/<id>/<token>.
func ParseURL(rawURL string) (Target, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Target{}, errors.New("missing webhook_url")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Target{}, errors.New("invalid webhook_url format")
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i < len(parts); i++ {
		if parts[i] != "webhooks" {
			continue
		}
		if i+2 >= len(parts) {
			return Target{}, errors.New("invalid webhook_url path")
		}
		t := Target{ID: strings.TrimSpace(parts[i+1]), Token: strings.TrimSpace(parts[i+2])}
		if !t.Valid() {
			return Target{}, errors.New("invalid webhook_url credentials")
		}
		return t, nil
	}

	return Target{}, errors.New("invalid webhook_url path")
}

func classify(operation string, err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr != nil && restErr.Response != nil {
		status := restErr.Response.StatusCode
		e := &Error{Operation: operation, StatusCode: status, Class: ClassUnknown, Cause: err}
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			e.Class = ClassAuthDenied
		case status == http.StatusNotFound:
			e.Class = ClassNotFound
		case status == http.StatusTooManyRequests:
			e.Class, e.Temporary = ClassRateLimited, true
		case status >= 500 && status < 600:
			e.Class, e.Temporary = ClassDiscordUnavailable, true
		}
		return e
	}
	var rlErr *discordgo.RateLimitError
	if errors.As(err, &rlErr) {
		return &Error{
			Operation:  operation,
			StatusCode: http.StatusTooManyRequests,
			Class:      ClassRateLimited,
			Temporary:  true,
			Cause:      err,
		}
	}
	return &Error{Operation: operation, Class: ClassUnknown, Cause: err}
}

// Package errutil holds small helpers for logging and classifying Discord REST failures.
package errutil

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/boardcore/pkg/log"
)

// HandleDiscordError executes fn and logs any error as a Discord-related error.
// It returns whatever error fn returns, unmodified.
func HandleDiscordError(operation string, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("nil function provided")
	}

	err := fn()
	if err == nil {
		return nil
	}

	attrs := []any{"operation", operation, "err", err}
	if status := DiscordStatus(err); status != 0 {
		attrs = append(attrs, "status", status)
	}
	if code := DiscordCode(err); code != 0 {
		attrs = append(attrs, "code", code)
	}
	log.ErrorLoggerRaw().Error("Discord operation failed", attrs...)
	return err
}

// DiscordStatus returns the HTTP status of a REST error, or 0.
func DiscordStatus(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode
	}
	return 0
}

// DiscordCode returns the JSON error code of a REST error, or 0.
func DiscordCode(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code
	}
	return 0
}

// IsUnknownResource reports whether Discord says the target no longer exists:
// a deleted message, channel or webhook, or an interaction token past its lifetime.
func IsUnknownResource(err error) bool {
	switch DiscordCode(err) {
	case discordgo.ErrCodeUnknownChannel,
		discordgo.ErrCodeUnknownMessage,
		discordgo.ErrCodeUnknownWebhook,
		discordgo.ErrCodeUnknownInteraction:
		return true
	}
	return DiscordStatus(err) == 404
}

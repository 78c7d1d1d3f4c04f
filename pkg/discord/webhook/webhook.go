package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/boardcore/pkg/log"
)

const defaultTimeout = 3 * time.Second

func requestOptions(ctx context.Context) []discordgo.RequestOption {
	return []discordgo.RequestOption{
		discordgo.WithContext(ctx),
		discordgo.WithRestRetries(0),
		discordgo.WithRetryOnRatelimit(false),
	}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, defaultTimeout)
}

// Validate checks that the webhook still exists and its token is accepted, returning the
// webhook as Discord reports it.
func Validate(ctx context.Context, s *discordgo.Session, t Target) (*discordgo.Webhook, error) {
	if s == nil {
		return nil, errors.New("validate webhook: nil discord session")
	}
	if !t.Valid() {
		return nil, errors.New("validate webhook: missing id or token")
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	wh, err := s.WebhookWithToken(t.ID, t.Token, requestOptions(ctx)...)
	if err != nil {
		return nil, classify("webhook lookup", err)
	}
	return wh, nil
}

// Delete removes the webhook from Discord. A webhook that is already gone counts as deleted.
func Delete(ctx context.Context, s *discordgo.Session, t Target) error {
	if s == nil {
		return errors.New("delete webhook: nil discord session")
	}
	if !t.Valid() {
		return nil
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.WebhookDeleteWithToken(t.ID, t.Token, requestOptions(ctx)...)
	// Discord answers 204 with no body, which discordgo fails to decode.
	if err == nil || errors.Is(err, discordgo.ErrJSONUnmarshal) {
		log.DiscordLogger().Info("Discord webhook deleted", "webhookID", t.ID)
		return nil
	}
	classified := classify("webhook delete", err)
	if IsClass(classified, ClassNotFound) {
		log.DiscordLogger().Info("Discord webhook already gone", "webhookID", t.ID)
		return nil
	}
	return classified
}

// Announce posts an embed through the webhook without waiting for the message body.
func Announce(ctx context.Context, s *discordgo.Session, t Target, embed *discordgo.MessageEmbed) error {
	if s == nil {
		return errors.New("announce through webhook: nil discord session")
	}
	if !t.Valid() {
		return errors.New("announce through webhook: missing id or token")
	}
	if embed == nil {
		return errors.New("announce through webhook: nil embed")
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := s.WebhookExecute(t.ID, t.Token, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	}, requestOptions(ctx)...); err != nil {
		return classify("webhook execute", err)
	}
	return nil
}

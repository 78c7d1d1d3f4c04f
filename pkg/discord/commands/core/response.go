package core

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/boardcore/pkg/errutil"
	"github.com/small-frappuccino/boardcore/pkg/theme"
)

// ResponseType define tipos de resposta padronizados
type ResponseType int

const (
	ResponseSuccess ResponseType = iota
	ResponseError
	ResponseWarning
	ResponseInfo
	ResponseLoading
)

// Reply is the payload of any response: first reply, edit, update or follow-up.
type Reply struct {
	Content    string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	Ephemeral  bool
}

func (r Reply) flags() discordgo.MessageFlags {
	if r.Ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func (r Reply) components() []discordgo.MessageComponent {
	if r.Components == nil {
		return []discordgo.MessageComponent{}
	}
	return r.Components
}

func (r Reply) embeds() []*discordgo.MessageEmbed {
	if r.Embeds == nil {
		return []*discordgo.MessageEmbed{}
	}
	return r.Embeds
}

// Responded reports whether the interaction was already acknowledged.
func (c *Context) Responded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responded
}

func (c *Context) markResponded(deferred bool) {
	c.mu.Lock()
	c.responded = true
	c.deferred = deferred
	c.mu.Unlock()
}

func (c *Context) state() (responded, deferred bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responded, c.deferred
}

// Respond sends a new message. After a deferral it fills the deferred response and after a
// full response it becomes a follow-up.
func (c *Context) Respond(r Reply) error {
	responded, deferred := c.state()
	switch {
	case !responded:
		err := c.Session.InteractionRespond(c.Interaction.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:    r.Content,
				Embeds:     r.Embeds,
				Components: r.components(),
				Flags:      r.flags(),
			},
		})
		if err == nil {
			c.markResponded(false)
		}
		return err
	case deferred:
		err := c.Edit(r)
		if err == nil {
			c.markResponded(false)
		}
		return err
	default:
		_, err := c.FollowUp(r)
		return err
	}
}

// Update replaces the message a component belongs to. Outside a component interaction it
// behaves like Respond.
func (c *Context) Update(r Reply) error {
	if c.Interaction.Type != discordgo.InteractionMessageComponent {
		return c.Respond(r)
	}
	responded, _ := c.state()
	if responded {
		return c.Edit(r)
	}
	err := c.Session.InteractionRespond(c.Interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    r.Content,
			Embeds:     r.embeds(),
			Components: r.components(),
		},
	})
	if err == nil {
		c.markResponded(false)
	}
	return err
}

// Edit rewrites the original response (or, for components, the message itself).
func (c *Context) Edit(r Reply) error {
	_, err := c.editMessage(r)
	return err
}

func (c *Context) editMessage(r Reply) (*discordgo.Message, error) {
	return EditOriginal(c.Context(), c.Session, c.Interaction.Interaction, r)
}

// EditOriginal rewrites an interaction's original response outside its handler, as task
// follow-ups do. The interaction token stays valid for 15 minutes.
func EditOriginal(ctx context.Context, s *discordgo.Session, i *discordgo.Interaction, r Reply) (*discordgo.Message, error) {
	content := r.Content
	embeds := r.embeds()
	components := r.components()
	return s.InteractionResponseEdit(i, &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
}

// SendMessage is Respond for callers that need the created message, such as prompts keyed
// by message id. A fresh interaction is deferred and then edited so Discord returns the
// message.
func (c *Context) SendMessage(r Reply) (*discordgo.Message, error) {
	responded, deferred := c.state()
	if !responded {
		if err := c.Defer(r.Ephemeral); err != nil {
			return nil, err
		}
		deferred = true
	}
	if !deferred {
		return c.FollowUp(r)
	}
	msg, err := c.editMessage(r)
	if err == nil {
		c.markResponded(false)
	}
	return msg, err
}

// Defer acknowledges a command and shows a loading state. The reply must follow within
// fifteen minutes through Edit or Respond.
func (c *Context) Defer(ephemeral bool) error {
	if responded, _ := c.state(); responded {
		return nil
	}
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := c.Session.InteractionRespond(c.Interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
	if err == nil {
		c.markResponded(true)
	}
	return err
}

// Acknowledge accepts a component interaction without changing the message. It does not
// count as a deferral: the original response is the clicked message, so later replies
// through Respond go out as follow-ups and leave it intact.
func (c *Context) Acknowledge() error {
	if responded, _ := c.state(); responded {
		return nil
	}
	err := c.Session.InteractionRespond(c.Interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err == nil {
		c.markResponded(false)
	}
	return err
}

// FollowUp sends an extra message tied to the interaction.
func (c *Context) FollowUp(r Reply) (*discordgo.Message, error) {
	return c.Session.FollowupMessageCreate(c.Interaction.Interaction, true, &discordgo.WebhookParams{
		Content:    r.Content,
		Embeds:     r.Embeds,
		Components: r.components(),
		Flags:      r.flags(),
	})
}

// DeleteMessage removes the message a component belongs to. The interaction is acknowledged
// first so the client does not report a failure. A message that is already gone counts as deleted.
func (c *Context) DeleteMessage() error {
	if err := c.Acknowledge(); err != nil {
		return err
	}
	err := errutil.HandleDiscordError("delete_message", func() error {
		msg := c.Interaction.Message
		if msg == nil {
			return c.Session.InteractionResponseDelete(c.Interaction.Interaction)
		}
		return c.Session.ChannelMessageDelete(msg.ChannelID, msg.ID)
	})
	if errutil.IsUnknownResource(err) {
		return nil
	}
	return err
}

// Success responde com uma mensagem de sucesso
func (c *Context) Success(message string) error {
	return c.Respond(Reply{Content: formatTextMessage(message, ResponseSuccess), Ephemeral: true})
}

// Error responde com uma mensagem de erro ephemeral
func (c *Context) Error(message string) error {
	return c.Respond(Reply{Content: formatTextMessage(message, ResponseError), Ephemeral: true})
}

// Warning responde com um aviso ephemeral
func (c *Context) Warning(message string) error {
	return c.Respond(Reply{Content: formatTextMessage(message, ResponseWarning), Ephemeral: true})
}

// Autocomplete envia uma resposta de autocomplete
func (c *Context) Autocomplete(choices []*discordgo.ApplicationCommandOptionChoice) error {
	if len(choices) > 25 {
		choices = choices[:25]
	}
	err := c.Session.InteractionRespond(c.Interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err == nil {
		c.markResponded(false)
	}
	return err
}

// formatTextMessage formata mensagem de texto baseada no tipo
func formatTextMessage(message string, responseType ResponseType) string {
	switch responseType {
	case ResponseSuccess:
		return "✅ " + message
	case ResponseError:
		return "❌ " + message
	case ResponseWarning:
		return "⚠️ " + message
	case ResponseInfo:
		return "ℹ️ " + message
	case ResponseLoading:
		return "⏳ " + message
	default:
		return message
	}
}

// Embed cria um embed com a cor do tipo de resposta
func Embed(responseType ResponseType, title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       colorForType(responseType),
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// colorForType retorna a cor apropriada para cada tipo de resposta
func colorForType(responseType ResponseType) int {
	switch responseType {
	case ResponseSuccess:
		return theme.Success()
	case ResponseError:
		return theme.Error()
	case ResponseWarning:
		return theme.Warning()
	case ResponseInfo:
		return theme.Info()
	case ResponseLoading:
		return theme.Loading()
	default:
		return theme.Muted()
	}
}

// Package discordtest points discordgo at an httptest server and records the REST calls a
// handler makes, so interaction flows can be asserted without a live gateway.
package discordtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
)

// Request is one recorded REST call.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// Response is the decodable shape of an interaction callback. Components are decoded as
// action rows, which discordgo knows how to unmarshal.
type Response struct {
	Type discordgo.InteractionResponseType `json:"type"`
	Data *ResponseData                     `json:"data"`
}

// ResponseData mirrors discordgo.InteractionResponseData and WebhookEdit bodies.
type ResponseData struct {
	Content    string                    `json:"content"`
	Components []discordgo.ActionsRow    `json:"components"`
	Embeds     []*discordgo.MessageEmbed `json:"embeds"`
	Flags      discordgo.MessageFlags    `json:"flags"`
}

// Ephemeral reports whether the ephemeral flag is set.
func (d *ResponseData) Ephemeral() bool {
	return d != nil && d.Flags&discordgo.MessageFlagsEphemeral != 0
}

// Buttons flattens every button of every row.
func (d *ResponseData) Buttons() []*discordgo.Button {
	var out []*discordgo.Button
	if d == nil {
		return out
	}
	for _, row := range d.Components {
		for _, c := range row.Components {
			if b, ok := c.(*discordgo.Button); ok {
				out = append(out, b)
			}
		}
	}
	return out
}

// Button returns the button with customID.
func (d *ResponseData) Button(customID string) *discordgo.Button {
	for _, b := range d.Buttons() {
		if b.CustomID == customID {
			return b
		}
	}
	return nil
}

// SelectMenus flattens every select menu of every row.
func (d *ResponseData) SelectMenus() []*discordgo.SelectMenu {
	var out []*discordgo.SelectMenu
	if d == nil {
		return out
	}
	for _, row := range d.Components {
		for _, c := range row.Components {
			if m, ok := c.(*discordgo.SelectMenu); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// Recorder collects requests made against the fake API.
type Recorder struct {
	mu       sync.Mutex
	requests []Request
}

func (r *Recorder) add(req Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
}

// All returns a copy of every recorded request.
func (r *Recorder) All() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Request, len(r.requests))
	copy(out, r.requests)
	return out
}

// Reset forgets recorded requests.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.requests = nil
	r.mu.Unlock()
}

// Matching returns requests whose method matches and whose path contains fragment.
func (r *Recorder) Matching(method, fragment string) []Request {
	var out []Request
	for _, req := range r.All() {
		if req.Method == method && strings.Contains(req.Path, fragment) {
			out = append(out, req)
		}
	}
	return out
}

// Callbacks decodes every POST to an interaction /callback endpoint.
func (r *Recorder) Callbacks(t *testing.T) []Response {
	t.Helper()
	var out []Response
	for _, req := range r.Matching(http.MethodPost, "/callback") {
		var resp Response
		if err := json.Unmarshal(req.Body, &resp); err != nil {
			t.Fatalf("decode callback: %v: %s", err, req.Body)
		}
		out = append(out, resp)
	}
	return out
}

// Edits decodes every PATCH of an original interaction response.
func (r *Recorder) Edits(t *testing.T) []ResponseData {
	t.Helper()
	return r.decodeData(t, http.MethodPatch, "/messages/@original")
}

// FollowUps decodes every follow-up message.
func (r *Recorder) FollowUps(t *testing.T) []ResponseData {
	t.Helper()
	var out []ResponseData
	for _, req := range r.Matching(http.MethodPost, "/webhooks/") {
		var d ResponseData
		if err := json.Unmarshal(req.Body, &d); err != nil {
			t.Fatalf("decode follow-up: %v: %s", err, req.Body)
		}
		out = append(out, d)
	}
	return out
}

func (r *Recorder) decodeData(t *testing.T, method, fragment string) []ResponseData {
	t.Helper()
	var out []ResponseData
	for _, req := range r.Matching(method, fragment) {
		var d ResponseData
		if err := json.Unmarshal(req.Body, &d); err != nil {
			t.Fatalf("decode %s %s: %v: %s", method, req.Path, err, req.Body)
		}
		out = append(out, d)
	}
	return out
}

// NewSession starts a fake Discord API and returns a session wired to it. Endpoint
// overrides are restored when the test ends, so tests using it must not run in parallel.
func NewSession(t *testing.T) (*discordgo.Session, *Recorder) {
	t.Helper()
	rec := &Recorder{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.add(Request{Method: r.Method, Path: r.URL.Path, Body: body})
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodDelete || strings.HasSuffix(r.URL.Path, "/callback") {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"id":"1","channel_id":"1"}`))
	}))
	t.Cleanup(server.Close)

	oldAPI := discordgo.EndpointAPI
	oldWebhooks := discordgo.EndpointWebhooks
	oldChannels := discordgo.EndpointChannels
	discordgo.EndpointAPI = server.URL + "/"
	discordgo.EndpointWebhooks = server.URL + "/webhooks/"
	discordgo.EndpointChannels = server.URL + "/channels/"
	t.Cleanup(func() {
		discordgo.EndpointAPI = oldAPI
		discordgo.EndpointWebhooks = oldWebhooks
		discordgo.EndpointChannels = oldChannels
	})

	session, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session, rec
}

// Component builds a component interaction on message msg.
func Component(customID, userID, guildID string, msg *discordgo.Message, values ...string) *discordgo.InteractionCreate {
	i := &discordgo.Interaction{
		ID:      "interaction-" + customID,
		AppID:   "app",
		Token:   "token",
		Type:    discordgo.InteractionMessageComponent,
		GuildID: guildID,
		Message: msg,
		Data: discordgo.MessageComponentInteractionData{
			CustomID: customID,
			Values:   values,
		},
	}
	if msg != nil {
		i.ChannelID = msg.ChannelID
	}
	setUser(i, userID, guildID)
	return &discordgo.InteractionCreate{Interaction: i}
}

// Command builds a slash command interaction.
func Command(name, userID, guildID string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	i := &discordgo.Interaction{
		ID:      "interaction-" + name,
		AppID:   "app",
		Token:   "token",
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: guildID,
		Data: discordgo.ApplicationCommandInteractionData{
			ID:      "cmd-" + name,
			Name:    name,
			Options: options,
		},
	}
	setUser(i, userID, guildID)
	return &discordgo.InteractionCreate{Interaction: i}
}

func setUser(i *discordgo.Interaction, userID, guildID string) {
	u := &discordgo.User{ID: userID}
	if guildID != "" {
		i.Member = &discordgo.Member{User: u}
		return
	}
	i.User = u
}

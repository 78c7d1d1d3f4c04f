package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func newSession(t *testing.T, handler http.HandlerFunc) *discordgo.Session {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	oldAPI := discordgo.EndpointAPI
	oldWebhooks := discordgo.EndpointWebhooks
	discordgo.EndpointAPI = server.URL + "/"
	discordgo.EndpointWebhooks = server.URL + "/webhooks/"
	t.Cleanup(func() {
		discordgo.EndpointAPI = oldAPI
		discordgo.EndpointWebhooks = oldWebhooks
	})

	session, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session
}

func respond(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"webhook error"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"123","type":1,"name":"board","token":"token-abc","channel_id":"1","guild_id":"1"}`))
	}
}

var target = Target{ID: "123", Token: "token-abc"}

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantErr       bool
		wantClass     Class
		wantTemporary bool
	}{
		{name: "success", status: http.StatusOK},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: true, wantClass: ClassAuthDenied},
		{name: "forbidden", status: http.StatusForbidden, wantErr: true, wantClass: ClassAuthDenied},
		{name: "not found", status: http.StatusNotFound, wantErr: true, wantClass: ClassNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: true, wantClass: ClassRateLimited, wantTemporary: true},
		{name: "unavailable", status: http.StatusInternalServerError, wantErr: true, wantClass: ClassDiscordUnavailable, wantTemporary: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newSession(t, respond(tt.status))

			_, err := Validate(context.Background(), session, target)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate error mismatch: got err=%v wantErr=%v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}

			var whErr *Error
			if !errors.As(err, &whErr) {
				t.Fatalf("expected *Error, got %T (%v)", err, err)
			}
			if whErr.Class != tt.wantClass {
				t.Fatalf("unexpected class: got %q want %q", whErr.Class, tt.wantClass)
			}
			if whErr.StatusCode != tt.status {
				t.Fatalf("unexpected status code: got %d want %d", whErr.StatusCode, tt.status)
			}
			if whErr.Temporary != tt.wantTemporary {
				t.Fatalf("unexpected temporary flag: got %t want %t", whErr.Temporary, tt.wantTemporary)
			}
		})
	}
}

func TestDeleteTreatsMissingWebhookAsDeleted(t *testing.T) {
	var mu sync.Mutex
	var methods []string
	session := newSession(t, func(w http.ResponseWriter, req *http.Request) {
		mu.Lock()
		methods = append(methods, req.Method+" "+req.URL.Path)
		mu.Unlock()
		if strings.HasSuffix(req.URL.Path, "/gone/token") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Unknown Webhook","code":10015}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := Delete(context.Background(), session, target); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := Delete(context.Background(), session, Target{ID: "gone", Token: "token"}); err != nil {
		t.Fatalf("expected missing webhook to count as deleted, got %v", err)
	}
	if err := Delete(context.Background(), session, Target{}); err != nil {
		t.Fatalf("empty target should be a no-op, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(methods) != 2 || methods[0] != "DELETE /webhooks/123/token-abc" {
		t.Fatalf("unexpected calls: %v", methods)
	}
}

func TestDeleteReportsAuthFailure(t *testing.T) {
	session := newSession(t, respond(http.StatusForbidden))
	err := Delete(context.Background(), session, target)
	if !IsClass(err, ClassAuthDenied) {
		t.Fatalf("expected auth_denied, got %v", err)
	}
}

func TestAnnouncePostsEmbed(t *testing.T) {
	got := make(chan discordgo.WebhookParams, 1)
	session := newSession(t, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			t.Errorf("unexpected method %s", req.Method)
		}
		var params discordgo.WebhookParams
		_ = json.NewDecoder(req.Body).Decode(&params)
		got <- params
		w.WriteHeader(http.StatusNoContent)
	})

	err := Announce(context.Background(), session, target, &discordgo.MessageEmbed{Title: "Filters updated"})
	if err != nil {
		t.Fatalf("announce: %v", err)
	}
	params := <-got
	if len(params.Embeds) != 1 || params.Embeds[0].Title != "Filters updated" {
		t.Fatalf("unexpected payload: %+v", params)
	}
}

func TestParseURL(t *testing.T) {
	got, err := ParseURL("https://discord.com/api/webhooks/123/token-abc")
	if err != nil || got != target {
		t.Fatalf("unexpected parse result %+v err=%v", got, err)
	}
	if !strings.HasSuffix(got.URL(), "/webhooks/123/token-abc") {
		t.Fatalf("unexpected url %q", got.URL())
	}
	for _, bad := range []string{"", "https://discord.com/api/webhooks/123", "https://discord.com/api/channels/1", "https://discord.com/api/webhooks/ /x"} {
		if _, err := ParseURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

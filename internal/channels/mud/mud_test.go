package mud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/jibot/internal/bot"
	"github.com/nextlevelbuilder/jibot/internal/config"
	"github.com/nextlevelbuilder/jibot/internal/permissions"
	"github.com/nextlevelbuilder/jibot/internal/skills"
	"github.com/nextlevelbuilder/jibot/internal/store"
	"github.com/nextlevelbuilder/jibot/internal/store/file"
)

type relayRecorder struct {
	channel string
	lines   []string
}

func (r *relayRecorder) Post(_ context.Context, channel, text string) error {
	r.channel = channel
	r.lines = append(r.lines, text)
	return nil
}

func newTestServer(t *testing.T, cfg config.MUDConfig) (*httptest.Server, *relayRecorder) {
	t.Helper()
	stores, err := file.NewFileStores(store.StoreConfig{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewFileStores: %v", err)
	}
	facts := skills.NewFacts(stores.Facts, stores.Links)
	d := skills.NewDispatcher()
	d.Register(skills.NewPersonLookup(facts))
	b := bot.New(bot.Config{
		Dispatcher: d,
		Facts:      facts,
		Gate:       permissions.New(stores.Identity, stores.Links),
		Settings:   bot.Settings{Trigger: "jibot", Herald: true},
	})
	rec := &relayRecorder{}
	srv := httptest.NewServer(New(cfg, b, rec).Handler())
	t.Cleanup(srv.Close)
	return srv, rec
}

func send(t *testing.T, srv *httptest.Server, token string, body string) (int, Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/mud/event", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	var out Response
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode, out
}

func TestSpeechAndArrival(t *testing.T) {
	srv, _ := newTestServer(t, config.MUDConfig{})

	_, r := send(t, srv, "", `{"type":"speech","speaker":{"name":"Joi"},"message":"jibot @kenji is a potter","context":"mud"}`)
	if r.Type != ResponseSay || !strings.Contains(r.Message, "is a potter") {
		t.Fatalf("learn = %+v", r)
	}

	_, r = send(t, srv, "", `{"type":"arrival","speaker":{"name":"Kenji"}}`)
	if r.Type != ResponseEmote || !strings.Contains(r.Message, "is a potter.") {
		t.Errorf("arrival = %+v", r)
	}

	_, r = send(t, srv, "", `{"type":"arrival","speaker":{"name":"Stranger"}}`)
	if r.Type != ResponseSilent {
		t.Errorf("unknown arrival = %+v", r)
	}

	_, r = send(t, srv, "", `{"type":"departure","speaker":{"name":"Kenji"}}`)
	if r.Type != ResponseSilent {
		t.Errorf("departure = %+v", r)
	}
}

func TestChatterRelay(t *testing.T) {
	srv, _ := newTestServer(t, config.MUDConfig{})
	if _, r := send(t, srv, "", `{"type":"speech","speaker":{"name":"Joi"},"message":"nice weather"}`); r.Type != ResponseSilent || r.Relay {
		t.Errorf("no relay channel = %+v", r)
	}

	srv, rec := newTestServer(t, config.MUDConfig{RelayChannel: "C-MUD"})
	_, r := send(t, srv, "", `{"type":"speech","speaker":{"name":"Joi"},"message":"nice weather"}`)
	if r.Type != ResponseSilent || !r.Relay {
		t.Errorf("relay = %+v", r)
	}
	_, r = send(t, srv, "", `{"type":"action","speaker":{"name":"Joi"},"message":"waves"}`)
	if !r.Relay {
		t.Errorf("action relay = %+v", r)
	}
	if rec.channel != "C-MUD" || len(rec.lines) != 2 || rec.lines[0] != "[mud] Joi: nice weather" || rec.lines[1] != "[mud] * Joi waves" {
		t.Errorf("relayed = %q to %q", rec.lines, rec.channel)
	}
}

func TestAuthAndValidation(t *testing.T) {
	srv, _ := newTestServer(t, config.MUDConfig{Token: "s3cret"})
	body := `{"type":"speech","speaker":{"name":"Joi"},"message":"hi"}`

	if code, _ := send(t, srv, "", body); code != http.StatusUnauthorized {
		t.Errorf("missing token = %d", code)
	}
	if code, _ := send(t, srv, "wrong", body); code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d", code)
	}
	if code, _ := send(t, srv, "s3cret", body); code != http.StatusOK {
		t.Errorf("good token = %d", code)
	}
	if code, _ := send(t, srv, "s3cret", `{not json`); code != http.StatusBadRequest {
		t.Errorf("bad json = %d", code)
	}
	if code, _ := send(t, srv, "s3cret", `{"type":"speech","speaker":{}}`); code != http.StatusBadRequest {
		t.Errorf("missing speaker = %d", code)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, config.MUDConfig{Token: "s3cret"})
	resp, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d", resp.StatusCode)
	}
}

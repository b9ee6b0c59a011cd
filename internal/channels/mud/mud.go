// Package mud serves the HTTP bridge a virtual world (MUD) calls for each
// in-world event. The bridge is stateless: every request carries one event
// and gets back what the bot should do in the world.
package mud

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nextlevelbuilder/jibot/internal/bot"
	"github.com/nextlevelbuilder/jibot/internal/config"
)

// Event types sent by the world.
const (
	EventSpeech    = "speech"
	EventAction    = "action"
	EventArrival   = "arrival"
	EventDeparture = "departure"
)

// Response types returned to the world.
const (
	ResponseSay    = "say"
	ResponseEmote  = "emote"
	ResponseSilent = "silent"
)

const maxBodyBytes = 64 << 10

// Speaker identifies who caused an event.
type Speaker struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// Event is one inbound world event.
type Event struct {
	Type    string  `json:"type"`
	Speaker Speaker `json:"speaker"`
	Message string  `json:"message,omitempty"`
	Context string  `json:"context,omitempty"`
}

// Response tells the world what the bot does.
type Response struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Relay   bool   `json:"relay,omitempty"`
}

// Relay forwards world chatter to a chat channel.
type Relay interface {
	Post(ctx context.Context, channel, text string) error
}

// Server is the MUD bridge.
type Server struct {
	cfg   config.MUDConfig
	bot   *bot.Bot
	relay Relay
}

// New creates the bridge. relay may be nil; chatter is then only flagged.
func New(cfg config.MUDConfig, b *bot.Bot, relay Relay) *Server {
	return &Server{cfg: cfg, bot: b, relay: relay}
}

func (s *Server) Name() string { return bot.PlatformMUD }

// Handler returns the bridge routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /mud/event", s.handleEvent)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// Run listens on cfg.Listen until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("mud bridge listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mud bridge: %w", err)
	}
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if !tokenMatch(extractBearerToken(r), s.cfg.Token) {
		slog.Warn("security.mud_unauthorized", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var ev Event
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event: " + err.Error()})
		return
	}
	if ev.Speaker.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "speaker.name is required"})
		return
	}

	writeJSON(w, http.StatusOK, s.Dispatch(r.Context(), ev))
}

// Dispatch decides the bot's response to one event.
func (s *Server) Dispatch(ctx context.Context, ev Event) Response {
	msg := bot.Message{
		Text:      strings.TrimSpace(ev.Message),
		UserID:    speakerID(ev.Speaker),
		UserName:  ev.Speaker.Name,
		Workspace: bot.PlatformMUD,
		Channel:   bot.PlatformMUD,
		Platform:  bot.PlatformMUD,
	}

	switch ev.Type {
	case EventSpeech:
		reply := s.bot.Handle(ctx, msg)
		if !reply.Silent && reply.Text != "" {
			return Response{Type: ResponseSay, Message: reply.Text}
		}
		return s.relayChatter(ctx, ev.Speaker.Name+": "+msg.Text, msg.Text)

	case EventAction:
		return s.relayChatter(ctx, "* "+ev.Speaker.Name+" "+msg.Text, msg.Text)

	case EventArrival:
		reply := s.bot.Herald(ctx, msg)
		if reply.Silent {
			return Response{Type: ResponseSilent}
		}
		return Response{Type: ResponseEmote, Message: "nods at " + ev.Speaker.Name + ". " + reply.Text}

	case EventDeparture:
		return Response{Type: ResponseSilent}

	default:
		slog.Debug("mud event ignored", "type", ev.Type)
		return Response{Type: ResponseSilent}
	}
}

// relayChatter flags unaddressed chatter for relay and forwards it when a
// relay channel is configured.
func (s *Server) relayChatter(ctx context.Context, line, text string) Response {
	if s.cfg.RelayChannel == "" || text == "" {
		return Response{Type: ResponseSilent}
	}
	if s.relay != nil {
		if err := s.relay.Post(ctx, s.cfg.RelayChannel, "[mud] "+line); err != nil {
			slog.Warn("mud relay failed", "channel", s.cfg.RelayChannel, "error", err)
		}
	}
	return Response{Type: ResponseSilent, Relay: true}
}

// speakerID prefers the world's stable id and falls back to the lowercased name.
func speakerID(sp Speaker) string {
	if sp.ID != "" {
		return sp.ID
	}
	return strings.ToLower(strings.TrimSpace(sp.Name))
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

// tokenMatch compares in constant time. An empty expected token disables auth.
func tokenMatch(provided, expected string) bool {
	if expected == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("mud write response", "error", err)
	}
}

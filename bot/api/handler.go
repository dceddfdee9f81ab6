// bot/api/handler.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"

	"github.com/RocketLeagueLatvia/discord-bot/bot/service"
	"github.com/RocketLeagueLatvia/discord-bot/shared/api"
	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
	"github.com/RocketLeagueLatvia/discord-bot/shared/models"
	"github.com/RocketLeagueLatvia/discord-bot/shared/teambuilder"
)

// EventReader is the read side of the event service.
type EventReader interface {
	ListVisible(ctx context.Context) ([]models.Event, error)
	FindByName(ctx context.Context, name string) (*models.Event, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// BotAPIHandlers serves the read-only admin API.
type BotAPIHandlers struct {
	Events  EventReader
	Pingers map[string]Pinger
	Metrics http.Handler
	logger  *logging.Logger
}

// NewBotAPIHandlers creates the handlers. metricsHandler may be nil to leave /metrics unrouted.
func NewBotAPIHandlers(events EventReader, pingers map[string]Pinger, metricsHandler http.Handler, logger *logging.Logger) *BotAPIHandlers {
	if logger == nil {
		logger = logging.Default()
	}
	return &BotAPIHandlers{
		Events:  events,
		Pingers: pingers,
		Metrics: metricsHandler,
		logger:  logger.Named("api"),
	}
}

// EventSummary is one entry of GET /events.
type EventSummary struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Registration models.WindowState `json:"registration"`
	CheckIn      models.WindowState `json:"check_in"`
	Registered   int                `json:"registered"`
	CheckedIn    int                `json:"checked_in"`
}

// TeamsResponse is the body of GET /events/{name}/teams.
type TeamsResponse struct {
	Event  string             `json:"event"`
	Method teambuilder.Method `json:"method,omitempty"`
	Status teambuilder.Status `json:"status,omitempty"`
	Teams  [][]string         `json:"teams"`
}

// DraftResponse is the body of GET /events/{name}/draft.
type DraftResponse struct {
	Event          string             `json:"event"`
	ChannelID      string             `json:"channel_id,omitempty"`
	Round          int                `json:"round"`
	CurrentCaptain *teambuilder.Player `json:"current_captain,omitempty"`
	Draft          teambuilder.Draft  `json:"draft"`
}

func summarize(e models.Event) EventSummary {
	return EventSummary{
		ID:           e.ID,
		Name:         e.Name,
		Registration: e.Status.Registration,
		CheckIn:      e.Status.CheckIn,
		Registered:   len(e.Players),
		CheckedIn:    len(e.CheckedInPlayers()),
	}
}

// writeServiceError maps service error kinds to status codes.
func (h *BotAPIHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound), errors.Is(err, service.ErrNoActiveDraft):
		api.WriteNotFound(w, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		api.WriteError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		h.logger.Error("api request failed", "path", r.URL.Path, "error", err)
		api.WriteInternalServerError(w, "internal error")
	}
}

// HandleListEvents returns the visible events, newest first.
// GET /events
func (h *BotAPIHandlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.ListVisible(ctx)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]EventSummary, len(events))
	for i, e := range events {
		out[i] = summarize(e)
	}
	_ = api.WriteJSON(w, http.StatusOK, out)
}

func (h *BotAPIHandlers) eventFromPath(w http.ResponseWriter, r *http.Request) (*models.Event, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	name := mux.Vars(r)["name"]
	if name == "" {
		api.WriteError(w, http.StatusBadRequest, "event name is required")
		return nil, false
	}
	event, err := h.Events.FindByName(ctx, name)
	if err != nil {
		h.writeServiceError(w, r, err)
		return nil, false
	}
	return event, true
}

// HandleGetEvent returns the full event document, hidden events included.
// GET /events/{name}
func (h *BotAPIHandlers) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := h.eventFromPath(w, r)
	if !ok {
		return
	}
	_ = api.WriteJSON(w, http.StatusOK, event)
}

// HandleGetTeams returns the final team assignments.
// GET /events/{name}/teams
func (h *BotAPIHandlers) HandleGetTeams(w http.ResponseWriter, r *http.Request) {
	event, ok := h.eventFromPath(w, r)
	if !ok {
		return
	}
	resp := TeamsResponse{Event: event.Name, Teams: make([][]string, len(event.Teams))}
	for i, t := range event.Teams {
		resp.Teams[i] = t.Players
	}
	if cfg := event.TeamBuilder; cfg != nil {
		resp.Method = cfg.Method
		resp.Status = cfg.Status
	}
	_ = api.WriteJSON(w, http.StatusOK, resp)
}

// HandleGetDraft returns the persisted draft state of a captains build.
// GET /events/{name}/draft
func (h *BotAPIHandlers) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	event, ok := h.eventFromPath(w, r)
	if !ok {
		return
	}
	cfg := event.TeamBuilder
	if cfg == nil || cfg.Draft == nil {
		h.writeServiceError(w, r, errors.Wrapf(service.ErrNoActiveDraft, "event %s has no draft", event.Name))
		return
	}
	resp := DraftResponse{
		Event:     event.Name,
		ChannelID: cfg.ChannelID,
		Round:     cfg.Draft.Round(),
		Draft:     *cfg.Draft,
	}
	if captain, ok := cfg.Draft.CurrentCaptain(); ok {
		resp.CurrentCaptain = &captain
	}
	_ = api.WriteJSON(w, http.StatusOK, resp)
}

// HandleHealth pings every backing store.
// GET /healthz
func (h *BotAPIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.Pingers))
	for name, p := range h.Pingers {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", "check", name, "error", err)
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	_ = api.WriteJSON(w, status, checks)
}

// RegisterRoutes registers the admin endpoints on the router.
func (h *BotAPIHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/events", h.HandleListEvents).Methods("GET")
	router.HandleFunc("/events/{name}", h.HandleGetEvent).Methods("GET")
	router.HandleFunc("/events/{name}/teams", h.HandleGetTeams).Methods("GET")
	router.HandleFunc("/events/{name}/draft", h.HandleGetDraft).Methods("GET")
	router.HandleFunc("/healthz", h.HandleHealth).Methods("GET")
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics).Methods("GET")
	}
}

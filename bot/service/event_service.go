// bot/service/event_service.go
package service

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/RocketLeagueLatvia/discord-bot/bot/store"
	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
	"github.com/RocketLeagueLatvia/discord-bot/shared/models"
	"github.com/RocketLeagueLatvia/discord-bot/shared/teambuilder"
)

// EventRepository is the persistence the event service needs. *store.EventStore
// implements it.
type EventRepository interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	GetEventByName(ctx context.Context, name string) (*models.Event, error)
	FindOpenEvents(ctx context.Context) ([]models.Event, error)
	FindVisibleEvents(ctx context.Context) ([]models.Event, error)
	FindEventByDraftChannel(ctx context.Context, channelID string) (*models.Event, error)
	FindActiveDrafts(ctx context.Context) ([]models.Event, error)
	SetVisible(ctx context.Context, id string, visible bool) error
	SetRegistrationState(ctx context.Context, id string, state models.WindowState) error
	SetCheckInState(ctx context.Context, id string, state models.WindowState) error
	AddPlayer(ctx context.Context, id string, player models.EventPlayer) error
	SetPlayerCheckedIn(ctx context.Context, id, discordID string, checkedIn bool) error
	SetTeams(ctx context.Context, id string, teams []models.TeamAssignment) error
	UnsetTeams(ctx context.Context, id string) error
	SetTeamBuilder(ctx context.Context, id string, cfg *models.TeamBuilder) error
}

// PlayerLookup resolves linked players and their current ratings. *PlayerService
// implements it.
type PlayerLookup interface {
	Get(ctx context.Context, discordID string) (*models.Player, error)
	Ratings(ctx context.Context, ids []string) (map[string]*int, error)
}

// EventService manages events, their sign-up windows and registrations.
type EventService struct {
	events   EventRepository
	players  PlayerLookup
	validate *validator.Validate
	logger   *logging.Logger
	now      func() time.Time
}

// NewEventService creates a new EventService instance.
func NewEventService(events EventRepository, players PlayerLookup, logger *logging.Logger) *EventService {
	return &EventService{
		events:   events,
		players:  players,
		validate: validator.New(),
		logger:   logger.Named("events"),
		now:      time.Now,
	}
}

func eventErr(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return errors.Wrapf(ErrEventNotFound, "%s", what)
	}
	return errors.Wrapf(err, "service failed to %s", what)
}

// Create stores a new hidden event with both windows closed.
func (es *EventService) Create(ctx context.Context, name string) (*models.Event, error) {
	name = strings.TrimSpace(name)
	if err := es.validate.Var(name, "required,max=100"); err != nil {
		return nil, errors.Wrapf(ErrInvalidEventName, "%q", name)
	}

	now := es.now()
	event := &models.Event{
		ID:   uuid.NewString(),
		Name: name,
		Status: models.EventStatus{
			Registration: models.WindowClosed,
			CheckIn:      models.WindowClosed,
		},
		Players:   []models.EventPlayer{},
		CreatedAt: &now,
	}
	if err := es.events.CreateEvent(ctx, event); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errors.Wrapf(ErrEventExists, "%q", name)
		}
		return nil, errors.Wrap(err, "service failed to create event")
	}
	es.logger.Info("event created", "event_id", event.ID, "name", name)
	return event, nil
}

// GetByID returns the event with the given ID.
func (es *EventService) GetByID(ctx context.Context, id string) (*models.Event, error) {
	event, err := es.events.GetEventByID(ctx, id)
	if err != nil {
		return nil, eventErr(err, "get event "+id)
	}
	return event, nil
}

// FindByName returns the event with exactly this name.
func (es *EventService) FindByName(ctx context.Context, name string) (*models.Event, error) {
	event, err := es.events.GetEventByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, eventErr(err, "find event "+name)
	}
	return event, nil
}

// FindCurrent returns the only event with registration or check-in open.
func (es *EventService) FindCurrent(ctx context.Context) (*models.Event, error) {
	open, err := es.events.FindOpenEvents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "service failed to find open events")
	}
	switch len(open) {
	case 0:
		return nil, errors.Wrap(ErrEventNotFound, "no open event")
	case 1:
		return &open[0], nil
	default:
		return nil, errors.Wrapf(ErrEventAmbiguous, "%d open events", len(open))
	}
}

// Resolve returns the named event, or the current one when name is empty.
func (es *EventService) Resolve(ctx context.Context, name string) (*models.Event, error) {
	if strings.TrimSpace(name) == "" {
		return es.FindCurrent(ctx)
	}
	return es.FindByName(ctx, name)
}

// ListVisible returns visible events, newest first.
func (es *EventService) ListVisible(ctx context.Context) ([]models.Event, error) {
	events, err := es.events.FindVisibleEvents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "service failed to list events")
	}
	return events, nil
}

// Show makes the event appear in listings.
func (es *EventService) Show(ctx context.Context, name string) (*models.Event, error) {
	return es.update(ctx, name, "show", func(e *models.Event) error {
		e.Visible = true
		return es.events.SetVisible(ctx, e.ID, true)
	})
}

// Hide removes the event from listings.
func (es *EventService) Hide(ctx context.Context, name string) (*models.Event, error) {
	return es.update(ctx, name, "hide", func(e *models.Event) error {
		e.Visible = false
		return es.events.SetVisible(ctx, e.ID, false)
	})
}

// OpenRegistration opens the registration window of the named event.
func (es *EventService) OpenRegistration(ctx context.Context, name string) (*models.Event, error) {
	return es.setRegistration(ctx, name, models.WindowOpen)
}

// CloseRegistration closes the registration window.
func (es *EventService) CloseRegistration(ctx context.Context, name string) (*models.Event, error) {
	return es.setRegistration(ctx, name, models.WindowClosed)
}

// OpenCheckIn opens the check-in window.
func (es *EventService) OpenCheckIn(ctx context.Context, name string) (*models.Event, error) {
	return es.setCheckIn(ctx, name, models.WindowOpen)
}

// CloseCheckIn closes the check-in window.
func (es *EventService) CloseCheckIn(ctx context.Context, name string) (*models.Event, error) {
	return es.setCheckIn(ctx, name, models.WindowClosed)
}

func (es *EventService) setRegistration(ctx context.Context, name string, state models.WindowState) (*models.Event, error) {
	return es.update(ctx, name, "set registration "+string(state), func(e *models.Event) error {
		e.Status.Registration = state
		return es.events.SetRegistrationState(ctx, e.ID, state)
	})
}

func (es *EventService) setCheckIn(ctx context.Context, name string, state models.WindowState) (*models.Event, error) {
	return es.update(ctx, name, "set check-in "+string(state), func(e *models.Event) error {
		e.Status.CheckIn = state
		return es.events.SetCheckInState(ctx, e.ID, state)
	})
}

// update resolves the event by name, applies fn and returns the updated copy.
func (es *EventService) update(ctx context.Context, name, what string, fn func(e *models.Event) error) (*models.Event, error) {
	event, err := es.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := fn(event); err != nil {
		return nil, eventErr(err, what+" for event "+event.Name)
	}
	es.logger.Info("event updated", "event_id", event.ID, "name", event.Name, "action", what)
	return event, nil
}

// Register signs a linked player up for the event. Nick, Steam ID and rating are
// copied from the player document.
func (es *EventService) Register(ctx context.Context, eventName, discordID string) (*models.Event, error) {
	event, err := es.Resolve(ctx, eventName)
	if err != nil {
		return nil, err
	}
	if event.Status.Registration != models.WindowOpen {
		return nil, errors.Wrapf(ErrRegistrationClosed, "event %s", event.Name)
	}

	player, err := es.players.Get(ctx, discordID)
	if err != nil {
		return nil, err
	}

	now := es.now()
	entry := models.EventPlayer{
		DiscordID:    player.DiscordID,
		DiscordNick:  player.DiscordNick,
		SteamID64:    player.SteamID64,
		MaxMMR:       player.MaxMMR,
		RegisteredAt: &now,
	}
	if err := es.events.AddPlayer(ctx, event.ID, entry); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errors.Wrapf(ErrAlreadyRegistered, "event %s", event.Name)
		}
		return nil, eventErr(err, "register to event "+event.Name)
	}
	event.Players = append(event.Players, entry)
	es.logger.Info("player registered", "event_id", event.ID, "discord_id", discordID)
	return event, nil
}

// CheckIn confirms attendance of a registered player.
func (es *EventService) CheckIn(ctx context.Context, eventName, discordID string) (*models.Event, error) {
	event, err := es.Resolve(ctx, eventName)
	if err != nil {
		return nil, err
	}
	if event.Status.CheckIn != models.WindowOpen {
		return nil, errors.Wrapf(ErrCheckInClosed, "event %s", event.Name)
	}
	entry := event.FindPlayer(discordID)
	if entry == nil {
		return nil, errors.Wrapf(ErrNotRegistered, "event %s", event.Name)
	}
	if err := es.events.SetPlayerCheckedIn(ctx, event.ID, discordID, true); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrapf(ErrNotRegistered, "event %s", event.Name)
		}
		return nil, errors.Wrap(err, "service failed to check in")
	}
	entry.CheckedIn = true
	es.logger.Info("player checked in", "event_id", event.ID, "discord_id", discordID)
	return event, nil
}

// RegisteredPlayers returns the event and its registrations in sign-up order.
func (es *EventService) RegisteredPlayers(ctx context.Context, eventName string) (*models.Event, []models.EventPlayer, error) {
	event, err := es.Resolve(ctx, eventName)
	if err != nil {
		return nil, nil, err
	}
	return event, event.Players, nil
}

// CheckedInPlayers returns the event and its checked-in registrations.
func (es *EventService) CheckedInPlayers(ctx context.Context, eventName string) (*models.Event, []models.EventPlayer, error) {
	event, err := es.Resolve(ctx, eventName)
	if err != nil {
		return nil, nil, err
	}
	return event, event.CheckedInPlayers(), nil
}

// FindDraftInChannel returns the event running a captain draft in channelID.
func (es *EventService) FindDraftInChannel(ctx context.Context, channelID string) (*models.Event, error) {
	event, err := es.events.FindEventByDraftChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrapf(ErrNoActiveDraft, "channel %s", channelID)
		}
		return nil, errors.Wrap(err, "service failed to find draft")
	}
	return event, nil
}

// ListActiveDrafts returns the events with a captain draft in progress.
func (es *EventService) ListActiveDrafts(ctx context.Context) ([]models.Event, error) {
	events, err := es.events.FindActiveDrafts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "service failed to list drafts")
	}
	return events, nil
}

// GetCheckedInPlayers returns the checked-in players of the event as team builder
// input, in check-in order. Ratings come from the player documents; a player that
// has since unlinked keeps the rating copied at registration.
func (es *EventService) GetCheckedInPlayers(ctx context.Context, eventID string) ([]teambuilder.Player, error) {
	event, err := es.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	entries := event.CheckedInPlayers()
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.DiscordID
	}
	ratings, err := es.players.Ratings(ctx, ids)
	if err != nil {
		return nil, err
	}

	players := make([]teambuilder.Player, len(entries))
	for i, e := range entries {
		rating, ok := ratings[e.DiscordID]
		if !ok {
			rating = e.MaxMMR
		}
		players[i] = teambuilder.Player{ID: e.DiscordID, Name: e.DiscordNick, Rating: rating}
	}
	return players, nil
}

// TeamAssignments converts built teams to their persisted form.
func TeamAssignments(teams []teambuilder.Team) []models.TeamAssignment {
	assignments := teambuilder.Assignments(teams)
	docs := make([]models.TeamAssignment, len(assignments))
	for i, ids := range assignments {
		docs[i] = models.TeamAssignment{Players: ids}
	}
	return docs
}

// SetTeams persists the final team assignments.
func (es *EventService) SetTeams(ctx context.Context, eventID string, teams []teambuilder.Team) error {
	if err := es.events.SetTeams(ctx, eventID, TeamAssignments(teams)); err != nil {
		return eventErr(err, "set teams of event "+eventID)
	}
	return nil
}

// UnsetTeams clears previous team assignments.
func (es *EventService) UnsetTeams(ctx context.Context, eventID string) error {
	if err := es.events.UnsetTeams(ctx, eventID); err != nil {
		return eventErr(err, "unset teams of event "+eventID)
	}
	return nil
}

// SetTeamBuilder replaces the event's team builder configuration.
func (es *EventService) SetTeamBuilder(ctx context.Context, eventID string, cfg *models.TeamBuilder) error {
	if err := es.events.SetTeamBuilder(ctx, eventID, cfg); err != nil {
		return eventErr(err, "set team builder of event "+eventID)
	}
	return nil
}

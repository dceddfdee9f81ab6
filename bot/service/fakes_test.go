package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/RocketLeagueLatvia/discord-bot/bot/store"
	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
	"github.com/RocketLeagueLatvia/discord-bot/shared/models"
	sharedservice "github.com/RocketLeagueLatvia/discord-bot/shared/service"
)

// memPlayers is an in-memory PlayerRepository with the store's error semantics.
type memPlayers struct {
	mu      sync.Mutex
	players map[string]models.Player
}

func newMemPlayers(players ...models.Player) *memPlayers {
	m := &memPlayers{players: make(map[string]models.Player)}
	for _, p := range players {
		m.players[p.DiscordID] = p
	}
	return m
}

func (m *memPlayers) CreatePlayer(_ context.Context, player *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[player.DiscordID]; ok {
		return errors.Wrapf(store.ErrDuplicate, "player %s", player.DiscordID)
	}
	m.players[player.DiscordID] = *player
	return nil
}

func (m *memPlayers) GetPlayer(_ context.Context, id string) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, errors.Wrapf(store.ErrNotFound, "player %s", id)
	}
	return &p, nil
}

func (m *memPlayers) DeletePlayer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[id]; !ok {
		return errors.Wrapf(store.ErrNotFound, "player %s", id)
	}
	delete(m.players, id)
	return nil
}

func (m *memPlayers) UpdateMaxMMR(_ context.Context, id string, mmr int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return errors.Wrapf(store.ErrNotFound, "player %s", id)
	}
	p.MaxMMR = &mmr
	p.RatingUpdatedAt = &at
	m.players[id] = p
	return nil
}

func (m *memPlayers) GetPlayersByIDs(_ context.Context, ids []string) ([]models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Player{}
	for _, id := range ids {
		if p, ok := m.players[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPlayers) ListLinkedPlayers(_ context.Context) ([]models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Player{}
	for _, p := range m.players {
		if p.SteamID64 != "" {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b models.Player) int {
		if a.DiscordID < b.DiscordID {
			return -1
		}
		if a.DiscordID > b.DiscordID {
			return 1
		}
		return 0
	})
	return out, nil
}

// memEvents is an in-memory EventRepository. Reads return copies, like a decode from
// the database would.
type memEvents struct {
	mu     sync.Mutex
	events map[string]*models.Event
	order  []string

	unsetCalls int
}

func newMemEvents() *memEvents {
	return &memEvents{events: make(map[string]*models.Event)}
}

func copyEvent(e *models.Event) *models.Event {
	c := *e
	c.Players = slices.Clone(e.Players)
	c.Teams = slices.Clone(e.Teams)
	if e.TeamBuilder != nil {
		tb := *e.TeamBuilder
		c.TeamBuilder = &tb
	}
	return &c
}

func (m *memEvents) get(id string) *models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.events[id]; ok {
		return copyEvent(e)
	}
	return nil
}

func (m *memEvents) CreateEvent(_ context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.Name == event.Name {
			return errors.Wrapf(store.ErrDuplicate, "event %q", event.Name)
		}
	}
	m.events[event.ID] = copyEvent(event)
	m.order = append(m.order, event.ID)
	return nil
}

func (m *memEvents) GetEventByID(_ context.Context, id string) (*models.Event, error) {
	if e := m.get(id); e != nil {
		return e, nil
	}
	return nil, errors.Wrapf(store.ErrNotFound, "event %s", id)
}

func (m *memEvents) GetEventByName(_ context.Context, name string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.Name == name {
			return copyEvent(e), nil
		}
	}
	return nil, errors.Wrapf(store.ErrNotFound, "event named %s", name)
}

func (m *memEvents) filter(keep func(e *models.Event) bool) []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Event{}
	for i := len(m.order) - 1; i >= 0; i-- {
		if e := m.events[m.order[i]]; keep(e) {
			out = append(out, *copyEvent(e))
		}
	}
	return out
}

func (m *memEvents) FindOpenEvents(context.Context) ([]models.Event, error) {
	return m.filter(func(e *models.Event) bool { return e.IsOpen() }), nil
}

func (m *memEvents) FindVisibleEvents(context.Context) ([]models.Event, error) {
	return m.filter(func(e *models.Event) bool { return e.Visible }), nil
}

func activeDraft(e *models.Event) bool {
	tb := e.TeamBuilder
	return tb != nil && tb.Method == "captains" && tb.Status == "in_progress"
}

// FindEventByDraftChannel returns the most recently started draft in the channel.
func (m *memEvents) FindEventByDraftChannel(_ context.Context, channelID string) (*models.Event, error) {
	found := m.filter(func(e *models.Event) bool {
		return activeDraft(e) && e.TeamBuilder.ChannelID == channelID
	})
	if len(found) == 0 {
		return nil, errors.Wrapf(store.ErrNotFound, "event drafting in channel %s", channelID)
	}
	latest := &found[0]
	for i := range found {
		if started := found[i].TeamBuilder.StartedAt; started != nil &&
			(latest.TeamBuilder.StartedAt == nil || started.After(*latest.TeamBuilder.StartedAt)) {
			latest = &found[i]
		}
	}
	return latest, nil
}

func (m *memEvents) FindActiveDrafts(context.Context) ([]models.Event, error) {
	return m.filter(activeDraft), nil
}

func (m *memEvents) mutate(id string, fn func(e *models.Event) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return errors.Wrapf(store.ErrNotFound, "event %s", id)
	}
	return fn(e)
}

func (m *memEvents) SetVisible(_ context.Context, id string, visible bool) error {
	return m.mutate(id, func(e *models.Event) error { e.Visible = visible; return nil })
}

func (m *memEvents) SetRegistrationState(_ context.Context, id string, state models.WindowState) error {
	return m.mutate(id, func(e *models.Event) error { e.Status.Registration = state; return nil })
}

func (m *memEvents) SetCheckInState(_ context.Context, id string, state models.WindowState) error {
	return m.mutate(id, func(e *models.Event) error { e.Status.CheckIn = state; return nil })
}

func (m *memEvents) AddPlayer(_ context.Context, id string, player models.EventPlayer) error {
	return m.mutate(id, func(e *models.Event) error {
		if e.FindPlayer(player.DiscordID) != nil {
			return errors.Wrapf(store.ErrDuplicate, "player %s", player.DiscordID)
		}
		e.Players = append(e.Players, player)
		return nil
	})
}

func (m *memEvents) SetPlayerCheckedIn(_ context.Context, id, discordID string, checkedIn bool) error {
	return m.mutate(id, func(e *models.Event) error {
		p := e.FindPlayer(discordID)
		if p == nil {
			return errors.Wrapf(store.ErrNotFound, "player %s", discordID)
		}
		p.CheckedIn = checkedIn
		return nil
	})
}

func (m *memEvents) SetTeams(_ context.Context, id string, teams []models.TeamAssignment) error {
	return m.mutate(id, func(e *models.Event) error { e.Teams = slices.Clone(teams); return nil })
}

func (m *memEvents) UnsetTeams(_ context.Context, id string) error {
	return m.mutate(id, func(e *models.Event) error {
		m.unsetCalls++
		e.Teams = nil
		return nil
	})
}

func (m *memEvents) SetTeamBuilder(_ context.Context, id string, cfg *models.TeamBuilder) error {
	return m.mutate(id, func(e *models.Event) error {
		tb := *cfg
		e.TeamBuilder = &tb
		return nil
	})
}

// fakeRanking answers from a map; unknown IDs are not found.
type fakeRanking struct {
	mu    sync.Mutex
	mmr   map[string]int
	err   error
	calls int
}

func (f *fakeRanking) GetMaxMMR(_ context.Context, steamID64 string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	v, ok := f.mmr[steamID64]
	if !ok {
		return 0, errors.Wrapf(sharedservice.ErrRankingPlayerNotFound, "%s", steamID64)
	}
	return v, nil
}

func intPtr(v int) *int { return &v }

var testLogger = logging.NewNop()

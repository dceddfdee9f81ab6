package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RocketLeagueLatvia/discord-bot/shared/models"
	"github.com/RocketLeagueLatvia/discord-bot/shared/teambuilder"
)

type eventFixture struct {
	events  *memEvents
	players *memPlayers
	svc     *EventService
}

func newEventFixture(players ...models.Player) *eventFixture {
	f := &eventFixture{events: newMemEvents(), players: newMemPlayers(players...)}
	ps := NewPlayerService(f.players, &fakeRanking{}, nil, testLogger)
	f.svc = NewEventService(f.events, ps, testLogger)
	return f
}

func TestEventService_Create(t *testing.T) {
	f := newEventFixture()
	ctx := context.Background()

	ev, err := f.svc.Create(ctx, "  Weekly #1 ")
	require.NoError(t, err)
	assert.Equal(t, "Weekly #1", ev.Name)
	assert.Equal(t, models.WindowClosed, ev.Status.Registration)
	assert.Equal(t, models.WindowClosed, ev.Status.CheckIn)
	assert.False(t, ev.Visible)
	assert.NotNil(t, ev.Players)

	_, err = f.svc.Create(ctx, "Weekly #1")
	assert.ErrorIs(t, err, ErrEventExists)
	_, err = f.svc.Create(ctx, "   ")
	assert.ErrorIs(t, err, ErrInvalidEventName)
	_, err = f.svc.Create(ctx, strings.Repeat("x", 101))
	assert.ErrorIs(t, err, ErrInvalidEventName)
}

func TestEventService_FindCurrent(t *testing.T) {
	f := newEventFixture()
	ctx := context.Background()

	_, err := f.svc.FindCurrent(ctx)
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = f.svc.Create(ctx, "one")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "two")
	require.NoError(t, err)

	_, err = f.svc.OpenRegistration(ctx, "one")
	require.NoError(t, err)
	cur, err := f.svc.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "one", cur.Name)

	_, err = f.svc.OpenCheckIn(ctx, "two")
	require.NoError(t, err)
	_, err = f.svc.FindCurrent(ctx)
	assert.ErrorIs(t, err, ErrEventAmbiguous)

	// An explicit name still resolves.
	ev, err := f.svc.Resolve(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, models.WindowOpen, ev.Status.CheckIn)

	_, err = f.svc.Resolve(ctx, "three")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventService_ShowHideListVisible(t *testing.T) {
	f := newEventFixture()
	ctx := context.Background()
	for _, name := range []string{"old", "new", "hidden"} {
		_, err := f.svc.Create(ctx, name)
		require.NoError(t, err)
	}
	_, err := f.svc.Show(ctx, "old")
	require.NoError(t, err)
	_, err = f.svc.Show(ctx, "new")
	require.NoError(t, err)
	_, err = f.svc.Show(ctx, "hidden")
	require.NoError(t, err)
	ev, err := f.svc.Hide(ctx, "hidden")
	require.NoError(t, err)
	assert.False(t, ev.Visible)

	visible, err := f.svc.ListVisible(ctx)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, "new", visible[0].Name)
	assert.Equal(t, "old", visible[1].Name)
}

func TestEventService_Register(t *testing.T) {
	f := newEventFixture(models.Player{DiscordID: "u1", DiscordNick: "one", SteamID64: validSteamID, MaxMMR: intPtr(1100)})
	ctx := context.Background()
	_, err := f.svc.Create(ctx, "cup")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "cup", "u1")
	assert.ErrorIs(t, err, ErrRegistrationClosed)

	_, err = f.svc.OpenRegistration(ctx, "cup")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "", "stranger")
	assert.ErrorIs(t, err, ErrAccountNotLinked)

	ev, err := f.svc.Register(ctx, "", "u1")
	require.NoError(t, err)
	require.Len(t, ev.Players, 1)
	entry := ev.Players[0]
	assert.Equal(t, "one", entry.DiscordNick)
	assert.Equal(t, validSteamID, entry.SteamID64)
	assert.Equal(t, 1100, *entry.MaxMMR)
	assert.False(t, entry.CheckedIn)

	_, err = f.svc.Register(ctx, "cup", "u1")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	_, players, err := f.svc.RegisteredPlayers(ctx, "cup")
	require.NoError(t, err)
	assert.Len(t, players, 1)
}

func TestEventService_CheckIn(t *testing.T) {
	f := newEventFixture(
		models.Player{DiscordID: "u1", SteamID64: validSteamID},
		models.Player{DiscordID: "u2", SteamID64: validSteamID},
	)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, "cup")
	require.NoError(t, err)
	_, err = f.svc.OpenRegistration(ctx, "cup")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "cup", "u1")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "cup", "u2")
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, "cup", "u1")
	assert.ErrorIs(t, err, ErrCheckInClosed)

	_, err = f.svc.CloseRegistration(ctx, "cup")
	require.NoError(t, err)
	_, err = f.svc.OpenCheckIn(ctx, "cup")
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, "", "u3")
	assert.ErrorIs(t, err, ErrNotRegistered)

	ev, err := f.svc.CheckIn(ctx, "", "u2")
	require.NoError(t, err)
	assert.True(t, ev.FindPlayer("u2").CheckedIn)

	_, checked, err := f.svc.CheckedInPlayers(ctx, "cup")
	require.NoError(t, err)
	require.Len(t, checked, 1)
	assert.Equal(t, "u2", checked[0].DiscordID)
}

func TestEventService_GetCheckedInPlayersUsesCurrentRatings(t *testing.T) {
	f := newEventFixture(
		models.Player{DiscordID: "u1", DiscordNick: "one", SteamID64: validSteamID, MaxMMR: intPtr(1000)},
		models.Player{DiscordID: "u2", DiscordNick: "two", SteamID64: validSteamID, MaxMMR: intPtr(800)},
	)
	ctx := context.Background()
	ev, err := f.svc.Create(ctx, "cup")
	require.NoError(t, err)
	_, err = f.svc.OpenRegistration(ctx, "cup")
	require.NoError(t, err)
	for _, id := range []string{"u1", "u2"} {
		_, err = f.svc.Register(ctx, "cup", id)
		require.NoError(t, err)
		require.NoError(t, f.events.SetPlayerCheckedIn(ctx, ev.ID, id, true))
	}

	// u1's rating improved after registering; u2 unlinked since.
	require.NoError(t, f.players.UpdateMaxMMR(ctx, "u1", 1400, ev.CreatedAt.Add(1)))
	require.NoError(t, f.players.DeletePlayer(ctx, "u2"))

	players, err := f.svc.GetCheckedInPlayers(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, teambuilder.Player{ID: "u1", Name: "one", Rating: intPtr(1400)}, players[0])
	assert.Equal(t, teambuilder.Player{ID: "u2", Name: "two", Rating: intPtr(800)}, players[1])
}

func TestEventService_TeamsRoundTrip(t *testing.T) {
	f := newEventFixture()
	ctx := context.Background()
	ev, err := f.svc.Create(ctx, "cup")
	require.NoError(t, err)

	teams := []teambuilder.Team{
		{{ID: "a"}, {ID: "b"}},
		{{ID: "c"}, {ID: "d"}},
	}
	require.NoError(t, f.svc.SetTeams(ctx, ev.ID, teams))
	got := f.events.get(ev.ID)
	assert.Equal(t, []models.TeamAssignment{{Players: []string{"a", "b"}}, {Players: []string{"c", "d"}}}, got.Teams)

	require.NoError(t, f.svc.UnsetTeams(ctx, ev.ID))
	assert.Empty(t, f.events.get(ev.ID).Teams)

	assert.ErrorIs(t, f.svc.SetTeams(ctx, "missing", teams), ErrEventNotFound)
	_, err = f.svc.FindDraftInChannel(ctx, "chan")
	assert.ErrorIs(t, err, ErrNoActiveDraft)
}

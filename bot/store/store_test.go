package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RocketLeagueLatvia/discord-bot/shared/models"
	"github.com/RocketLeagueLatvia/discord-bot/shared/teambuilder"
)

// testDatabase connects to the MongoDB named by RLLV_TEST_MONGODB_URI or skips. Each
// test gets a throwaway database.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("RLLV_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("RLLV_TEST_MONGODB_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	db := client.Database("rllv_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func newEvent(name string) *models.Event {
	now := time.Now().UTC()
	return &models.Event{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    models.EventStatus{Registration: models.WindowClosed, CheckIn: models.WindowClosed},
		Players:   []models.EventPlayer{},
		CreatedAt: &now,
	}
}

func TestEventStore_Lifecycle(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	es := NewEventStore(db.Collection("events"))
	require.NoError(t, es.EnsureIndexes(ctx))

	ev := newEvent("Weekly #1")
	require.NoError(t, es.CreateEvent(ctx, ev))
	assert.ErrorIs(t, es.CreateEvent(ctx, newEvent("Weekly #1")), ErrDuplicate)

	require.NoError(t, es.SetRegistrationState(ctx, ev.ID, models.WindowOpen))
	open, err := es.FindOpenEvents(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, es.AddPlayer(ctx, ev.ID, models.EventPlayer{DiscordID: "u1", DiscordNick: "one"}))
	assert.ErrorIs(t, es.AddPlayer(ctx, ev.ID, models.EventPlayer{DiscordID: "u1"}), ErrDuplicate)
	assert.ErrorIs(t, es.AddPlayer(ctx, "missing", models.EventPlayer{DiscordID: "u1"}), ErrNotFound)

	require.NoError(t, es.SetPlayerCheckedIn(ctx, ev.ID, "u1", true))
	assert.ErrorIs(t, es.SetPlayerCheckedIn(ctx, ev.ID, "u2", true), ErrNotFound)

	d := teambuilder.Start([]teambuilder.Player{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}, 2)
	cfg := &models.TeamBuilder{
		Method:    teambuilder.MethodCaptains,
		TeamSize:  2,
		ChannelID: "chan-1",
		Status:    teambuilder.StatusInProgress,
		Draft:     &d,
	}
	require.NoError(t, es.SetTeamBuilder(ctx, ev.ID, cfg))

	drafting, err := es.FindEventByDraftChannel(ctx, "chan-1")
	require.NoError(t, err)
	require.NotNil(t, drafting.TeamBuilder)
	require.NotNil(t, drafting.TeamBuilder.Draft)
	assert.Equal(t, d.Pool, drafting.TeamBuilder.Draft.Pool)
	assert.Equal(t, "b", drafting.TeamBuilder.Draft.Captains[1].ID)

	active, err := es.FindActiveDrafts(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, ev.ID, active[0].ID)

	require.NoError(t, es.SetTeams(ctx, ev.ID, []models.TeamAssignment{{Players: []string{"a", "b"}}}))
	got, err := es.GetEventByName(ctx, "Weekly #1")
	require.NoError(t, err)
	assert.True(t, got.Players[0].CheckedIn)
	assert.Len(t, got.Teams, 1)

	require.NoError(t, es.UnsetTeams(ctx, ev.ID))
	got, err = es.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Teams)

	_, err = es.GetEventByName(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlayerStore_Lifecycle(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	ps := NewPlayerStore(db.Collection("players"))

	p := &models.Player{DiscordID: "u1", DiscordNick: "one", SteamID64: "76561198000000001"}
	require.NoError(t, ps.CreatePlayer(ctx, p))
	assert.ErrorIs(t, ps.CreatePlayer(ctx, p), ErrDuplicate)
	require.NoError(t, ps.CreatePlayer(ctx, &models.Player{DiscordID: "u2"}))

	require.NoError(t, ps.UpdateMaxMMR(ctx, "u1", 1500, time.Now()))
	got, err := ps.GetPlayer(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got.MaxMMR)
	assert.Equal(t, 1500, *got.MaxMMR)

	linked, err := ps.ListLinkedPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "u1", linked[0].DiscordID)

	byIDs, err := ps.GetPlayersByIDs(ctx, []string{"u1", "u2", "u3"})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)

	require.NoError(t, ps.DeletePlayer(ctx, "u1"))
	assert.ErrorIs(t, ps.DeletePlayer(ctx, "u1"), ErrNotFound)
	_, err = ps.GetPlayer(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

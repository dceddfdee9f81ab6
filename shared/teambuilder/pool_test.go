package teambuilder

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rating(v int) *int { return &v }

// ratedPlayers builds players p1..pn with the given ratings, in input order.
func ratedPlayers(ratings ...int) []Player {
	out := make([]Player, len(ratings))
	for i, r := range ratings {
		out[i] = Player{ID: fmt.Sprintf("p%d", i+1), Name: fmt.Sprintf("Player %d", i+1), Rating: rating(r)}
	}
	return out
}

func ids(players []Player) []string {
	return Team(players).IDs()
}

func TestNormalize_SortsDescendingAndDropsLowest(t *testing.T) {
	players := ratedPlayers(30, 70, 10, 50, 20, 60, 40)

	got := Normalize(players, 3)

	require.Len(t, got, 6)
	assert.Equal(t, []string{"p2", "p6", "p4", "p7", "p1", "p5"}, ids(got))
	assert.NotContains(t, ids(got), "p3", "lowest rated player must be dropped")
}

func TestNormalize_DoesNotModifyInput(t *testing.T) {
	players := ratedPlayers(10, 30, 20)
	before := ids(players)

	_ = Normalize(players, 2)

	assert.Equal(t, before, ids(players))
}

func TestNormalize_TiesKeepInputOrder(t *testing.T) {
	players := ratedPlayers(50, 50, 50, 50, 50)

	got := Normalize(players, 2)

	// later check-ins are the ones dropped
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids(got))
}

func TestNormalize_UnknownRatingRanksLowest(t *testing.T) {
	players := ratedPlayers(10, 20, 30)
	players = append(players, Player{ID: "unrated"})

	got := Normalize(players, 3)

	assert.Equal(t, []string{"p3", "p2", "p1"}, ids(got))
}

func TestNormalize_TooFewPlayers(t *testing.T) {
	tests := []struct {
		name     string
		players  []Player
		teamSize int
	}{
		{"nil input", nil, 2},
		{"one player size 2", ratedPlayers(10), 2},
		{"two players size 3", ratedPlayers(10, 20), 3},
		{"team size below two", ratedPlayers(10, 20, 30), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.players, tt.teamSize)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestNormalize_Divisibility(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, teamSize := range []int{2, 3} {
		for n := 0; n <= 20; n++ {
			players := make([]Player, n)
			for i := range players {
				players[i] = Player{ID: fmt.Sprintf("p%d", i), Rating: rating(rng.Intn(2000))}
			}

			got := Normalize(players, teamSize)

			assert.Zero(t, len(got)%teamSize, "n=%d size=%d", n, teamSize)
			if n >= teamSize {
				assert.Equal(t, n-n%teamSize, len(got), "n=%d size=%d", n, teamSize)
			}
			for i := 1; i < len(got); i++ {
				assert.GreaterOrEqual(t, got[i-1].skill(), got[i].skill())
			}
		}
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("Captains")
	require.NoError(t, err)
	assert.Equal(t, MethodCaptains, m)

	m, err = ParseMethod(" random ")
	require.NoError(t, err)
	assert.Equal(t, MethodRandom, m)

	_, err = ParseMethod("draft")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestAssignments(t *testing.T) {
	teams := []Team{
		{{ID: "a"}, {ID: "b"}},
		{{ID: "c"}, {ID: "d"}},
	}

	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, Assignments(teams))
	assert.Empty(t, Assignments(nil))
}

// shared/teambuilder/random.go
package teambuilder

// Shuffler is the random source used by BuildRandom. *math/rand.Rand and
// *math/rand/v2.Rand both satisfy it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// BuildRandom normalizes the pool, permutes it with rng and slices the result into
// consecutive teams of teamSize. An empty slice means no team could be formed.
func BuildRandom(players []Player, teamSize int, rng Shuffler) []Team {
	pool := Normalize(players, teamSize)
	if len(pool) == 0 {
		return []Team{}
	}

	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	teams := make([]Team, 0, len(pool)/teamSize)
	for start := 0; start < len(pool); start += teamSize {
		team := make(Team, teamSize)
		copy(team, pool[start:start+teamSize])
		teams = append(teams, team)
	}
	return teams
}

// shared/teambuilder/captain.go
package teambuilder

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// Draft is the state of a captain draft. It is a value: Pick and AutoPick return a
// new Draft and never modify the receiver, so a failed transition leaves the caller's
// state untouched. Draft is not safe for concurrent use; callers serialize picks per
// event.
//
// The struct is persisted as-is inside the event document, which is what makes a
// draft resumable across restarts.
type Draft struct {
	TeamSize int `bson:"team_size" json:"team_size"`
	// Captains are ordered by rating, strongest first. Teams[i][0] is Captains[i].
	Captains []Player `bson:"captains" json:"captains"`
	// Pool holds the undrafted players, rating descending. It only ever shrinks.
	Pool  []Player `bson:"pool" json:"pool"`
	Teams []Team   `bson:"teams" json:"teams"`
	// Cursor counts turns in snake order, including turns skipped for full teams.
	Cursor int    `bson:"cursor" json:"cursor"`
	Picks  int    `bson:"picks" json:"picks"`
	Status Status `bson:"status" json:"status"`
}

// Start normalizes the players and seeds a draft. The top ceil(n/teamSize) players
// become captains, each the sole member of their own team. An empty normalized pool
// produces a finished draft with no teams.
func Start(players []Player, teamSize int) Draft {
	pool := Normalize(players, teamSize)
	d := Draft{
		TeamSize: teamSize,
		Captains: []Player{},
		Pool:     []Player{},
		Teams:    []Team{},
	}
	if len(pool) == 0 {
		d.Status = StatusFinished
		return d
	}

	captainCount := (len(pool) + teamSize - 1) / teamSize
	d.Captains = slices.Clone(pool[:captainCount])
	d.Pool = slices.Clone(pool[captainCount:])
	d.Teams = make([]Team, captainCount)
	for i, c := range d.Captains {
		d.Teams[i] = Team{c}
	}
	d.settle()
	return d
}

// captainAt maps a turn number to a captain index. Even rounds run from the weakest
// captain up, odd rounds run back down.
func (d Draft) captainAt(cursor int) int {
	n := len(d.Captains)
	round, pos := cursor/n, cursor%n
	if round%2 == 0 {
		return n - 1 - pos
	}
	return pos
}

// CurrentCaptain returns the captain holding the turn. ok is false once the draft is
// finished.
func (d Draft) CurrentCaptain() (Player, bool) {
	if d.Status == StatusFinished || len(d.Captains) == 0 {
		return Player{}, false
	}
	return d.Captains[d.captainAt(d.Cursor)], true
}

// Round is the 1-based snake round of the current turn.
func (d Draft) Round() int {
	if len(d.Captains) == 0 {
		return 0
	}
	return d.Cursor/len(d.Captains) + 1
}

// TeamOf returns the index of the team the player belongs to, or -1 when the player
// is still in the pool or not part of the draft.
func (d Draft) TeamOf(playerID string) int {
	for i, t := range d.Teams {
		if slices.ContainsFunc(t, func(p Player) bool { return p.ID == playerID }) {
			return i
		}
	}
	return -1
}

// Pick moves playerID from the pool into captainID's team and advances the turn.
// Checks run in order: turn, availability, capacity.
func (d Draft) Pick(captainID, playerID string) (Draft, error) {
	if d.Status == StatusFinished {
		return d, errors.Wrap(ErrInvalidTurn, "draft is finished")
	}

	idx := d.captainAt(d.Cursor)
	if holder := d.Captains[idx]; holder.ID != captainID {
		return d, errors.Wrapf(ErrInvalidTurn, "captain %s picked during %s's turn", captainID, holder.ID)
	}

	poolIdx := slices.IndexFunc(d.Pool, func(p Player) bool { return p.ID == playerID })
	if poolIdx < 0 {
		return d, errors.Wrapf(ErrPlayerNotAvailable, "player %s", playerID)
	}

	if len(d.Teams[idx]) >= d.TeamSize {
		return d, errors.Wrapf(ErrTeamFull, "captain %s already has %d players", captainID, d.TeamSize)
	}

	next := d.clone()
	next.Teams[idx] = append(next.Teams[idx], next.Pool[poolIdx])
	next.Pool = slices.Delete(next.Pool, poolIdx, poolIdx+1)
	next.Picks++
	next.Cursor++
	next.settle()
	return next, nil
}

// AutoPick gives the current captain the highest rated remaining player. It is the
// fallback used when a captain lets the pick timer run out.
func (d Draft) AutoPick() (Draft, error) {
	captain, ok := d.CurrentCaptain()
	if !ok {
		return d, errors.Wrap(ErrInvalidTurn, "draft is finished")
	}
	if len(d.Pool) == 0 {
		return d, errors.Wrap(ErrPlayerNotAvailable, "pool is empty")
	}
	return d.Pick(captain.ID, d.Pool[0].ID)
}

// Finish returns the completed teams, captain first.
func (d Draft) Finish() ([]Team, error) {
	if d.Status != StatusFinished {
		return nil, errors.Wrapf(ErrDraftIncomplete, "%d players left in pool", len(d.Pool))
	}
	return d.clone().Teams, nil
}

// settle marks the draft finished when nothing is left to pick, otherwise moves the
// cursor past captains whose team is already full.
func (d *Draft) settle() {
	if len(d.Pool) == 0 || d.allFull() {
		d.Status = StatusFinished
		return
	}
	d.Status = StatusInProgress
	for range d.Captains {
		if len(d.Teams[d.captainAt(d.Cursor)]) < d.TeamSize {
			return
		}
		d.Cursor++
	}
}

func (d Draft) allFull() bool {
	for _, t := range d.Teams {
		if len(t) < d.TeamSize {
			return false
		}
	}
	return true
}

func (d Draft) clone() Draft {
	out := d
	out.Captains = slices.Clone(d.Captains)
	out.Pool = slices.Clone(d.Pool)
	out.Teams = make([]Team, len(d.Teams))
	for i, t := range d.Teams {
		out.Teams[i] = slices.Clone(t)
	}
	return out
}

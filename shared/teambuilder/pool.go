// shared/teambuilder/pool.go
// Package teambuilder partitions checked-in players into fixed-size teams, either by
// random shuffle or by a snake-order captain draft. Everything here is pure: no I/O,
// no global state, and the random source is supplied by the caller.
package teambuilder

import (
	"math"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// Method selects how teams are built.
type Method string

const (
	MethodRandom   Method = "random"
	MethodCaptains Method = "captains"
)

// ParseMethod validates a user supplied method name.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case MethodRandom:
		return MethodRandom, nil
	case MethodCaptains:
		return MethodCaptains, nil
	default:
		return "", errors.Wrapf(ErrUnknownMethod, "%q", s)
	}
}

// Status is the lifecycle state of a build attempt.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Player is the core-facing view of a checked-in player. A nil Rating means the
// rating is unknown and ranks below every known rating.
type Player struct {
	ID     string `bson:"id" json:"id"`
	Name   string `bson:"name" json:"name"`
	Rating *int   `bson:"rating,omitempty" json:"rating,omitempty"`
}

func (p Player) skill() int {
	if p.Rating == nil {
		return math.MinInt
	}
	return *p.Rating
}

// Team is an ordered group of players. For drafted teams the captain comes first.
type Team []Player

// IDs returns the identities of the team members in order.
func (t Team) IDs() []string {
	ids := make([]string, len(t))
	for i, p := range t {
		ids[i] = p.ID
	}
	return ids
}

// bySkillDesc orders players by rating, highest first. Used with a stable sort so
// equal ratings keep their input order.
func bySkillDesc(a, b Player) int {
	sa, sb := a.skill(), b.skill()
	switch {
	case sa > sb:
		return -1
	case sa < sb:
		return 1
	default:
		return 0
	}
}

// Normalize returns the working pool for a build: players sorted by rating
// descending (stable), with the lowest rated len%teamSize players dropped so the
// result divides evenly into teams. The input slice is not modified.
//
// A pool that cannot form a single team (or a teamSize below 2) yields an empty
// result rather than an error.
func Normalize(players []Player, teamSize int) []Player {
	if teamSize < 2 || len(players) < teamSize {
		return []Player{}
	}

	sorted := slices.Clone(players)
	slices.SortStableFunc(sorted, bySkillDesc)

	keep := len(sorted) - len(sorted)%teamSize
	return sorted[:keep:keep]
}

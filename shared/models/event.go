// shared/models/event.go
package models

import (
	"time"

	"github.com/RocketLeagueLatvia/discord-bot/shared/teambuilder"
)

// WindowState is the state of a registration or check-in window.
type WindowState string

const (
	WindowOpen   WindowState = "open"
	WindowClosed WindowState = "closed"
)

// EventStatus tracks the two sign-up windows of an event.
type EventStatus struct {
	Registration WindowState `bson:"registration" json:"registration"`
	CheckIn      WindowState `bson:"check_in" json:"check_in"`
}

// EventPlayer is a registration entry. Nick, Steam ID and rating are copied from the
// player document at registration time.
type EventPlayer struct {
	DiscordID    string     `bson:"discord_id" json:"discord_id"`
	DiscordNick  string     `bson:"discord_nick" json:"discord_nick"`
	SteamID64    string     `bson:"steamid64" json:"steamid64"`
	MaxMMR       *int       `bson:"maxmmr,omitempty" json:"maxmmr,omitempty"`
	CheckedIn    bool       `bson:"checked_in" json:"checked_in"`
	RegisteredAt *time.Time `bson:"registered_at,omitempty" json:"registered_at,omitempty"`
}

// TeamAssignment is one finalized team: Discord IDs, captain first for drafts.
type TeamAssignment struct {
	Players []string `bson:"players" json:"players"`
}

// TeamBuilder is the build configuration owned by the event. It is replaced
// wholesale when a new build starts. Draft is set only for the captains method.
type TeamBuilder struct {
	Method    teambuilder.Method `bson:"method" json:"method"`
	TeamSize  int                `bson:"team_size" json:"team_size"`
	ChannelID string             `bson:"channel_id,omitempty" json:"channel_id,omitempty"`
	Status    teambuilder.Status `bson:"status" json:"status"`
	Draft     *teambuilder.Draft `bson:"draft,omitempty" json:"draft,omitempty"`
	StartedAt *time.Time         `bson:"started_at,omitempty" json:"started_at,omitempty"`
}

// Event is a tournament night players sign up for.
type Event struct {
	ID          string           `bson:"_id" json:"id"`
	Name        string           `bson:"name" json:"name"`
	Status      EventStatus      `bson:"status" json:"status"`
	Visible     bool             `bson:"visible" json:"visible"`
	Players     []EventPlayer    `bson:"players" json:"players"`
	Teams       []TeamAssignment `bson:"teams,omitempty" json:"teams,omitempty"`
	TeamBuilder *TeamBuilder     `bson:"team_builder,omitempty" json:"team_builder,omitempty"`
	CreatedAt   *time.Time       `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// IsOpen reports whether either sign-up window is open.
func (e *Event) IsOpen() bool {
	return e.Status.Registration == WindowOpen || e.Status.CheckIn == WindowOpen
}

// FindPlayer returns the registration entry for the Discord user, or nil.
func (e *Event) FindPlayer(discordID string) *EventPlayer {
	for i := range e.Players {
		if e.Players[i].DiscordID == discordID {
			return &e.Players[i]
		}
	}
	return nil
}

// CheckedInPlayers returns the checked-in entries in registration order.
func (e *Event) CheckedInPlayers() []EventPlayer {
	out := make([]EventPlayer, 0, len(e.Players))
	for _, p := range e.Players {
		if p.CheckedIn {
			out = append(out, p)
		}
	}
	return out
}

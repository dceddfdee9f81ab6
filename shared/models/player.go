// shared/models/player.go
package models

import (
	"time"
)

// Player is a Discord member whose account is linked to a Steam identity. The
// document key is the Discord user ID.
type Player struct {
	DiscordID       string     `bson:"_id" json:"discord_id"`
	DiscordNick     string     `bson:"discord_nick" json:"discord_nick"`
	SteamID64       string     `bson:"steamid64" json:"steamid64"`
	MaxMMR          *int       `bson:"maxmmr,omitempty" json:"maxmmr,omitempty"` // nil until the ranking API has answered
	RatingUpdatedAt *time.Time `bson:"rating_updated_at,omitempty" json:"rating_updated_at,omitempty"`
	CreatedAt       *time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

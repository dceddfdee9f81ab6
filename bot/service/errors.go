// bot/service/errors.go
package service

import (
	"github.com/cockroachdb/errors"

	"github.com/RocketLeagueLatvia/discord-bot/shared/teambuilder"
)

// Custom errors for clear communication to the command and API layers.
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEventAmbiguous     = errors.New("more than one event is open")
	ErrEventExists        = errors.New("event already exists")
	ErrInvalidEventName   = errors.New("invalid event name")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrCheckInClosed      = errors.New("check-in is closed")
	ErrAlreadyRegistered  = errors.New("player already registered")
	ErrNotRegistered      = errors.New("player is not registered")
	ErrAccountLinked      = errors.New("account already linked")
	ErrAccountNotLinked   = errors.New("account not linked")
	ErrInvalidSteamID     = errors.New("invalid steamid64")
	ErrInvalidTeamSize    = errors.New("team size must be 2 or 3")
	ErrNoActiveDraft      = errors.New("no captain draft in progress")
	ErrBuildInProgress    = errors.New("a team build is already running for this event")
	ErrDraftChannelBusy   = errors.New("another event is drafting in this channel")
)

// ErrNotEnoughPlayers is the headcount check done before a build. It also matches
// teambuilder.ErrInsufficientPlayers.
var ErrNotEnoughPlayers = errors.Mark(errors.New("not enough checked in players"), teambuilder.ErrInsufficientPlayers)

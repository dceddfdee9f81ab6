// bot/command/messages.go
package command

import (
	"github.com/cockroachdb/errors"

	"github.com/RocketLeagueLatvia/discord-bot/bot/service"
	sharedredis "github.com/RocketLeagueLatvia/discord-bot/shared/redis"
	"github.com/RocketLeagueLatvia/discord-bot/shared/teambuilder"
)

const msgGenericError = "Sorry, something went wrong. Please try again later."

// userMessages maps error kinds to what the user is told. Order matters only for
// errors that match more than one kind.
var userMessages = []struct {
	kind error
	msg  string
}{
	{service.ErrEventNotFound, "Sorry, but I could not find the event."},
	{service.ErrEventAmbiguous, "There is more than one open event. Please give the event name."},
	{service.ErrEventExists, "Sorry, but an event with that name already exists."},
	{service.ErrInvalidEventName, "Please give the event a name of at most 100 characters."},
	{service.ErrRegistrationClosed, "Sorry, but the registration is closed."},
	{service.ErrCheckInClosed, "Sorry, but the check-in is closed."},
	{service.ErrAlreadyRegistered, "You are already registered to this event."},
	{service.ErrNotRegistered, "Sorry, but you are not registered to this event."},
	{service.ErrAccountLinked, "Your account is already linked. Use `unlink-steam` to unlink it."},
	{service.ErrAccountNotLinked, "Your account isn't linked. Use `link-steam` to link it!"},
	{service.ErrInvalidSteamID, "That is not a valid steamid64. If you're not sure, you can get it with https://www.steamidfinder.com/"},
	{service.ErrInvalidTeamSize, "Please choose size `2` or `3`."},
	{teambuilder.ErrUnknownMethod, "Please choose method `captains` or `random`."},
	{service.ErrNotEnoughPlayers, "Sorry, but there are not enough checked in players."},
	{service.ErrNoActiveDraft, "There is no draft running in this channel."},
	{service.ErrDraftChannelBusy, "Another event is already drafting in this channel. Finish it or use another channel."},
	{service.ErrBuildInProgress, "The teams are being built right now. Please try again in a moment."},
	{teambuilder.ErrInvalidTurn, "It's not your turn to pick."},
	{teambuilder.ErrPlayerNotAvailable, "That player is not available. Pick someone from the remaining players."},
	{teambuilder.ErrTeamFull, "Your team is already full."},
	{teambuilder.ErrDraftIncomplete, "The draft is not finished yet."},
	{sharedredis.ErrThrottled, "You're doing that too often. Please wait a few seconds."},
	{errMissingMention, "Please mention the player you want to pick."},
}

// describe returns the user facing message for err and whether err is a known kind.
func describe(err error) (string, bool) {
	for _, m := range userMessages {
		if errors.Is(err, m.kind) {
			return m.msg, true
		}
	}
	return msgGenericError, false
}

func userMessage(err error) string {
	msg, _ := describe(err)
	return msg
}

// bot/command/commands.go
package command

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/RocketLeagueLatvia/discord-bot/bot/service"
	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
	"github.com/RocketLeagueLatvia/discord-bot/shared/models"
	"github.com/RocketLeagueLatvia/discord-bot/shared/teambuilder"
)

// Events is the event service as the commands use it.
type Events interface {
	Create(ctx context.Context, name string) (*models.Event, error)
	Resolve(ctx context.Context, name string) (*models.Event, error)
	ListVisible(ctx context.Context) ([]models.Event, error)
	Show(ctx context.Context, name string) (*models.Event, error)
	Hide(ctx context.Context, name string) (*models.Event, error)
	OpenRegistration(ctx context.Context, name string) (*models.Event, error)
	CloseRegistration(ctx context.Context, name string) (*models.Event, error)
	OpenCheckIn(ctx context.Context, name string) (*models.Event, error)
	CloseCheckIn(ctx context.Context, name string) (*models.Event, error)
	Register(ctx context.Context, eventName, discordID string) (*models.Event, error)
	CheckIn(ctx context.Context, eventName, discordID string) (*models.Event, error)
	RegisteredPlayers(ctx context.Context, eventName string) (*models.Event, []models.EventPlayer, error)
	CheckedInPlayers(ctx context.Context, eventName string) (*models.Event, []models.EventPlayer, error)
}

// Players is the player service as the commands use it.
type Players interface {
	Link(ctx context.Context, discordID, nick, steamID64 string) (*models.Player, error)
	Unlink(ctx context.Context, discordID string) error
}

// TeamBuilds is the team build service as the commands use it.
type TeamBuilds interface {
	Build(ctx context.Context, eventName string, method teambuilder.Method, teamSize int, channelID string) (*service.BuildResult, error)
	PickInChannel(ctx context.Context, channelID, captainID, playerID string) (*service.PickResult, error)
	CurrentInChannel(ctx context.Context, channelID string) (*models.Event, error)
}

var errMissingMention = errors.New("no player mentioned")

var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`)

// Bot holds the services behind the chat commands.
type Bot struct {
	events   Events
	players  Players
	builds   TeamBuilds
	validate *validator.Validate
}

// NewBot creates the command set over the given services.
func NewBot(events Events, players Players, builds TeamBuilds) *Bot {
	return &Bot{
		events:   events,
		players:  players,
		builds:   builds,
		validate: validator.New(),
	}
}

// Register adds every command to the router.
func (b *Bot) Register(r *Router) {
	r.Register(
		&Command{
			Name: "create-event", Aliases: []string{"event-create"},
			Description: "Creates a new event.", Usage: "<name>",
			OwnerOnly: true, Run: b.createEvent,
		},
		&Command{
			Name: "event-show", Aliases: []string{"show-event"},
			Description: "Shows the event in the event list.", Usage: "[name]",
			OwnerOnly: true, Run: b.showEvent,
		},
		&Command{
			Name: "event-hide", Aliases: []string{"hide-event"},
			Description: "Hides the event from the event list.", Usage: "[name]",
			OwnerOnly: true, Run: b.hideEvent,
		},
		&Command{
			Name: "event-registration-open", Aliases: []string{"open-registration"},
			Description: "Opens the registration to the event.", Usage: "[name]",
			OwnerOnly: true, Run: b.openRegistration,
		},
		&Command{
			Name: "event-registration-close", Aliases: []string{"close-registration"},
			Description: "Closes the registration to the event.", Usage: "[name]",
			OwnerOnly: true, Run: b.closeRegistration,
		},
		&Command{
			Name: "event-check-in-open", Aliases: []string{"open-check-in"},
			Description: "Opens the check-in to the event.", Usage: "[name]",
			OwnerOnly: true, Run: b.openCheckIn,
		},
		&Command{
			Name: "event-check-in-close", Aliases: []string{"close-check-in"},
			Description: "Closes the check-in to the event.", Usage: "[name]",
			OwnerOnly: true, Run: b.closeCheckIn,
		},
		&Command{
			Name: "event-register", Aliases: []string{"register"},
			Description: "Registers you to the event.", Usage: "[name]",
			Throttled: true, Run: b.register,
		},
		&Command{
			Name: "event-check-in", Aliases: []string{"check-in"},
			Description: "Checks you in to the event.", Usage: "[name]",
			Throttled: true, Run: b.checkIn,
		},
		&Command{
			Name: "event-registration-list", Aliases: []string{"register-list"},
			Description: "Lists the players registered to the event.", Usage: "[name]",
			Throttled: true, Run: b.registrationList,
		},
		&Command{
			Name: "event-check-in-list", Aliases: []string{"check-in-list"},
			Description: "Lists the players checked in to the event.", Usage: "[name]",
			Throttled: true, Run: b.checkInList,
		},
		&Command{
			Name: "event-list", Aliases: []string{"list-events", "events"},
			Description: "Lists the upcoming events.",
			Throttled:   true, Run: b.listEvents,
		},
		&Command{
			Name: "link-steam", Aliases: []string{"steam-link"},
			Description: "Links your Discord account to your Steam account.", Usage: "<steamid64>",
			Run: b.linkSteam,
		},
		&Command{
			Name: "unlink-steam", Aliases: []string{"steam-unlink"},
			Description: "Unlinks your Steam account.",
			Run:         b.unlinkSteam,
		},
		&Command{
			Name: "event-build-teams", Aliases: []string{"build-teams"},
			Description: "Starts the team building.", Usage: "<captains|random> <2|3> [name]",
			OwnerOnly: true, Run: b.buildTeams,
		},
		&Command{
			Name: "pick", Aliases: []string{"draft-pick"},
			Description: "Picks a player to your team during a captain draft.", Usage: "<@player>",
			Run: b.pick,
		},
		&Command{
			Name: "draft", Aliases: []string{"draft-status"},
			Description: "Shows the draft running in this channel.",
			Run:         b.draftStatus,
		},
		&Command{
			Name: "teams", Aliases: []string{"event-teams"},
			Description: "Shows the teams of the event.", Usage: "[name]",
			Throttled: true, Run: b.teams,
		},
		&Command{
			Name: "help", Aliases: []string{"commands"},
			Description: "Lists the commands.",
			Run: func(c *Context) error {
				return c.ReplyEmbed(helpEmbed(r.Prefix(), r.Commands()))
			},
		},
	)
}

func (b *Bot) createEvent(c *Context) error {
	event, err := b.events.Create(c, c.Args)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("Event %s created.", event.Name))
}

func (b *Bot) showEvent(c *Context) error {
	event, err := b.events.Show(c, c.Args)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("Event %s is now visible.", event.Name))
}

func (b *Bot) hideEvent(c *Context) error {
	event, err := b.events.Hide(c, c.Args)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("Event %s is now hidden.", event.Name))
}

func (b *Bot) openRegistration(c *Context) error {
	event, err := b.events.OpenRegistration(c, c.Args)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("Registration to event %s opened.", event.Name))
}

func (b *Bot) closeRegistration(c *Context) error {
	event, err := b.events.CloseRegistration(c, c.Args)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("Registration to event %s closed.", event.Name))
}

func (b *Bot) openCheckIn(c *Context) error {
	event, err := b.events.OpenCheckIn(c, c.Args)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("Check-in to event %s opened.", event.Name))
}

func (b *Bot) closeCheckIn(c *Context) error {
	event, err := b.events.CloseCheckIn(c, c.Args)
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("Check-in to event %s closed.", event.Name))
}

func (b *Bot) register(c *Context) error {
	event, err := b.events.Register(c, c.Args, c.AuthorID())
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("Registered you to %s.", event.Name))
}

func (b *Bot) checkIn(c *Context) error {
	event, err := b.events.CheckIn(c, c.Args, c.AuthorID())
	if err != nil {
		return err
	}
	return c.Reply(fmt.Sprintf("Checked you in to %s.", event.Name))
}

func (b *Bot) registrationList(c *Context) error {
	event, players, err := b.events.RegisteredPlayers(c, c.Args)
	if err != nil {
		return err
	}
	return b.replyPlayerList(c, event, players, "Registered players for %q")
}

func (b *Bot) checkInList(c *Context) error {
	event, players, err := b.events.CheckedInPlayers(c, c.Args)
	if err != nil {
		return err
	}
	return b.replyPlayerList(c, event, players, "Checked in players for %q")
}

// replyPlayerList sends a player list of a visible event.
func (b *Bot) replyPlayerList(c *Context, event *models.Event, players []models.EventPlayer, title string) error {
	if !event.Visible {
		return errors.Wrapf(service.ErrEventNotFound, "event %s is hidden", event.Name)
	}
	if len(players) == 0 {
		return c.Reply("There are no players registered for this tournament.")
	}
	return c.ReplyEmbed(playerListEmbed(fmt.Sprintf(title, event.Name), players))
}

func (b *Bot) listEvents(c *Context) error {
	events, err := b.events.ListVisible(c)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return c.Reply("Sorry, there are no upcoming events.")
	}
	return c.ReplyEmbed(eventListEmbed(events))
}

func (b *Bot) linkSteam(c *Context) error {
	if c.Args == "" {
		return c.Reply("What's your steamid64? If you're not sure, you can get it with https://www.steamidfinder.com/")
	}
	if _, err := b.players.Link(c, c.AuthorID(), c.AuthorNick(), c.Args); err != nil {
		return err
	}
	return c.Reply("Account successfully linked")
}

func (b *Bot) unlinkSteam(c *Context) error {
	if err := b.players.Unlink(c, c.AuthorID()); err != nil {
		return err
	}
	return c.Reply("Account successfully unlinked!")
}

// buildArgs are the arguments of build-teams.
type buildArgs struct {
	Method    string `validate:"oneof=captains random"`
	TeamSize  int    `validate:"oneof=2 3"`
	EventName string
}

func parseBuildArgs(v *validator.Validate, args string) (buildArgs, error) {
	fields := strings.Fields(args)
	var a buildArgs
	if len(fields) > 0 {
		a.Method = strings.ToLower(fields[0])
	}
	if len(fields) > 1 {
		a.TeamSize, _ = strconv.Atoi(fields[1])
	}
	if len(fields) > 2 {
		a.EventName = strings.Join(fields[2:], " ")
	}

	if err := v.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "TeamSize" {
			return a, errors.Wrapf(service.ErrInvalidTeamSize, "%q", args)
		}
		return a, errors.Wrapf(teambuilder.ErrUnknownMethod, "%q", args)
	}
	return a, nil
}

func (b *Bot) buildTeams(c *Context) error {
	args, err := parseBuildArgs(b.validate, c.Args)
	if err != nil {
		return err
	}
	method, err := teambuilder.ParseMethod(args.Method)
	if err != nil {
		return err
	}

	res, err := b.builds.Build(c, args.EventName, method, args.TeamSize, c.Message.ChannelID)
	if err != nil {
		return err
	}

	if res.Config.Status == teambuilder.StatusFinished {
		return c.ReplyEmbed(teamsEmbed(res.Event))
	}

	if err := c.ReplyEmbed(draftEmbed(res.Event.Name, *res.Config.Draft)); err != nil {
		return err
	}
	if captain, ok := res.Config.Draft.CurrentCaptain(); ok {
		return c.Reply(fmt.Sprintf("The draft has started. %s, it's your turn to pick. Use `pick @player`.", mention(captain.ID)))
	}
	return nil
}

// mentionedUser returns the first user mentioned in the message, falling back to a
// raw mention or ID in the arguments.
func mentionedUser(c *Context) (string, error) {
	for _, u := range c.Message.Mentions {
		if u != nil && u.ID != "" {
			return u.ID, nil
		}
	}
	arg := strings.TrimSpace(c.Args)
	if m := mentionPattern.FindStringSubmatch(arg); m != nil {
		return m[1], nil
	}
	if _, err := strconv.ParseUint(arg, 10, 64); err == nil {
		return arg, nil
	}
	return "", errMissingMention
}

func (b *Bot) pick(c *Context) error {
	playerID, err := mentionedUser(c)
	if err != nil {
		return err
	}
	res, err := b.builds.PickInChannel(c, c.Message.ChannelID, c.AuthorID(), playerID)
	if err != nil {
		return err
	}
	return announcePick(c.Sender, c.Message.ChannelID, res)
}

func (b *Bot) draftStatus(c *Context) error {
	event, err := b.builds.CurrentInChannel(c, c.Message.ChannelID)
	if err != nil {
		return err
	}
	return c.ReplyEmbed(draftEmbed(event.Name, *event.TeamBuilder.Draft))
}

func (b *Bot) teams(c *Context) error {
	event, err := b.events.Resolve(c, c.Args)
	if err != nil {
		return err
	}
	if len(event.Teams) == 0 {
		return c.Reply(fmt.Sprintf("The teams for %s have not been built yet.", event.Name))
	}
	return c.ReplyEmbed(teamsEmbed(event))
}

// announcePick tells the channel about a pick and what happens next.
func announcePick(sender Sender, channelID string, res *service.PickResult) error {
	verb := "picked"
	if res.Auto {
		verb = "ran out of time and got"
	}
	msg := fmt.Sprintf("%s %s %s.", mention(res.Captain.ID), verb, mention(res.Picked.ID))
	if next, ok := res.Draft.CurrentCaptain(); ok {
		msg += fmt.Sprintf(" %s, it's your turn to pick.", mention(next.ID))
	}
	if _, err := sender.ChannelMessageSend(channelID, msg); err != nil {
		return err
	}

	if res.Finished() {
		_, err := sender.ChannelMessageSendEmbed(channelID, teamsEmbed(res.Event))
		return err
	}
	return nil
}

// AutoPickAnnouncer posts auto-picks to the channel the draft runs in.
func AutoPickAnnouncer(sender Sender, logger *logging.Logger) service.AutoPickHook {
	return func(res *service.PickResult) {
		if res.Event == nil || res.Event.TeamBuilder == nil {
			return
		}
		if err := announcePick(sender, res.Event.TeamBuilder.ChannelID, res); err != nil {
			logger.Warn("failed to announce auto-pick", "event_id", res.Event.ID, "error", err)
		}
	}
}

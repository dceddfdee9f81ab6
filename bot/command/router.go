// bot/command/router.go
package command

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"

	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
	"github.com/RocketLeagueLatvia/discord-bot/shared/metrics"
	sharedredis "github.com/RocketLeagueLatvia/discord-bot/shared/redis"
)

// Sender posts to a channel. *discordgo.Session implements it.
type Sender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Throttle limits how often a user may run a command. *sharedredis.Throttler
// implements it.
type Throttle interface {
	Allow(ctx context.Context, userID, command string) error
}

// Context is what a command handler gets for one message.
type Context struct {
	context.Context
	Sender  Sender
	Message *discordgo.Message
	Args    string
}

// AuthorID is the Discord ID of the user who sent the command.
func (c *Context) AuthorID() string {
	return c.Message.Author.ID
}

// AuthorNick is the author's guild nickname, falling back to the username.
func (c *Context) AuthorNick() string {
	if c.Message.Member != nil && c.Message.Member.Nick != "" {
		return c.Message.Member.Nick
	}
	return c.Message.Author.Username
}

// Reply sends a plain message to the command's channel.
func (c *Context) Reply(content string) error {
	_, err := c.Sender.ChannelMessageSend(c.Message.ChannelID, content)
	return err
}

// ReplyEmbed sends an embed to the command's channel.
func (c *Context) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	_, err := c.Sender.ChannelMessageSendEmbed(c.Message.ChannelID, embed)
	return err
}

// Command is one chat command.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	OwnerOnly   bool
	Throttled   bool
	Run         func(c *Context) error
}

// Option configures a Router.
type Option func(*Router)

// WithThrottle rate limits commands flagged Throttled.
func WithThrottle(t Throttle) Option {
	return func(r *Router) {
		r.throttle = t
	}
}

// WithMetrics counts handled commands.
func WithMetrics(m *metrics.Manager) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithLogger sets the router's logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Router) {
		r.logger = logger.Named("commands")
	}
}

// WithTimeout bounds how long a single command may run.
func WithTimeout(d time.Duration) Option {
	return func(r *Router) {
		r.timeout = d
	}
}

// Router dispatches prefixed chat messages to commands.
type Router struct {
	prefix   string
	isOwner  func(userID string) bool
	throttle Throttle
	metrics  *metrics.Manager
	logger   *logging.Logger
	timeout  time.Duration

	commands map[string]*Command
	ordered  []*Command
}

// NewRouter creates a router for messages starting with prefix. isOwner decides who
// may run owner-only commands.
func NewRouter(prefix string, isOwner func(userID string) bool, opts ...Option) *Router {
	r := &Router{
		prefix:   prefix,
		isOwner:  isOwner,
		logger:   logging.Default().Named("commands"),
		timeout:  15 * time.Second,
		commands: make(map[string]*Command),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds commands under their name and aliases.
func (r *Router) Register(cmds ...*Command) {
	for _, cmd := range cmds {
		r.ordered = append(r.ordered, cmd)
		r.commands[cmd.Name] = cmd
		for _, alias := range cmd.Aliases {
			r.commands[alias] = cmd
		}
	}
}

// Commands returns the registered commands in registration order.
func (r *Router) Commands() []*Command {
	return r.ordered
}

// Prefix is the command prefix.
func (r *Router) Prefix() string {
	return r.prefix
}

// HandleMessageCreate is the discordgo handler for new messages.
func (r *Router) HandleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.Dispatch(ctx, s, m.Message)
}

// splitCommand splits "name rest of args" into the lowercased name and the trimmed
// arguments.
func splitCommand(s string) (string, string) {
	s = strings.TrimSpace(s)
	name, args, _ := strings.Cut(s, " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

// Dispatch runs the command in msg, if any. Bots and unknown commands are ignored.
func (r *Router) Dispatch(ctx context.Context, sender Sender, msg *discordgo.Message) {
	if msg == nil || msg.Author == nil || msg.Author.Bot {
		return
	}
	content := strings.TrimSpace(msg.Content)
	if r.prefix == "" || !strings.HasPrefix(content, r.prefix) {
		return
	}
	name, args := splitCommand(content[len(r.prefix):])
	cmd, ok := r.commands[name]
	if !ok {
		return
	}

	c := &Context{Context: ctx, Sender: sender, Message: msg, Args: args}
	logger := r.logger.With("command", cmd.Name, "user", msg.Author.ID, "channel", msg.ChannelID)
	outcome := r.run(c, cmd, logger)
	r.metrics.ObserveCommand(cmd.Name, outcome)
}

func (r *Router) run(c *Context, cmd *Command, logger *logging.Logger) (outcome string) {
	defer func() {
		if v := recover(); v != nil {
			logger.Error("command panicked", "panic", v, "stack", string(debug.Stack()))
			r.reply(c, logger, msgGenericError)
			outcome = "panic"
		}
	}()

	if cmd.OwnerOnly && (r.isOwner == nil || !r.isOwner(c.AuthorID())) {
		r.reply(c, logger, "Only the bot owner(s) may use this command.")
		return "forbidden"
	}

	if cmd.Throttled && r.throttle != nil {
		if err := r.throttle.Allow(c, c.AuthorID(), cmd.Name); err != nil {
			if errors.Is(err, sharedredis.ErrThrottled) {
				r.reply(c, logger, userMessage(err))
				return "throttled"
			}
			// Fail open: a Redis outage should not take the bot down.
			logger.Warn("throttle check failed", "error", err)
		}
	}

	if err := cmd.Run(c); err != nil {
		msg, known := describe(err)
		if known {
			logger.Debug("command rejected", "error", err)
		} else {
			logger.Error("command failed", "error", err)
		}
		r.reply(c, logger, msg)
		if known {
			return "rejected"
		}
		return "error"
	}
	logger.Debug("command handled")
	return "ok"
}

func (r *Router) reply(c *Context, logger *logging.Logger, content string) {
	if err := c.Reply(content); err != nil {
		logger.Warn("failed to send reply", "error", err)
	}
}

// bot/command/embeds.go
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/RocketLeagueLatvia/discord-bot/shared/models"
	"github.com/RocketLeagueLatvia/discord-bot/shared/teambuilder"
)

const (
	colorPlayers = 0x228B22
	colorEvents  = 0x4549cc
	colorTeams   = 0xE67E22

	// Discord rejects embed field values longer than this.
	maxFieldValue = 1024
)

func mention(id string) string {
	return "<@" + id + ">"
}

func formatMMR(mmr *int) string {
	if mmr == nil {
		return "-"
	}
	return strconv.Itoa(*mmr)
}

// column joins lines into one embed field value, cutting it at the field limit.
func column(lines []string) string {
	if len(lines) == 0 {
		return "-"
	}
	var b strings.Builder
	for i, line := range lines {
		next := line
		if i > 0 {
			next = "\n" + line
		}
		if b.Len()+len(next) > maxFieldValue-4 {
			b.WriteString("\n…")
			break
		}
		b.WriteString(next)
	}
	return b.String()
}

// playerListEmbed renders registrations as Nickname and MMR columns.
func playerListEmbed(title string, players []models.EventPlayer) *discordgo.MessageEmbed {
	nicks := make([]string, len(players))
	mmrs := make([]string, len(players))
	for i, p := range players {
		nicks[i] = p.DiscordNick
		mmrs[i] = formatMMR(p.MaxMMR)
	}
	return &discordgo.MessageEmbed{
		Title: title,
		Color: colorPlayers,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Nickname", Value: column(nicks), Inline: true},
			{Name: "MMR", Value: column(mmrs), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d players", len(players))},
	}
}

// eventListEmbed renders events with their window states.
func eventListEmbed(events []models.Event) *discordgo.MessageEmbed {
	names := make([]string, len(events))
	registration := make([]string, len(events))
	checkIn := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
		registration[i] = string(e.Status.Registration)
		checkIn[i] = string(e.Status.CheckIn)
	}
	return &discordgo.MessageEmbed{
		Title: "Upcoming events",
		Color: colorEvents,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Name", Value: column(names), Inline: true},
			{Name: "Registration", Value: column(registration), Inline: true},
			{Name: "Check in", Value: column(checkIn), Inline: true},
		},
	}
}

func teamLines(team teambuilder.Team) []string {
	lines := make([]string, len(team))
	for i, p := range team {
		line := fmt.Sprintf("%s (%s)", p.Name, formatMMR(p.Rating))
		if i == 0 {
			line += " ©"
		}
		lines[i] = line
	}
	return lines
}

// draftEmbed shows the draft's teams, the remaining players and whose turn it is.
func draftEmbed(eventName string, d teambuilder.Draft) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(d.Teams)+1)
	for i, team := range d.Teams {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("Team %d", i+1),
			Value:  column(teamLines(team)),
			Inline: true,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Draft for %q", eventName),
		Color: colorTeams,
	}
	if captain, ok := d.CurrentCaptain(); ok {
		pool := make([]string, len(d.Pool))
		for i, p := range d.Pool {
			pool[i] = fmt.Sprintf("%s (%s)", p.Name, formatMMR(p.Rating))
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Remaining", Value: column(pool)})
		embed.Description = fmt.Sprintf("Round %d. %s to pick.", d.Round(), mention(captain.ID))
	} else {
		embed.Description = "The draft is finished."
	}
	embed.Fields = fields
	return embed
}

// teamsEmbed renders final team assignments using the nicks registered to the event.
func teamsEmbed(event *models.Event) *discordgo.MessageEmbed {
	nicks := make(map[string]string, len(event.Players))
	for _, p := range event.Players {
		nicks[p.DiscordID] = p.DiscordNick
	}
	fields := make([]*discordgo.MessageEmbedField, len(event.Teams))
	for i, team := range event.Teams {
		names := make([]string, len(team.Players))
		for j, id := range team.Players {
			if nick, ok := nicks[id]; ok {
				names[j] = nick
			} else {
				names[j] = mention(id)
			}
		}
		fields[i] = &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("Team %d", i+1),
			Value:  column(names),
			Inline: true,
		}
	}
	return &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("Teams for %q", event.Name),
		Color:  colorTeams,
		Fields: fields,
	}
}

// helpEmbed lists the commands a user can run.
func helpEmbed(prefix string, cmds []*Command) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		usage := prefix + cmd.Name
		if cmd.Usage != "" {
			usage += " " + cmd.Usage
		}
		line := fmt.Sprintf("`%s` %s", usage, cmd.Description)
		if cmd.OwnerOnly {
			line += " (owner)"
		}
		lines = append(lines, line)
	}
	return &discordgo.MessageEmbed{
		Title:       "Commands",
		Color:       colorEvents,
		Description: strings.Join(lines, "\n"),
	}
}

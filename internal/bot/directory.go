package bot

import (
	"guildgate/internal/web"

	"github.com/bwmarrin/discordgo"
)

// The bot is the dashboard's window into the live guild.
var _ web.GuildDirectory = (*Bot)(nil)

func (b *Bot) MemberProfile(userID string) (web.Profile, bool) {
	member, err := b.session.State.Member(b.cfg.GuildID, userID)
	if err != nil || member == nil {
		member, _ = b.session.GuildMember(b.cfg.GuildID, userID)
	}
	if member == nil || member.User == nil {
		return web.Profile{}, false
	}

	name := member.Nick
	if name == "" {
		name = member.User.Username
	}
	return web.Profile{
		DisplayName: name,
		AvatarURL:   member.User.AvatarURL(""),
	}, true
}

func (b *Bot) RoleOptions() ([]web.Option, error) {
	roles, err := b.session.GuildRoles(b.cfg.GuildID)
	if err != nil {
		return nil, err
	}

	options := make([]web.Option, 0, len(roles))
	for _, role := range roles {
		if role == nil || role.Name == "@everyone" {
			continue
		}
		options = append(options, web.Option{ID: role.ID, Name: role.Name})
	}
	return options, nil
}

func (b *Bot) ChannelOptions() ([]web.Option, error) {
	channels, err := b.session.GuildChannels(b.cfg.GuildID)
	if err != nil {
		return nil, err
	}

	options := make([]web.Option, 0, len(channels))
	for _, channel := range channels {
		if channel == nil || channel.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		options = append(options, web.Option{ID: channel.ID, Name: channel.Name})
	}
	return options, nil
}

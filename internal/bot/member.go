package bot

import (
	"context"

	"guildgate/internal/reconcile"

	"github.com/bwmarrin/discordgo"
)

// discordMember adapts a live guild member to the reconciler's capability
// interface. discordgo's REST calls carry no context, so ctx is accepted to
// satisfy the contract and ignored.
type discordMember struct {
	session *discordgo.Session
	guildID string
	member  *discordgo.Member
}

func (b *Bot) memberHandle(member *discordgo.Member) reconcile.Member {
	return &discordMember{session: b.session, guildID: b.cfg.GuildID, member: member}
}

func (m *discordMember) UserID() string {
	return m.member.User.ID
}

func (m *discordMember) Username() string {
	return m.member.User.Username
}

func (m *discordMember) SetNickname(ctx context.Context, nick string) error {
	_ = ctx
	return m.session.GuildMemberNickname(m.guildID, m.member.User.ID, nick)
}

func (m *discordMember) AddRole(ctx context.Context, roleID string) error {
	_ = ctx
	return m.session.GuildMemberRoleAdd(m.guildID, m.member.User.ID, roleID)
}

func (m *discordMember) RemoveRole(ctx context.Context, roleID string) error {
	_ = ctx
	return m.session.GuildMemberRoleRemove(m.guildID, m.member.User.ID, roleID)
}

// EnsureRole matches by exact name, the state cache first and the API as
// fallback, creating the role only when no match exists.
func (m *discordMember) EnsureRole(ctx context.Context, name string) (string, error) {
	_ = ctx

	var roles []*discordgo.Role
	if guild, err := m.session.State.Guild(m.guildID); err == nil && guild != nil {
		roles = guild.Roles
	}
	if len(roles) == 0 {
		fetched, err := m.session.GuildRoles(m.guildID)
		if err != nil {
			return "", err
		}
		roles = fetched
	}

	for _, role := range roles {
		if role != nil && role.Name == name {
			return role.ID, nil
		}
	}

	role, err := m.session.GuildRoleCreate(m.guildID, &discordgo.RoleParams{Name: name})
	if err != nil {
		return "", err
	}
	return role.ID, nil
}

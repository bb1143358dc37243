package bot

import (
	"context"

	"guildgate/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var adminOnly int64 = discordgo.PermissionAdministrator

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "setup",
			Description:              "Publica o botão de verificação da guilda",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:                     "announce",
			Description:              "Envia o aviso de guerra agora",
			DefaultMemberPermissions: &adminOnly,
		},
	}

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, b.cfg.GuildID)
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, b.cfg.GuildID, cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, b.cfg.GuildID, current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, b.cfg.GuildID, cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, b.cfg.GuildID, cmd.ID)
	}
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	switch interaction.ApplicationCommandData().Name {
	case "setup":
		b.handleSetup(ctx, session, interaction)
	case "announce":
		b.handleAnnounce(ctx, session, interaction)
	}
}

// handleSetup posts the verification entry message to the configured
// verification channel, falling back to the channel the command ran in.
func (b *Bot) handleSetup(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	cfg, err := b.store.GetGuildConfig(ctx, b.cfg.GuildID)
	if err != nil {
		b.logger.Warn("guild config read failed", zap.Error(err))
		b.respond(session, interaction, "❌ Erro ao ler a configuração.", true)
		return
	}

	channelID := cfg.VerificationChannel
	if channelID == "" {
		channelID = interaction.ChannelID
	}

	if err := b.postVerificationEntry(channelID); err != nil {
		b.respond(session, interaction, "❌ Não consegui publicar no canal configurado.", true)
		return
	}
	b.respond(session, interaction, "✅ Botão de verificação publicado em <#"+channelID+">.", true)
}

// handleAnnounce is the manual counterpart of the weekly scheduler. Unlike
// the scheduled send, a missing channel or a failed delivery is reported to
// the administrator instead of silently skipped.
func (b *Bot) handleAnnounce(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	cfg, err := b.store.GetGuildConfig(ctx, b.cfg.GuildID)
	if err != nil {
		b.logger.Warn("guild config read failed", zap.Error(err))
		b.respond(session, interaction, "❌ Erro ao ler a configuração.", true)
		return
	}
	if cfg.AnnouncementChannel == "" {
		b.respond(session, interaction, "❌ Nenhum canal de aviso configurado.", true)
		return
	}

	text := cfg.AnnouncementText
	if text == "" {
		text = storage.DefaultWarAnnouncement
	}
	if err := b.SendAnnouncement(cfg.AnnouncementChannel, text); err != nil {
		b.respond(session, interaction, "❌ Não consegui enviar o aviso. Verifique as permissões do canal.", true)
		return
	}
	b.respond(session, interaction, "✅ Aviso de guerra enviado.", true)
}

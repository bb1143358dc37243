package bot

import (
	"context"
	"time"

	"guildgate/internal/config"
	"guildgate/internal/reconcile"
	"guildgate/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg        config.Config
	logger     *zap.Logger
	store      *storage.Store
	reconciler *reconcile.Reconciler
	session    *discordgo.Session
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, reconciler *reconcile.Reconciler) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildPresences

	return &Bot{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		reconciler: reconciler,
		session:    session,
	}, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onPresenceUpdate)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

// SendAnnouncement delivers a plain message to a channel. Used by the war
// announcement scheduler and the /announce command.
func (b *Bot) SendAnnouncement(channelID, content string) error {
	_, err := b.session.ChannelMessageSend(channelID, content)
	return err
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID != b.cfg.GuildID {
		return
	}

	ctx := context.Background()
	if err := b.store.TouchMessage(ctx, msg.Author.ID, msg.Author.Username, time.Now()); err != nil {
		b.logger.Warn("message activity upsert failed", zap.String("user_id", msg.Author.ID), zap.Error(err))
	}
}

func (b *Bot) onPresenceUpdate(session *discordgo.Session, event *discordgo.PresenceUpdate) {
	if event.User == nil || event.GuildID != b.cfg.GuildID {
		return
	}

	ctx := context.Background()
	if err := b.store.TouchPresence(ctx, event.User.ID, time.Now()); err != nil {
		b.logger.Warn("presence upsert failed", zap.String("user_id", event.User.ID), zap.Error(err))
	}
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	if event.User == nil || event.GuildID != b.cfg.GuildID {
		return
	}

	ctx := context.Background()
	if err := b.store.SetMembership(ctx, event.User.ID, false); err != nil {
		b.logger.Warn("membership update failed", zap.String("user_id", event.User.ID), zap.Error(err))
	}
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.GuildID != b.cfg.GuildID {
		return
	}

	ctx := context.Background()
	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, session, interaction)
	case discordgo.InteractionMessageComponent:
		if interaction.MessageComponentData().CustomID == verifyButtonID {
			b.openVerificationModal(session, interaction)
		}
	case discordgo.InteractionModalSubmit:
		if interaction.ModalSubmitData().CustomID == verifyModalID {
			b.handleVerificationSubmit(ctx, session, interaction)
		}
	}
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

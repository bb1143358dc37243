package bot

import (
	"context"
	"strings"

	"guildgate/internal/reconcile"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	verifyButtonID = "verify_button"
	verifyModalID  = "verify_modal"
	nickInputID    = "nick"
	uidInputID     = "uid"
)

func (b *Bot) postVerificationEntry(channelID string) error {
	embed := &discordgo.MessageEmbed{
		Title:       "🛡️ Registro de Membros",
		Description: "Clique no botão abaixo para registrar seu ID e Nick e liberar seu acesso.",
		Color:       0x5865F2,
	}
	_, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Verificar-se na Guilda",
						Style:    discordgo.PrimaryButton,
						CustomID: verifyButtonID,
					},
				},
			},
		},
	})
	return err
}

// openVerificationModal shows a fresh form to the clicking user. Nothing is
// persisted between the click and the submission.
func (b *Bot) openVerificationModal(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: verifyModalID,
			Title:    "Dados do Jogo",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  nickInputID,
							Label:     "Nick no jogo",
							Style:     discordgo.TextInputShort,
							Required:  true,
							MaxLength: 32,
						},
					},
				},
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID: uidInputID,
							Label:    "Seu ID (UID)",
							Style:    discordgo.TextInputShort,
							Required: true,
						},
					},
				},
			},
		},
	})
	if err != nil {
		b.logger.Warn("modal open failed", zap.Error(err))
	}
}

func (b *Bot) handleVerificationSubmit(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Member == nil || interaction.Member.User == nil {
		return
	}

	// The submitted id is passed through raw: the UID role name is an exact
	// string key and trimming here would orphan previously created roles.
	data := interaction.ModalSubmitData()
	nick := modalInputValue(data, nickInputID)
	uid := modalInputValue(data, uidInputID)
	if strings.TrimSpace(nick) == "" || strings.TrimSpace(uid) == "" {
		b.respond(session, interaction, "❌ Preencha o Nick e o ID para se verificar.", true)
		return
	}

	// Reconciliation makes several sequential API calls; defer the reply so
	// the interaction token does not expire under us.
	if err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		b.logger.Warn("verification defer failed", zap.Error(err))
		return
	}

	cfg, err := b.store.GetGuildConfig(ctx, b.cfg.GuildID)
	if err != nil {
		b.logger.Warn("guild config read failed", zap.Error(err))
		// Absent config means no role actions, so proceed with the zero value.
	}

	member := b.memberHandle(interaction.Member)
	result, err := b.reconciler.Reconcile(ctx, cfg, member, nick, uid)

	content := "✅ Registro concluído com sucesso!"
	if result.Status == reconcile.StatusPermissionDenied {
		b.logger.Warn("verification failed",
			zap.String("user_id", member.UserID()),
			zap.String("role", result.RoleName),
			zap.Error(err),
		)
		content = "❌ Erro ao aplicar cargos. Verifique a hierarquia do bot."
	}

	if _, err := session.FollowupMessageCreate(interaction.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		b.logger.Warn("verification reply failed", zap.Error(err))
	}
}

func modalInputValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, component := range actionsRow.Components {
			input, ok := component.(*discordgo.TextInput)
			if !ok {
				continue
			}
			if input.CustomID == customID {
				return input.Value
			}
		}
	}
	return ""
}

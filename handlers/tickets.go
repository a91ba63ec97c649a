package handlers

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/JulianoPassing/scc-ticket-hp/ticket"
)

func (h *Handler) handleComponent(ctx context.Context, in *ticket.Interaction, customID string) {
	var err error
	switch customID {
	case ticket.ButtonOpen:
		err = h.mgr.RequestOpen(ctx, in)
	case ticket.ButtonClose:
		err = h.mgr.RequestClose(ctx, in)
	default:
		h.log.Debug("unknown component", zap.String("custom_id", customID))
		return
	}
	h.report(in, customID, err)
}

func (h *Handler) handleModal(ctx context.Context, in *ticket.Interaction, data discordgo.ModalSubmitInteractionData) {
	var err error
	switch data.CustomID {
	case ticket.ModalOpen:
		_, err = h.mgr.SubmitOpen(ctx, in, modalValue(data, ticket.InputOpenReason))
	case ticket.ModalClose:
		err = h.mgr.SubmitClose(ctx, in, modalValue(data, ticket.InputCloseReason))
	default:
		h.log.Debug("unknown modal", zap.String("custom_id", data.CustomID))
		return
	}
	h.report(in, data.CustomID, err)
}

// report logs the outcome. Refusals were already explained to the user and
// are not errors of the bot.
func (h *Handler) report(in *ticket.Interaction, customID string, err error) {
	if err == nil {
		return
	}
	log := h.log.With(
		zap.String("custom_id", customID),
		zap.String("guild_id", in.GuildID),
		zap.String("channel_id", in.ChannelID),
		zap.String("user_id", in.User.ID))
	if ticket.IsPolicy(err) {
		log.Debug("request refused", zap.Error(err))
		return
	}
	log.Error("ticket interaction failed", zap.Error(err))
}

func modalValue(data discordgo.ModalSubmitInteractionData, id string) string {
	for _, row := range data.Components {
		var comps []discordgo.MessageComponent
		switch r := row.(type) {
		case *discordgo.ActionsRow:
			comps = r.Components
		case discordgo.ActionsRow:
			comps = r.Components
		}
		for _, c := range comps {
			switch ti := c.(type) {
			case *discordgo.TextInput:
				if ti.CustomID == id {
					return strings.TrimSpace(ti.Value)
				}
			case discordgo.TextInput:
				if ti.CustomID == id {
					return strings.TrimSpace(ti.Value)
				}
			}
		}
	}
	return ""
}

package ticket

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Responder wraps a Replier so an interaction is answered at most once.
type Responder struct {
	replier Replier

	mu        sync.Mutex
	responded bool
}

func NewResponder(r Replier) *Responder {
	return &Responder{replier: r}
}

func (r *Responder) Responded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.responded
}

// Respond sends resp unless the interaction was already answered, in which
// case it returns ErrAlreadyResponded without calling the platform.
func (r *Responder) Respond(ctx context.Context, resp *discordgo.InteractionResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.responded {
		return ErrAlreadyResponded
	}
	if err := r.replier.Respond(ctx, resp); err != nil {
		return err
	}
	r.responded = true
	return nil
}

// Ephemeral answers with a message only the invoker can see.
func (r *Responder) Ephemeral(ctx context.Context, content string) error {
	return r.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         content,
			Flags:           discordgo.MessageFlagsEphemeral,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	})
}

// Modal answers with a single required paragraph input.
func (r *Responder) Modal(ctx context.Context, customID, title, inputID, label string) error {
	return r.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: customID,
			Title:    title,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:  inputID,
							Label:     label,
							Style:     discordgo.TextInputParagraph,
							Required:  true,
							MinLength: 1,
							MaxLength: maxReasonLength,
						},
					},
				},
			},
		},
	})
}

// Followup posts an ephemeral follow-up; it requires a prior response.
func (r *Responder) Followup(ctx context.Context, content string) error {
	if !r.Responded() {
		return r.Ephemeral(ctx, content)
	}
	return r.replier.Followup(ctx, content)
}

package ticket

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestResponderAnswersOnce(t *testing.T) {
	r := &fakeReplier{}
	resp := NewResponder(r)
	ctx := context.Background()

	if resp.Responded() {
		t.Fatal("fresh responder reports responded")
	}
	if err := resp.Ephemeral(ctx, "first"); err != nil {
		t.Fatalf("first reply: %v", err)
	}
	if err := resp.Ephemeral(ctx, "second"); !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("second reply err = %v, want ErrAlreadyResponded", err)
	}
	if r.count() != 1 {
		t.Fatalf("platform got %d responses, want 1", r.count())
	}
	if got := responseContent(r.last()); got != "first" {
		t.Errorf("content = %q", got)
	}
	if r.last().Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Error("reply is not ephemeral")
	}
}

func TestResponderFailedReplyCanRetry(t *testing.T) {
	r := &fakeReplier{err: errors.New("unknown interaction")}
	resp := NewResponder(r)
	if err := resp.Ephemeral(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if resp.Responded() {
		t.Error("failed reply marked as responded")
	}
}

func TestResponderModal(t *testing.T) {
	r := &fakeReplier{}
	resp := NewResponder(r)
	if err := resp.Modal(context.Background(), ModalOpen, "Motivo", InputOpenReason, "Descreva"); err != nil {
		t.Fatal(err)
	}
	got := r.last()
	if got.Type != discordgo.InteractionResponseModal {
		t.Fatalf("type = %v", got.Type)
	}
	if got.Data.CustomID != ModalOpen {
		t.Errorf("custom id = %q", got.Data.CustomID)
	}
	row, ok := got.Data.Components[0].(discordgo.ActionsRow)
	if !ok {
		t.Fatalf("component is %T", got.Data.Components[0])
	}
	input, ok := row.Components[0].(discordgo.TextInput)
	if !ok {
		t.Fatalf("row component is %T", row.Components[0])
	}
	if input.CustomID != InputOpenReason || !input.Required || input.Style != discordgo.TextInputParagraph {
		t.Errorf("unexpected input %+v", input)
	}
}

func TestResponderFollowup(t *testing.T) {
	r := &fakeReplier{}
	resp := NewResponder(r)
	ctx := context.Background()

	// Without a prior response the follow-up becomes the response.
	if err := resp.Followup(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := resp.Followup(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if r.count() != 1 || len(r.followups) != 1 || r.followups[0] != "b" {
		t.Errorf("responses=%d followups=%v", r.count(), r.followups)
	}
}

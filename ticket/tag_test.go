package ticket

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		topic  string
		wantID string
		wantOK bool
	}{
		{"TICKET_USER:123", "123", true},
		{"Suporte | TICKET_USER:456", "456", true},
		{"TICKET_USER:789 aberto", "789", true},
		{"TICKET_USER:", "", false},
		{"TICKET_USER:abc", "", false},
		{"", "", false},
		{"random topic", "", false},
	}
	for _, tt := range tests {
		id, ok := ParseTag(tt.topic)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("ParseTag(%q) = %q, %v; want %q, %v", tt.topic, id, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestTagRoundTrip(t *testing.T) {
	id, ok := ParseTag(Tag("42"))
	if !ok || id != "42" {
		t.Fatalf("ParseTag(Tag(42)) = %q, %v", id, ok)
	}
}

func TestIsTicket(t *testing.T) {
	if IsTicket(nil) {
		t.Error("nil channel reported as ticket")
	}
	if IsTicket(&discordgo.Channel{Name: "ticket-bob"}) {
		t.Error("name alone must not make a ticket")
	}
	if !IsTicket(&discordgo.Channel{Name: "whatever", Topic: Tag("1")}) {
		t.Error("tagged channel not reported as ticket")
	}
}

func TestChannelName(t *testing.T) {
	tests := []struct {
		user *discordgo.User
		want string
	}{
		{&discordgo.User{ID: "1", Username: "Alice"}, "ticket-alice"},
		{&discordgo.User{ID: "2", Username: "joão.silva"}, "ticket-joosilva"},
		{&discordgo.User{ID: "3", Username: "李"}, "ticket-3"},
		{&discordgo.User{ID: "4", Username: "bob_the-builder"}, "ticket-bob_the-builder"},
	}
	for _, tt := range tests {
		if got := ChannelName("ticket-", tt.user); got != tt.want {
			t.Errorf("ChannelName(%q) = %q, want %q", tt.user.Username, got, tt.want)
		}
	}

	long := ChannelName("ticket-", &discordgo.User{ID: "5", Username: strings.Repeat("a", 200)})
	if len(long) != maxChannelName {
		t.Errorf("long name length = %d, want %d", len(long), maxChannelName)
	}
}

func TestResolveOwner(t *testing.T) {
	tagged := &discordgo.Channel{GuildID: testGuild, Topic: Tag("77")}
	if id, ok := ResolveOwner(tagged, testSupport); !ok || id != "77" {
		t.Errorf("tagged owner = %q, %v", id, ok)
	}

	legacy := &discordgo.Channel{
		GuildID: testGuild,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{ID: testGuild, Type: discordgo.PermissionOverwriteTypeRole},
			{ID: testSupport, Type: discordgo.PermissionOverwriteTypeRole},
			{ID: "88", Type: discordgo.PermissionOverwriteTypeMember},
		},
	}
	if id, ok := ResolveOwner(legacy, testSupport); !ok || id != "88" {
		t.Errorf("overwrite owner = %q, %v", id, ok)
	}

	none := &discordgo.Channel{GuildID: testGuild}
	if _, ok := ResolveOwner(none, testSupport); ok {
		t.Error("owner resolved for channel without tag or overwrites")
	}
}

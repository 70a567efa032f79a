package webhook

import (
	"context"
	"strings"
	"testing"

	"deskhub_backend/platform/logger"

	"github.com/google/uuid"
)

func TestGenerateAPIKey(t *testing.T) {
	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if !strings.HasPrefix(plaintext, "whk_") {
		t.Fatalf("plaintext = %q, want whk_ prefix", plaintext)
	}
	if len(plaintext) != 4+64 {
		t.Fatalf("plaintext length = %d, want 68", len(plaintext))
	}
	if prefix != plaintext[:12] {
		t.Fatalf("prefix = %q, want first 12 chars of the key", prefix)
	}
	if hash == plaintext {
		t.Fatal("hash must not equal the plaintext key")
	}
	if HashKey(plaintext) != hash {
		t.Fatal("HashKey must reproduce the stored hash for lookup")
	}
	if len(hash) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(hash))
	}
}

func TestGenerateAPIKey_Unique(t *testing.T) {
	a, _, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, _, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a == b {
		t.Fatal("two generated keys must not collide")
	}
}

func TestIsDomainAllowed(t *testing.T) {
	cases := []struct {
		origin  string
		domains []string
		want    bool
	}{
		{"https://example.com", []string{"example.com"}, true},
		{"https://example.com", []string{"other.com"}, false},
		{"https://shop.example.com", []string{"*.example.com"}, true},
		{"https://example.com", []string{"*.example.com"}, true},
		{"https://evilexample.com", []string{"*.example.com"}, false},
		{"https://anything.io", []string{"*"}, true},
		{"", []string{"example.com"}, false},
	}
	for _, tc := range cases {
		if got := isDomainAllowed(tc.origin, tc.domains); got != tc.want {
			t.Errorf("isDomainAllowed(%q, %v) = %v, want %v", tc.origin, tc.domains, got, tc.want)
		}
	}
}

type fakeResolver struct {
	clientID  uuid.UUID
	lastEmail string
	lastPhone string
	lastName  string
}

func (f *fakeResolver) FindOrCreateByEmail(_ context.Context, email, name string) (uuid.UUID, error) {
	f.lastEmail = email
	f.lastName = name
	return f.clientID, nil
}

func (f *fakeResolver) FindOrCreateByWhatsApp(_ context.Context, whatsappID, name string) (uuid.UUID, error) {
	f.lastPhone = whatsappID
	f.lastName = name
	return f.clientID, nil
}

type fakeIntake struct {
	ticketID    uuid.UUID
	created     bool
	lastChannel string
	lastSubject string
	lastContent string
}

func (f *fakeIntake) IngestClientMessage(_ context.Context, _ uuid.UUID, channel, subject, content string) (uuid.UUID, bool, error) {
	f.lastChannel = channel
	f.lastSubject = subject
	f.lastContent = content
	return f.ticketID, f.created, nil
}

func TestProcessFormSubmission(t *testing.T) {
	resolver := &fakeResolver{clientID: uuid.New()}
	intake := &fakeIntake{ticketID: uuid.New(), created: true}
	svc := NewService(resolver, intake, logger.New("test"))

	result, err := svc.ProcessFormSubmission(context.Background(), "visitor@example.com", "Visitor", "Broken widget", "It broke.")
	if err != nil {
		t.Fatalf("process form: %v", err)
	}

	if intake.lastChannel != "FORM" {
		t.Fatalf("channel = %q, want FORM", intake.lastChannel)
	}
	if intake.lastSubject != "Broken widget" || intake.lastContent != "It broke." {
		t.Fatalf("intake got subject=%q content=%q", intake.lastSubject, intake.lastContent)
	}
	if resolver.lastEmail != "visitor@example.com" || resolver.lastName != "Visitor" {
		t.Fatalf("resolver got email=%q name=%q", resolver.lastEmail, resolver.lastName)
	}
	if result.TicketID != intake.ticketID || result.ClientID != resolver.clientID || !result.TicketCreated {
		t.Fatalf("result = %+v", result)
	}
}

func TestProcessChatMessage(t *testing.T) {
	resolver := &fakeResolver{clientID: uuid.New()}
	intake := &fakeIntake{ticketID: uuid.New(), created: false}
	svc := NewService(resolver, intake, logger.New("test"))

	result, err := svc.ProcessChatMessage(context.Background(), "visitor@example.com", "Visitor", "hello?")
	if err != nil {
		t.Fatalf("process chat: %v", err)
	}

	if intake.lastChannel != "CHAT" {
		t.Fatalf("channel = %q, want CHAT", intake.lastChannel)
	}
	if intake.lastSubject != "" {
		t.Fatalf("subject = %q, want empty so the channel default applies", intake.lastSubject)
	}
	if result.TicketCreated {
		t.Fatal("expected append, not a new ticket")
	}
}

func TestProcessWhatsAppMessage(t *testing.T) {
	resolver := &fakeResolver{clientID: uuid.New()}
	intake := &fakeIntake{ticketID: uuid.New(), created: true}
	svc := NewService(resolver, intake, logger.New("test"))

	result, err := svc.ProcessWhatsAppMessage(context.Background(), "31612345678", "Visitor", "hoi")
	if err != nil {
		t.Fatalf("process whatsapp: %v", err)
	}

	if resolver.lastPhone != "31612345678" {
		t.Fatalf("resolver got phone=%q", resolver.lastPhone)
	}
	if intake.lastChannel != "WHATSAPP" {
		t.Fatalf("channel = %q, want WHATSAPP", intake.lastChannel)
	}
	if !result.TicketCreated {
		t.Fatal("expected a new ticket")
	}
}

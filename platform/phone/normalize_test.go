package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"us national", "(415) 555-2671", "+14155552671"},
		{"already e164", "+14155552671", "+14155552671"},
		{"international with spaces", "+31 6 12345678", "+31612345678"},
		{"invalid kept as-is", "not-a-number", "not-a-number"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeE164(tt.input); got != tt.want {
				t.Fatalf("NormalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWhatsAppID(t *testing.T) {
	if got := WhatsAppID("+1 415 555 2671"); got != "14155552671" {
		t.Fatalf("WhatsAppID = %q, want 14155552671", got)
	}
	if got := WhatsAppID("garbage"); got != "garbage" {
		t.Fatalf("WhatsAppID should keep unparseable input, got %q", got)
	}
}

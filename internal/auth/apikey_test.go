package auth

import (
	"strings"
	"testing"
)

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey("cdp_", 32)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if !strings.HasPrefix(key, "cdp_") {
		t.Errorf("key %q missing cdp_ prefix", key)
	}
	// 32 random bytes base64url-encoded is 43 characters.
	if len(key) != len("cdp_")+43 {
		t.Errorf("key length = %d, want %d", len(key), len("cdp_")+43)
	}
}

func TestGenerateAPIKeyConfiguredLength(t *testing.T) {
	// base64url without padding encodes n bytes into ceil(4n/3) characters.
	key, err := GenerateAPIKey("cdp_", 64)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if len(key) != len("cdp_")+86 {
		t.Errorf("key length = %d, want %d for 64 random bytes", len(key), len("cdp_")+86)
	}

	// A missing length falls back to the default rather than producing an empty secret.
	key, err = GenerateAPIKey("cdp_", 0)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if len(key) != len("cdp_")+43 {
		t.Errorf("key length = %d, want default-length %d", len(key), len("cdp_")+43)
	}
}

func TestGenerateAPIKeyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateAPIKey("cdp_", 32)
		if err != nil {
			t.Fatalf("GenerateAPIKey: %v", err)
		}
		if seen[key] {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}

func TestMaskAPIKey(t *testing.T) {
	key, err := GenerateAPIKey("cdp_", 32)
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}

	masked := MaskAPIKey(key, "cdp_")
	if !strings.HasPrefix(masked, "cdp_****") {
		t.Errorf("masked key %q should start with cdp_****", masked)
	}
	if !strings.HasSuffix(masked, key[len(key)-4:]) {
		t.Errorf("masked key %q should end with the key's last 4 chars", masked)
	}
	if strings.Contains(masked, key[len("cdp_"):len(key)-4]) {
		t.Error("masked key leaks the secret middle section")
	}
}

func TestMaskAPIKeyTooShort(t *testing.T) {
	if got := MaskAPIKey("cdp_ab", "cdp_"); got != "****" {
		t.Errorf("MaskAPIKey short key = %q, want ****", got)
	}
	if got := MaskAPIKey("wrongprefix123456789", "cdp_"); got != "****" {
		t.Errorf("MaskAPIKey wrong prefix = %q, want ****", got)
	}
}

func TestExtractAPIKeyFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer cdp_abc123", "cdp_abc123", false},
		{"empty header", "", "", true},
		{"no bearer", "cdp_abc123", "", true},
		{"bearer only", "Bearer ", "", true},
		{"extra whitespace", "Bearer   cdp_abc123  ", "cdp_abc123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractAPIKeyFromHeader(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
		})
	}
}

package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewSessionID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewSessionID()
		parsed, err := uuid.Parse(id)
		if err != nil {
			t.Fatalf("NewSessionID() = %q, not a UUID: %v", id, err)
		}
		if parsed.Version() != 4 {
			t.Errorf("version = %d, want 4", parsed.Version())
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestKeys(t *testing.T) {
	if got := VolatileKey("abc"); got != "session:abc" {
		t.Errorf("VolatileKey() = %q", got)
	}
	if got := ShadowKey("abc"); got != "session:shadow:abc" {
		t.Errorf("ShadowKey() = %q", got)
	}
}

func TestSessionIDFromVolatileKey(t *testing.T) {
	tests := []struct {
		key    string
		wantID string
		wantOK bool
	}{
		{"session:abc", "abc", true},
		{"session:a:b", "a:b", true},
		{"session:", "", true},
		{"session:shadow:abc", "", false},
		{"other:abc", "", false},
		{"sess", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			id, ok := SessionIDFromVolatileKey(tt.key)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("SessionIDFromVolatileKey(%q) = (%q, %v), want (%q, %v)",
					tt.key, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestSessionIDFromShadowKey(t *testing.T) {
	if id, ok := SessionIDFromShadowKey("session:shadow:xyz"); !ok || id != "xyz" {
		t.Errorf("got (%q, %v), want (xyz, true)", id, ok)
	}
	if _, ok := SessionIDFromShadowKey("session:xyz"); ok {
		t.Error("volatile key should not parse as shadow")
	}
}

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want error
	}{
		{"uuid", NewSessionID(), nil},
		{"opaque", "sess-1", nil},
		{"colon inside", "tenant:42", nil},
		{"shadow word not prefix", "my-shadow:1", nil},
		{"max length", strings.Repeat("a", MaxSessionIDLength), nil},
		{"empty", "", ErrMissingArgument},
		{"shadow prefix", "shadow:abc", ErrInvalidSessionID},
		{"bare shadow prefix", "shadow:", ErrInvalidSessionID},
		{"too long", strings.Repeat("a", MaxSessionIDLength+1), ErrInvalidSessionID},
		{"space", "a b", ErrInvalidSessionID},
		{"newline", "a\nb", ErrInvalidSessionID},
		{"invalid utf8", "a\xffb", ErrInvalidSessionID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionID(tt.id)
			if tt.want == nil {
				if err != nil {
					t.Errorf("ValidateSessionID(%q) error = %v", tt.id, err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateSessionID(%q) error = %v, want %v", tt.id, err, tt.want)
			}
		})
	}
}

func TestValidateSessionID_VolatileKeyStaysVolatile(t *testing.T) {
	for _, id := range []string{"abc", "tenant:1", NewSessionID()} {
		if err := ValidateSessionID(id); err != nil {
			t.Fatal(err)
		}
		if _, ok := SessionIDFromVolatileKey(VolatileKey(id)); !ok {
			t.Errorf("VolatileKey(%q) does not parse back as a volatile key", id)
		}
	}
}

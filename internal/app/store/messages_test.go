package store

import "testing"

func TestConversationKeyIsOrderIndependent(t *testing.T) {
	a := ConversationKey("user-a", "user-b")
	b := ConversationKey("user-b", "user-a")
	if a != b {
		t.Errorf("Expected the same key for both orderings, got %q and %q", a, b)
	}
	if a != "user-a:user-b" {
		t.Errorf("Expected sorted ids joined by a colon, got %q", a)
	}
}

func TestConversationKeyDistinctPairs(t *testing.T) {
	if ConversationKey("u1", "u2") == ConversationKey("u1", "u3") {
		t.Error("Different pairs must produce different keys")
	}
}

func TestValidConversationKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"canonical", "user-a:user-b", true},
		{"same id twice", "user-a:user-a", true},
		{"unsorted", "user-b:user-a", false},
		{"missing separator", "user-a", false},
		{"empty side", "user-a:", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidConversationKey(tt.key); got != tt.want {
				t.Errorf("ValidConversationKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

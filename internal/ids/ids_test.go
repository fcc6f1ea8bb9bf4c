package ids

import (
	"strings"
	"testing"
)

func TestNewAndCheck(t *testing.T) {
	id := New(PrefixEntry)
	if !strings.HasPrefix(id, "je_") {
		t.Fatalf("New(PrefixEntry) = %q, want je_ prefix", id)
	}
	if err := Check(id, PrefixEntry); err != nil {
		t.Errorf("Check(%q, je) = %v, want nil", id, err)
	}
	if err := Check(id, PrefixAccount); err == nil {
		t.Errorf("Check(%q, acct) = nil, want prefix error", id)
	}
}

func TestCheckRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not-an-id", "je_"} {
		if err := Check(s, PrefixEntry); err == nil {
			t.Errorf("Check(%q) = nil, want error", s)
		}
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New(PrefixLine)
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

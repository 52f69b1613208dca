package utils

import (
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateID(PrefixRecord)
		if !strings.HasPrefix(id, "rec-") || len(id) != 14 {
			t.Fatalf("unexpected id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword("s3cret-pass", hash) {
		t.Error("expected password to match")
	}
	if CheckPassword("wrong", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) bool
		in   string
		want bool
	}{
		{"user id", ValidateUserID, "usr-abc123", true},
		{"user id bare prefix", ValidateUserID, "usr-", false},
		{"account id wrong prefix", ValidateAccountID, "usr-abc", false},
		{"account id", ValidateAccountID, "acc-abc", true},
		{"record id", ValidateRecordID, "rec-x", true},
		{"session id", ValidateSessionID, "ses-x", true},
		{"report id", ValidateReportID, "rpt-x", true},
		{"username ok", ValidateUsername, "jane_doe", true},
		{"username short", ValidateUsername, "jd", false},
		{"username symbols", ValidateUsername, "jane-doe!", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("%q: got %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

package auth

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	const pepper = "site-pepper"

	t.Run("roundtrip", func(t *testing.T) {
		password := "MySecret42"
		hash, err := HashPassword(password, pepper)
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		if !strings.HasPrefix(hash, "$argon2id$") {
			t.Fatalf("expected argon2id encoding, got %q", hash)
		}
		if !CheckPassword(hash, password, pepper) {
			t.Error("CheckPassword should return true for correct password")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		hash, err := HashPassword("CorrectPassword1", pepper)
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		if CheckPassword(hash, "WrongPassword1", pepper) {
			t.Error("CheckPassword should return false for wrong password")
		}
	})

	t.Run("wrong pepper", func(t *testing.T) {
		hash, err := HashPassword("CorrectPassword1", pepper)
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		if CheckPassword(hash, "CorrectPassword1", "other-pepper") {
			t.Error("CheckPassword should return false when the pepper differs")
		}
	})

	t.Run("different hashes for same password", func(t *testing.T) {
		hash1, err := HashPassword("SamePass99", pepper)
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		hash2, err := HashPassword("SamePass99", pepper)
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		if hash1 == hash2 {
			t.Error("argon2id should produce different hashes for the same password (different salts)")
		}
		if !CheckPassword(hash1, "SamePass99", pepper) {
			t.Error("hash1 should verify")
		}
		if !CheckPassword(hash2, "SamePass99", pepper) {
			t.Error("hash2 should verify")
		}
	})

	t.Run("malformed encodings fail verification", func(t *testing.T) {
		for _, bad := range []string{
			"",
			"plaintext",
			"$argon2id$v=19$m=65536,t=3,p=2$notbase64!!$notbase64!!",
			"$bcrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		} {
			if CheckPassword(bad, "whatever", pepper) {
				t.Errorf("CheckPassword(%q) = true, want false", bad)
			}
		}
	})
}

package auth

import (
	"strings"
	"testing"
)

var testArgon2Params = Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 16}

func TestArgon2Hasher(t *testing.T) {
	h := NewArgon2Hasher(testArgon2Params)

	encoded, err := h.Hash("042917")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=64,t=1,p=1$") {
		t.Errorf("unexpected encoding %q", encoded)
	}
	if strings.Contains(encoded, "042917") {
		t.Error("encoded hash contains the secret")
	}

	if !h.Verify("042917", encoded) {
		t.Error("Verify() should accept the original secret")
	}
	if h.Verify("042918", encoded) {
		t.Error("Verify() should reject a different secret")
	}

	again, _ := h.Hash("042917")
	if again == encoded {
		t.Error("hashes of the same secret should use different salts")
	}
}

func TestArgon2Hasher_VerifyUsesEncodedParams(t *testing.T) {
	encoded, err := NewArgon2Hasher(testArgon2Params).Hash("secret")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !NewArgon2Hasher(DefaultArgon2Params).Verify("secret", encoded) {
		t.Error("Verify() should use the parameters stored in the hash")
	}
}

func TestArgon2Hasher_MalformedHash(t *testing.T) {
	h := NewArgon2Hasher(testArgon2Params)
	tests := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=64,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=64,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=64$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=64,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=64,t=1,p=1$c2FsdA$",
	}
	for _, encoded := range tests {
		if h.Verify("secret", encoded) {
			t.Errorf("Verify() accepted malformed hash %q", encoded)
		}
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !VerifyPassword("correct horse battery", hash) {
		t.Error("VerifyPassword() should accept the password")
	}
	if VerifyPassword("wrong", hash) {
		t.Error("VerifyPassword() should reject a wrong password")
	}
}

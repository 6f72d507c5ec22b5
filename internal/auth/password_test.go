package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-password" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !CheckPassword("s3cret-password", hash) {
		t.Error("correct password should verify")
	}
	if CheckPassword("wrong-password", hash) {
		t.Error("wrong password should not verify")
	}
	if CheckPassword("s3cret-passwore", hash) {
		t.Error("single-character mutation should not verify")
	}
}

func TestCheckPasswordBadHash(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Error("malformed hash should not verify")
	}
}

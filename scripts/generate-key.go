// Package main is a development utility for generating a test API key with a
// ready-to-run SQL INSERT statement so developers can quickly seed a usable
// API key in a local database without running the full server flow. Do not
// use generated keys in production — create keys through the API so they are
// tied to a real account.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
)

func main() {
	// Generate random bytes
	randomBytes := make([]byte, 32)
	_, err := rand.Read(randomBytes)
	if err != nil {
		log.Fatal(err)
	}

	// Encode to base64
	randomPart := base64.RawURLEncoding.EncodeToString(randomBytes)

	// Create full key
	fullKey := "cdp_" + randomPart

	fmt.Println("==========================================================")
	fmt.Println("API Key Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nFull Key: %s\n", fullKey)
	fmt.Println("\n==========================================================")
	fmt.Println("SQL Insert:")
	fmt.Println("==========================================================")
	fmt.Printf(`
INSERT INTO api_keys (id, user_id, name, secret, is_active, created_at)
VALUES (uuid_generate_v4(),
        (SELECT id FROM users WHERE email = 'admin@dev.local'),
        'dev key', '%s', true, now());
`, fullKey)
	fmt.Println("\n==========================================================")
	fmt.Printf("Authorization Header: Bearer %s\n", fullKey)
	fmt.Println("==========================================================")
}

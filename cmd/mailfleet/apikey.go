package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Generate an API key and its config hash",
	Long:  `Generates a random API key and prints the bcrypt hash to put under auth.api_key_hash in the config file. The key itself is shown once and never stored.`,
	RunE:  runAPIKey,
}

func runAPIKey(cmd *cobra.Command, args []string) error {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	key := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash key: %w", err)
	}

	fmt.Printf("API key:  %s\n", key)
	fmt.Printf("Config:\n\nauth:\n  api_key_hash: \"%s\"\n", string(hash))
	return nil
}

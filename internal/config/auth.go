package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Token is one saved API credential, keyed by context name in auth.json.
type Token struct {
	Token string `json:"token"`
}

// LoadTokens reads auth.json from the config directory. A missing file is
// not an error: the CLI simply has no saved logins yet.
func LoadTokens(dir string) (map[string]Token, error) {
	path := filepath.Join(dir, authFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Token{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	tokens := map[string]Token{}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return tokens, nil
}

// SaveTokens writes the credential map to auth.json with owner-only
// permissions.
func SaveTokens(dir string, tokens map[string]Token) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	path := filepath.Join(dir, authFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

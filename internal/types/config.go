package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config is a namespaced configuration object. Data is an opaque string,
// conventionally a JSON object mapping keys to file contents; config
// volumes resolve against it by key.
type Config struct {
	ID        string            `json:"id"`
	Namespace string            `json:"namespace"`
	Name      string            `json:"name"`
	Data      string            `json:"data"`
	Labels    map[string]string `json:"labels,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Validate checks a submitted config.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	return nil
}

// DataObject decodes Data as a JSON object of string values.
func (c *Config) DataObject() (map[string]string, error) {
	out := map[string]string{}
	if c.Data == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(c.Data), &out); err != nil {
		return nil, fmt.Errorf("config %s data is not a JSON object: %w", c.Name, err)
	}
	return out, nil
}

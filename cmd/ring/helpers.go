package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/kemeter/ring/internal/client"
	"github.com/kemeter/ring/internal/config"
)

// currentContextName resolves the context name remote commands operate on.
func currentContextName(cfg *config.Config) string {
	if cfg.CurrentContext != "" {
		return cfg.CurrentContext
	}
	return config.DefaultContext
}

// newAPIClient builds an API client for the current context using the token
// saved by ring login.
func newAPIClient() (*client.Client, error) {
	dir := config.Dir()
	cfg, err := config.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	name := currentContextName(cfg)
	host, err := cfg.ContextHost(name)
	if err != nil {
		return nil, err
	}
	tokens, err := config.LoadTokens(dir)
	if err != nil {
		return nil, err
	}
	tok, ok := tokens[name]
	if !ok || tok.Token == "" {
		return nil, fmt.Errorf("no saved login for context %q, run: ring login -u <username> -p <password>", name)
	}
	return client.New(host, tok.Token), nil
}

// newTable returns a padded-column writer; callers print tab-separated rows
// and Flush at the end.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

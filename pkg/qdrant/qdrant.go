package qdrant

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"
)

// Config is bound from QDRANT_* variables.
type Config struct {
	URL        string `envconfig:"QDRANT_URL"`
	APIKey     string `envconfig:"QDRANT_API_KEY"`
	Collection string `envconfig:"QDRANT_COLLECTION" default:"cv_examples"`
}

// New creates a gRPC client from a URL such as "https://xyz.qdrant.io:6334".
// A URL without scheme is treated as https; the port defaults to 6334.
func (c *Config) New() (*qdrant.Client, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}

	raw := c.URL
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	port := 6334
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid qdrant port: %w", err)
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return client, nil
}

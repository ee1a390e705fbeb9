package catalog

import "time"

// Config represents the configuration for the product catalog client
type Config struct {
	// BaseURL is the catalog service API base URL
	BaseURL string

	// APIKey authenticates this service against the catalog
	APIKey string

	// Timeout bounds every catalog call
	Timeout time.Duration
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrInvalidConfig
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return nil
}
